package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/cms"
	"leftmove.org/leftmove-web/internal/format"
	handlersPkg "leftmove.org/leftmove-web/internal/handlers"
	mw "leftmove.org/leftmove-web/internal/middleware"
	"leftmove.org/leftmove-web/internal/nav"
	"leftmove.org/leftmove-web/internal/observability"
	"leftmove.org/leftmove-web/internal/seo"
)

// pageData builds the shared layout model for r. The menu state comes from the
// session; a ?via=menu link click closes it before anything renders.
func pageData(r *http.Request, title, desc, image string) handlersPkg.PageData {
	lang := mw.Lang(r)
	menu := restoreMenu(r)
	if r.Method == http.MethodGet && r.URL.Query().Get("via") == "menu" {
		menu.Dispatch(nav.LinkSelected{})
	}
	var languages []string
	if i18nBundle != nil {
		languages = i18nBundle.Supported()
	}
	return handlersPkg.BuildPage(handlersPkg.PageInput{
		Path:        r.URL.Path,
		Lang:        lang,
		Languages:   languages,
		Title:       title,
		Description: desc,
		Image:       image,
		BaseURL:     siteCfg.Site.BaseURL,
		CSRFToken:   mw.CSRFToken(r),
		Menu:        menu.State(),
		Analytics:   analytics,
	})
}

// ContentPageHandler renders the markdown-backed pages: /, /problem and /solution.
func ContentPageHandler(w http.ResponseWriter, r *http.Request) {
	slug, ok := handlersPkg.SlugForPath(r.URL.Path)
	if !ok {
		NotFoundHandler(w, r)
		return
	}
	lang := mw.Lang(r)
	page, err := contentClient.GetPage(r.Context(), slug, lang)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			NotFoundHandler(w, r)
			return
		}
		observability.FromContext(r.Context()).Error("load content page", zap.String("slug", slug), zap.Error(err))
		ErrorPageHandler(w, r, http.StatusInternalServerError)
		return
	}

	desc := firstNonEmpty(page.SEO.Description, page.Summary, page.Excerpt)
	image := page.SEO.OGImage
	if image == "" && page.Hero != nil {
		image = page.Hero.Image
	}
	vm := pageData(r, firstNonEmpty(page.SEO.Title, page.Title), desc, image)
	vm.Content = &page

	if r.URL.Path == "/" {
		vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.WebSite(seo.SiteName, siteCfg.Site.BaseURL, lang)))
	}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.WebPage("WebPage", page.Title, desc, vm.SEO.Canonical, format.ISODate(page.UpdatedAt))))
	if len(page.Steps) > 0 {
		names := make([]string, 0, len(page.Steps))
		for _, s := range page.Steps {
			names = append(names, s.Title)
		}
		vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.HowTo(page.Title, page.Summary, names)))
	}

	renderPage(w, r, "content", http.StatusOK, vm)
}

// NotFoundHandler renders the 404 page, or a JSON error for htmx.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	ErrorPageHandler(w, r, http.StatusNotFound)
}

// ErrorPageHandler renders a full error page with the site chrome.
func ErrorPageHandler(w http.ResponseWriter, r *http.Request, status int) {
	lang := mw.Lang(r)
	if mw.IsHTMX(r.Context()) {
		mw.WriteError(w, r, status, http.StatusText(status))
		return
	}
	key, def := "error.generic", "Something went wrong. Please try again."
	if status == http.StatusNotFound {
		key, def = "error.not_found", "Page not found"
	}
	title := i18nOrDefault(lang, key, def)
	vm := pageData(r, title, "", "")
	vm.SEO.Robots = "noindex"
	renderPage(w, r, "error", status, vm)
}
