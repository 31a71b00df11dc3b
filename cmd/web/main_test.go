package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/cms"
	"leftmove.org/leftmove-web/internal/config"
	"leftmove.org/leftmove-web/internal/handlers"
	"leftmove.org/leftmove-web/internal/i18n"
	mw "leftmove.org/leftmove-web/internal/middleware"
	"leftmove.org/leftmove-web/internal/submission"
)

// recordingSink keeps every delivered message.
type recordingSink struct {
	mu   sync.Mutex
	msgs []submission.Message
	err  error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, msg submission.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSink) messages() []submission.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission.Message(nil), s.msgs...)
}

// newTestRouter points the package globals at the repo's templates, locales and
// content, and returns the production router.
func newTestRouter(t *testing.T) (http.Handler, *recordingSink) {
	t.Helper()
	devMode = true
	templatesDir = "../../templates"
	publicDir = "../../public"
	if _, err := parseTemplates(); err != nil {
		t.Fatalf("parseTemplates failed: %v", err)
	}
	var err error
	i18nBundle, err = i18n.Load("../../locales", "en", []string{"en", "fr"})
	if err != nil {
		t.Fatalf("load i18n: %v", err)
	}
	contentClient = cms.NewClient("../../content", cms.WithFallbackLang("en"), cms.WithCacheTTL(0))
	siteCfg = config.Config{Site: config.SiteConfig{BaseURL: "https://leftmove.example"}}
	analytics = handlers.Analytics{}

	sink := &recordingSink{}
	submissionSink = sink
	return newRouter(zap.NewNop(), 0), sink
}

// browser replays cookies between requests like a real client would.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept-Language", "en")
	return b.do(req)
}

func (b *browser) post(path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if c, ok := b.cookies["csrf_token"]; ok {
		form.Set(mw.CSRFFormField, c.Value)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Language", "en")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	return doc
}

func TestHealthzOK(t *testing.T) {
	srv, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	require.Equal(t, "ok", strings.TrimSpace(string(body)))
}

func TestHomeRendersProblemPageWithoutActiveTarget(t *testing.T) {
	srv, _ := newTestRouter(t)
	rec := newBrowser(t, srv).get("/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := parseHTML(t, rec)
	require.Equal(t, "Real Estate Investing Made Simple", strings.TrimSpace(doc.Find(".hero h1").Text()))
	require.Equal(t, 0, doc.Find(".nav-desktop a.active").Length())
	require.Equal(t, 3, doc.Find(".nav-desktop a").Length())
	require.Contains(t, rec.Header().Get("Vary"), "Accept-Language")
}

func TestNavHighlightsExactRoute(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)

	cases := map[string]string{
		"/problem":  "/problem",
		"/solution": "/solution",
		"/contact":  "/contact",
	}
	for path, want := range cases {
		rec := b.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		active := parseHTML(t, rec).Find(".nav-desktop a.active")
		require.Equal(t, 1, active.Length(), path)
		href, _ := active.Attr("href")
		require.Equal(t, want, href)
		current, _ := active.Attr("aria-current")
		require.Equal(t, "page", current)
	}

	rec := b.get("/problem/")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSolutionPageRendersSteps(t *testing.T) {
	srv, _ := newTestRouter(t)
	rec := newBrowser(t, srv).get("/solution")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	require.Equal(t, 5, doc.Find("ol.steps li.step").Length())
	var howTo bool
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), `"HowTo"`) {
			howTo = true
		}
	})
	require.True(t, howTo, "expected HowTo structured data")
	canonical, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	require.Equal(t, "https://leftmove.example/solution", canonical)
}

func TestLocaleQuerySwitchesLanguage(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	rec := b.get("/problem?hl=fr")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "fr", rec.Header().Get("Content-Language"))
	lang, _ := parseHTML(t, rec).Find("html").Attr("lang")
	require.Equal(t, "fr", lang)

	// the choice sticks to the session
	rec = b.get("/solution")
	lang, _ = parseHTML(t, rec).Find("html").Attr("lang")
	require.Equal(t, "fr", lang)
}

func TestUnknownRouteRendersNotFoundPage(t *testing.T) {
	srv, _ := newTestRouter(t)
	rec := newBrowser(t, srv).get("/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	doc := parseHTML(t, rec)
	require.Equal(t, "Page not found", strings.TrimSpace(doc.Find("main h1").Text()))
	robots, _ := doc.Find(`meta[name="robots"]`).Attr("content")
	require.Equal(t, "noindex", robots)
}

func TestHTMXPostRequiresCSRF(t *testing.T) {
	srv, _ := newTestRouter(t)
	b := newBrowser(t, srv)
	require.Equal(t, http.StatusOK, b.get("/").Code)
	require.Contains(t, b.cookies, "csrf_token")
	require.Contains(t, b.cookies, "LEFTMOVE_SESSION")

	req := httptest.NewRequest(http.MethodPost, "/nav/toggle", nil)
	req.Header.Set("HX-Request", "true")
	rec := b.do(req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = b.post("/nav/toggle", url.Values{"return": {"/"}}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAssetsServed(t *testing.T) {
	srv, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/assets/site.css", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Cache-Control"), "public")
}
