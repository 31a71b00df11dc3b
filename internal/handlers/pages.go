package handlers

import (
	"time"

	"leftmove.org/leftmove-web/internal/cms"
	"leftmove.org/leftmove-web/internal/nav"
	"leftmove.org/leftmove-web/internal/seo"
)

// PageData is the view model every full page hands to the shared layout.
type PageData struct {
	Title     string
	Lang      string
	Languages []string
	SEO       seo.Meta
	Analytics Analytics
	CSRFToken string

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Menu        MenuView
	Footer      Footer

	// Optional per-page payloads
	Content *cms.Page
	Contact *ContactView
}

// MenuView drives the mobile navigation toggle.
type MenuView struct {
	Open  bool
	State nav.MenuState
	// Return is where a non-htmx toggle post sends the browser back to.
	Return string
}

// Footer is the site-wide footer block.
type Footer struct {
	Year    int
	Address seo.PostalAddress
}

// Office is the postal address shown in the footer and Organization schema.
var Office = seo.PostalAddress{
	StreetAddress: "Exhibition Rd, South Kensington",
	Locality:      "London",
	PostalCode:    "SW7 2BX",
	Country:       "GB",
}

// PageInput carries the request-derived values BuildPage needs.
type PageInput struct {
	Path        string
	Lang        string
	Languages   []string
	Title       string
	Description string
	Image       string
	BaseURL     string
	CSRFToken   string
	Menu        nav.MenuState
	Analytics   Analytics
	Now         time.Time
}

// BuildPage assembles layout data: nav with the active target, breadcrumbs, menu
// state, footer and SEO metadata with Organization and BreadcrumbList JSON-LD.
func BuildPage(in PageInput) PageData {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	crumbs := nav.Breadcrumbs(in.Path)
	meta := seo.PageMeta(in.BaseURL, in.Path, in.Title, in.Description, in.Image, in.Languages)
	meta.JSONLD = append(meta.JSONLD,
		seo.JSON(seo.Organization(seo.SiteName, in.BaseURL, "", Office)),
		seo.JSON(seo.BreadcrumbList(breadcrumbItems(in.BaseURL, crumbs))),
	)
	return PageData{
		Title:       in.Title,
		Lang:        in.Lang,
		Languages:   in.Languages,
		SEO:         meta,
		Analytics:   in.Analytics,
		CSRFToken:   in.CSRFToken,
		Path:        in.Path,
		Nav:         nav.Build(in.Path, nav.Main),
		Breadcrumbs: crumbs,
		Menu: MenuView{
			Open:   in.Menu == nav.MenuOpen,
			State:  in.Menu,
			Return: in.Path,
		},
		Footer: Footer{Year: in.Now.Year(), Address: Office},
	}
}

func breadcrumbItems(baseURL string, crumbs []nav.Crumb) []seo.BreadcrumbItem {
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		items = append(items, seo.BreadcrumbItem{Name: c.Label, Item: baseURL + c.Href})
	}
	return items
}
