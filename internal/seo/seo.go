package seo

import "strings"

// OpenGraph carries og:* meta values.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
}

// Twitter carries twitter:* meta values.
type Twitter struct {
	Card  string
	Image string
}

// Alternate is an hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Meta is everything the layout head needs.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []string
}

// SiteName is used in titles and structured data.
const SiteName = "LeftMove"

// PageMeta fills a Meta for a page at path. baseURL may be empty, in which case
// canonical and og:url stay empty.
func PageMeta(baseURL, path, title, description, image string, langs []string) Meta {
	full := SiteName
	if title != "" && title != SiteName {
		full = title + " | " + SiteName
	}
	m := Meta{
		Title:       full,
		Description: description,
		Robots:      "index,follow",
		OG: OpenGraph{
			Title:       full,
			Description: description,
			Image:       image,
			Type:        "website",
			SiteName:    SiteName,
		},
		Twitter: Twitter{Card: "summary_large_image", Image: image},
	}
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		m.Canonical = base + path
		m.OG.URL = m.Canonical
		for _, l := range langs {
			m.Alternates = append(m.Alternates, Alternate{Href: m.Canonical + "?hl=" + l, Hreflang: l})
		}
	}
	return m
}
