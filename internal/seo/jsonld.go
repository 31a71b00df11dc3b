package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string, address PostalAddress) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	if address.StreetAddress != "" {
		m["address"] = map[string]any{
			"@type":           "PostalAddress",
			"streetAddress":   address.StreetAddress,
			"addressLocality": address.Locality,
			"postalCode":      address.PostalCode,
			"addressCountry":  address.Country,
		}
	}
	return m
}

// PostalAddress is the subset of schema.org PostalAddress used in the footer.
type PostalAddress struct {
	StreetAddress string
	Locality      string
	PostalCode    string
	Country       string
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url, lang string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if lang != "" {
		m["inLanguage"] = lang
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// WebPage returns a WebPage (or subtype such as ContactPage) schema.
func WebPage(kind, name, description, url, dateModified string) map[string]any {
	if kind == "" {
		kind = "WebPage"
	}
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    kind,
		"name":     name,
	}
	if description != "" {
		m["description"] = description
	}
	if url != "" {
		m["url"] = url
	}
	if dateModified != "" {
		m["dateModified"] = dateModified
	}
	return m
}

// HowTo renders ordered steps as a schema.org HowTo.
func HowTo(name, description string, steps []string) map[string]any {
	el := make([]map[string]any, 0, len(steps))
	for i, s := range steps {
		el = append(el, map[string]any{
			"@type":    "HowToStep",
			"position": i + 1,
			"name":     s,
		})
	}
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "HowTo",
		"name":     name,
		"step":     el,
	}
	if description != "" {
		m["description"] = description
	}
	return m
}
