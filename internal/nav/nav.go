package nav

import (
	"path"
	"strings"
)

// Target is a top-level navigation destination.
type Target struct {
	Path     string // e.g. "/problem"
	Label    string // default label, e.g. "Problem"
	LabelKey string // i18n key, e.g. "nav.problem"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	Label    string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition. It is never mutated at runtime.
var Main = []Target{
	{Path: "/problem", Label: "Problem", LabelKey: "nav.problem"},
	{Path: "/solution", Label: "Solution", LabelKey: "nav.solution"},
	{Path: "/contact", Label: "Contact Us", LabelKey: "nav.contact"},
}

// Resolve returns the target whose path equals currentPath exactly.
// No prefix or trailing-slash normalisation is applied.
func Resolve(currentPath string, targets []Target) (Target, bool) {
	for _, t := range targets {
		if t.Path == currentPath {
			return t, true
		}
	}
	return Target{}, false
}

// Build renders navigation items, marking the resolved target active.
func Build(currentPath string, targets []Target) []RenderedItem {
	active, ok := Resolve(currentPath, targets)
	items := make([]RenderedItem, 0, len(targets))
	for _, t := range targets {
		items = append(items, RenderedItem{
			Href:     t.Path,
			Label:    t.Label,
			LabelKey: t.LabelKey,
			Active:   ok && t.Path == active.Path,
		})
	}
	return items
}

// Breadcrumbs builds breadcrumb entries from the current path.
// Home always comes first; known targets use their label key, deeper segments
// get a prettified label.
func Breadcrumbs(currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Label: "Home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, seg := range parts {
		if seg == "" {
			continue
		}
		href += "/" + seg
		c := Crumb{Href: href, Label: titleFromSegment(seg), Active: i == len(parts)-1}
		if i == 0 {
			if t, ok := Resolve(href, Main); ok {
				c.LabelKey = t.LabelKey
				c.Label = t.Label
			}
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	// ASCII only is sufficient for slugs here
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
