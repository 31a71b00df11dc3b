package handlers

// Content slugs served by the page routes. "/" shows the problem page but is not
// itself a navigation target, so nothing is highlighted there.
const (
	HomeSlug     = "problem"
	SolutionSlug = "solution"
)

var routeSlugs = map[string]string{
	"/":         HomeSlug,
	"/problem":  HomeSlug,
	"/solution": SolutionSlug,
}

// SlugForPath maps a content route to its markdown slug.
func SlugForPath(path string) (string, bool) {
	s, ok := routeSlugs[path]
	return s, ok
}
