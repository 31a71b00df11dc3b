package main

import (
	"net/http"
	"strings"

	mw "leftmove.org/leftmove-web/internal/middleware"
	"leftmove.org/leftmove-web/internal/nav"
)

// restoreMenu rebuilds the visitor's menu from the session and persists every change
// back to it.
func restoreMenu(r *http.Request) *nav.Menu {
	sess := mw.GetSession(r)
	menu := nav.NewMenu(nav.ParseMenuState(sess.Menu))
	menu.Subscribe(func(s nav.MenuState) {
		sess.SetMenu(string(s))
	})
	return menu
}

// NavToggleHandler flips the mobile menu. htmx swaps the header in place; plain form
// posts are redirected back to the page they came from.
func NavToggleHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	back := safeReturnPath(r.PostForm.Get("return"))
	restoreMenu(r).Dispatch(nav.Toggled{})

	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	// render the header as it looks on the page being viewed
	rr := r.Clone(r.Context())
	rr.URL.Path = back
	rr.URL.RawQuery = ""
	rr.Method = http.MethodGet
	vm := pageData(rr, "", "", "")
	renderTemplate(w, r, "c_header", http.StatusOK, vm)
}

// safeReturnPath keeps redirects on this site.
func safeReturnPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return "/"
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return p
}
