package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/format"
	"leftmove.org/leftmove-web/internal/handlers"
	"leftmove.org/leftmove-web/internal/observability"
)

// templateSet holds the shared layout/partials plus one clone per page.
type templateSet struct {
	shared *template.Template
	pages  map[string]*template.Template
}

var (
	tmplMu    sync.RWMutex
	tmplCache *templateSet
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"now":  time.Now,
		"year": format.Year,
		"t": func(lang, key string) string {
			return i18nBundle.T(lang, key)
		},
		"tOr":     i18nOrDefault,
		"fmtDate": format.FmtDate,
		"isoDate": format.ISODate,
		"jsonld": func(s string) template.JS {
			// JSON-LD strings come from encoding/json, which escapes <, > and &
			return template.JS(s)
		},
		"field": func(lang, csrf string, f handlers.FieldView) fieldFrag {
			return fieldFrag{Lang: lang, CSRFToken: csrf, Field: f}
		},
		"upper": strings.ToUpper,
	}
}

// fieldFrag is the data for the contact_field and contact_field_error fragments.
type fieldFrag struct {
	Lang      string
	CSRFToken string
	Field     handlers.FieldView
}

// parseTemplates reads layouts and partials into a shared set, then clones it once per
// file under pages/ so each page can define its own "content" block.
func parseTemplates() (*templateSet, error) {
	var shared, pages []string
	if err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		rel, _ := filepath.Rel(templatesDir, path)
		if strings.HasPrefix(filepath.ToSlash(rel), "pages/") {
			pages = append(pages, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(shared) == 0 || len(pages) == 0 {
		return nil, fmt.Errorf("no templates found under %s", templatesDir)
	}
	base, err := template.New("_root").Funcs(templateFuncs()).ParseFiles(shared...)
	if err != nil {
		return nil, err
	}
	set := &templateSet{shared: base, pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFiles(p); err != nil {
			return nil, err
		}
		set.pages[strings.TrimSuffix(filepath.Base(p), ".tmpl")] = clone
	}
	return set, nil
}

func loadTemplates() error {
	set, err := parseTemplates()
	if err != nil {
		return err
	}
	tmplMu.Lock()
	tmplCache = set
	tmplMu.Unlock()
	return nil
}

func currentTemplates() (*templateSet, error) {
	if devMode {
		return parseTemplates()
	}
	tmplMu.RLock()
	defer tmplMu.RUnlock()
	if tmplCache == nil {
		return nil, fmt.Errorf("template not initialized")
	}
	return tmplCache, nil
}

// renderPage executes the base layout with the page's content block.
func renderPage(w http.ResponseWriter, r *http.Request, page string, status int, data any) {
	set, err := currentTemplates()
	if err != nil {
		renderFailure(w, r, err)
		return
	}
	t, ok := set.pages[page]
	if !ok {
		renderFailure(w, r, fmt.Errorf("unknown page template %q", page))
		return
	}
	execute(w, r, t, "base", status, data)
}

// renderTemplate executes a shared fragment, used for htmx swaps.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	set, err := currentTemplates()
	if err != nil {
		renderFailure(w, r, err)
		return
	}
	execute(w, r, set.shared, name, status, data)
}

// execute buffers the output so a template error never leaves a half-written page.
func execute(w http.ResponseWriter, r *http.Request, t *template.Template, name string, status int, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		renderFailure(w, r, fmt.Errorf("exec %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("render failed", zap.Error(err))
	http.Error(w, "template error", http.StatusInternalServerError)
}

// i18nOrDefault returns the translation or def when the key is missing everywhere.
func i18nOrDefault(lang, key, def string) string {
	if v, ok := i18nBundle.Lookup(lang, key); ok && v != "" {
		return v
	}
	return def
}
