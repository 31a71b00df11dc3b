package cms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no markdown page exists for a slug in any candidate language.
var ErrNotFound = errors.New("cms: not found")

// Page is a localized static page sourced from local markdown.
type Page struct {
	Slug      string
	Lang      string
	Title     string
	Summary   string
	Hero      *Hero
	Body      string
	HTML      template.HTML
	Excerpt   string
	Steps     []Step
	UpdatedAt time.Time
	SEO       SEO
}

// Hero is the optional full-width banner at the top of a page.
type Hero struct {
	Title    string
	Subtitle string
	Image    string
}

// Step is one entry of an ordered walkthrough rendered after the body.
type Step struct {
	Title       string
	Description template.HTML
	Image       string
	ImageAlt    string
}

// SEO holds optional metadata overrides for a page.
type SEO struct {
	Title       string
	Description string
	OGImage     string
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	Lang      string `yaml:"lang"`
	UpdatedAt string `yaml:"updated_at"`
	Hero      *struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
		Image    string `yaml:"image"`
	} `yaml:"hero"`
	Steps []struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Image       string `yaml:"image"`
		ImageAlt    string `yaml:"image_alt"`
	} `yaml:"steps"`
	SEO struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		OGImage     string `yaml:"og_image"`
	} `yaml:"seo"`
}

const (
	defaultContentDir = "content"
	defaultCacheTTL   = 5 * time.Minute
	pagesKind         = "pages"
)

// Client reads markdown pages from <contentDir>/pages/<lang>/<slug>.md and caches
// the rendered result.
type Client struct {
	contentDir string
	fallback   string
	ttl        time.Duration
	md         goldmark.Markdown
	policy     *bluemonday.Policy
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithCacheTTL overrides the in-memory cache duration. Zero or negative disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// WithFallbackLang sets the language tried when a page is missing in the requested one.
func WithFallbackLang(lang string) Option {
	return func(c *Client) {
		if l := normalizeLang(lang); l != "" {
			c.fallback = l
		}
	}
}

// WithClock injects the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a Client rooted at dir.
func NewClient(dir string, opts ...Option) *Client {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultContentDir
	}
	c := &Client{
		contentDir: dir,
		fallback:   "en",
		ttl:        defaultCacheTTL,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: newPolicy(),
		now:    time.Now,
		cache:  map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentDir returns the configured directory.
func (c *Client) ContentDir() string {
	if c == nil || strings.TrimSpace(c.contentDir) == "" {
		return defaultContentDir
	}
	return c.contentDir
}

// GetPage returns the page for slug in lang, falling back to the default language.
func (c *Client) GetPage(ctx context.Context, slug, lang string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = normalizeLang(lang)

	key := lang + "|" + slug
	if page, ok := c.cached(key); ok {
		return page, nil
	}
	priority := []string{lang}
	if lang != c.fallback {
		priority = append(priority, c.fallback)
	}
	for _, candidate := range priority {
		if candidate == "" {
			continue
		}
		page, err := c.readPage(slug, candidate)
		if err == nil {
			c.store(key, page)
			return clonePage(page), nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		// parse failures stop the search
		return Page{}, err
	}
	return Page{}, ErrNotFound
}

// Flush drops every cached page.
func (c *Client) Flush() {
	c.mu.Lock()
	c.cache = map[string]cacheEntry{}
	c.mu.Unlock()
}

func (c *Client) readPage(slug, lang string) (Page, error) {
	file := filepath.Join(c.ContentDir(), pagesKind, lang, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("cms: read %s: %w", file, err)
	}
	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}

	rendered, err := c.render(body)
	if err != nil {
		return Page{}, fmt.Errorf("cms: render %s: %w", file, err)
	}
	page := Page{
		Slug:    slug,
		Lang:    firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Body:    body,
		HTML:    template.HTML(rendered),
		SEO: SEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			OGImage:     strings.TrimSpace(front.SEO.OGImage),
		},
	}
	if front.Hero != nil {
		page.Hero = &Hero{
			Title:    strings.TrimSpace(front.Hero.Title),
			Subtitle: strings.TrimSpace(front.Hero.Subtitle),
			Image:    strings.TrimSpace(front.Hero.Image),
		}
	}
	for _, s := range front.Steps {
		desc, err := c.render(s.Description)
		if err != nil {
			return Page{}, fmt.Errorf("cms: render step %q: %w", s.Title, err)
		}
		page.Steps = append(page.Steps, Step{
			Title:       strings.TrimSpace(s.Title),
			Description: template.HTML(desc),
			Image:       strings.TrimSpace(s.Image),
			ImageAlt:    firstNonEmpty(strings.TrimSpace(s.ImageAlt), strings.TrimSpace(s.Title)),
		})
	}
	page.Excerpt = Excerpt(rendered, 160)
	page.UpdatedAt = parseDate(front.UpdatedAt)
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

// render converts markdown to sanitized HTML.
func (c *Client) render(src string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return c.policy.Sanitize(buf.String()), nil
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("section", "div", "span", "p", "img")
	p.AllowAttrs("loading").Matching(bluemonday.SpaceSeparatedTokens).OnElements("img")
	p.RequireNoFollowOnLinks(false)
	return p
}

func (c *Client) cached(key string) (Page, bool) {
	if c.ttl <= 0 {
		return Page{}, false
	}
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return Page{}, false
	}
	return clonePage(entry.page), true
}

func (c *Client) store(key string, page Page) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{page: clonePage(page), expires: c.now().Add(c.ttl)}
}

func clonePage(src Page) Page {
	cp := src
	if src.Hero != nil {
		h := *src.Hero
		cp.Hero = &h
	}
	if src.Steps != nil {
		cp.Steps = append([]Step(nil), src.Steps...)
	}
	return cp
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(strings.TrimSpace(slug), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
