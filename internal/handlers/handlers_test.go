package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leftmove.org/leftmove-web/internal/contact"
	"leftmove.org/leftmove-web/internal/nav"
)

func TestBuildPageMarksActiveTarget(t *testing.T) {
	pd := BuildPage(PageInput{
		Path:    "/solution",
		Lang:    "en",
		Title:   "Solution",
		BaseURL: "https://leftmove.example",
		Menu:    nav.MenuOpen,
		Now:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	var active []string
	for _, it := range pd.Nav {
		if it.Active {
			active = append(active, it.Href)
		}
	}
	require.Equal(t, []string{"/solution"}, active)
	require.True(t, pd.Menu.Open)
	require.Equal(t, "/solution", pd.Menu.Return)
	require.Equal(t, 2026, pd.Footer.Year)
	require.Len(t, pd.SEO.JSONLD, 2)
	require.True(t, strings.Contains(pd.SEO.JSONLD[1], "https://leftmove.example/solution"))
}

func TestBuildPageRootHasNoActiveTarget(t *testing.T) {
	pd := BuildPage(PageInput{Path: "/"})
	for _, it := range pd.Nav {
		require.False(t, it.Active, it.Href)
	}
	require.False(t, pd.Menu.Open)
}

func TestBuildContactView(t *testing.T) {
	s := contact.Snapshot{
		Data:   contact.Data{Email: "bad"},
		Errors: contact.Validate(contact.Data{Email: "bad"}),
	}
	v := BuildContactView(s, false)
	require.True(t, v.Invalid)
	require.Len(t, v.Fields, 3)
	require.Equal(t, "email", v.Fields[1].Name)
	require.Equal(t, "bad", v.Fields[1].Value)
	require.Equal(t, contact.MsgEmailInvalid, v.Fields[1].Error)
	require.Equal(t, "contact.error.email_invalid", v.Fields[1].ErrorKey)
	require.True(t, v.Fields[2].Multiline)
}

func TestSlugForPath(t *testing.T) {
	s, ok := SlugForPath("/")
	require.True(t, ok)
	require.Equal(t, HomeSlug, s)
	_, ok = SlugForPath("/contact")
	require.False(t, ok)
}
