package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "en", []string{"en", "fr"})
	require.NoError(t, err)
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundle(t)
	require.Equal(t, "fr", b.Resolve("en;q=0.8, fr;q=0.9"))
	require.Equal(t, "fr", b.Resolve("fr-CA"))
	require.Equal(t, "en", b.Resolve("de-DE"))
	require.Equal(t, "en", b.Resolve(""))
}

func TestTFallsBackToDefaultThenKey(t *testing.T) {
	b := loadBundle(t)
	require.Equal(t, "Contactez-nous", b.T("fr", "contact.title"))
	// missing in fr, present in en
	require.Equal(t, "Imperial College London", b.T("fr", "footer.org"))
	require.Equal(t, "no.such.key", b.T("fr", "no.such.key"))

	_, ok := b.Lookup("fr", "no.such.key")
	require.False(t, ok)
}

func TestLoadRequiresFallbackCatalogue(t *testing.T) {
	_, err := Load(t.TempDir(), "en", []string{"en"})
	require.Error(t, err)
}

func TestSupportedIsSorted(t *testing.T) {
	b := loadBundle(t)
	require.Equal(t, []string{"en", "fr"}, b.Supported())
	require.True(t, b.IsSupported("fr"))
	require.False(t, b.IsSupported("ja"))
}
