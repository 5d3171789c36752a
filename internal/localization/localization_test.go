package localization_test

import (
	"testing"
	"testing/fstest"

	"pairchat/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedCatalogs(t *testing.T) {
	l := localization.Default()

	assert.ElementsMatch(t, []string{"en", "uk"}, l.Languages())
	assert.Equal(t, "The other user has disconnected", l.GetString("en", "ended.disconnected"))
	assert.Equal(t, "Співрозмовник від'єднався", l.GetString("uk", "ended.disconnected"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.json":    {Data: []byte(`{"greeting":"hello","only.en":"english"}`)},
		"i18n/de.json":    {Data: []byte(`{"greeting":"hallo"}`)},
		"i18n/readme.txt": {Data: []byte(`ignored`)},
	}

	l, err := localization.NewLocalizer(fsys, "i18n")
	require.NoError(t, err)

	assert.Equal(t, "hallo", l.GetString("de", "greeting"))
	assert.Equal(t, "english", l.GetString("de", "only.en"), "missing key falls back to English")
	assert.Equal(t, "hello", l.GetString("fr", "greeting"), "missing language falls back to English")
	assert.Equal(t, "no.such.key", l.GetString("en", "no.such.key"))
}

func TestNewLocalizer_BrokenCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.json": {Data: []byte(`{not json`)},
	}

	_, err := localization.NewLocalizer(fsys, "i18n")

	assert.Error(t, err)
}
