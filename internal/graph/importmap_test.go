package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImportMap_Basic(t *testing.T) {
	raw := []byte(`{
		"imports": {
			"lodash": "https://esm.sh/lodash@4.17.21",
			"lib/": "https://esm.sh/lib/"
		}
	}`)
	m, err := ParseImportMap(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://esm.sh/lodash@4.17.21", m.Imports["lodash"])
	assert.Equal(t, "https://esm.sh/lib/", m.Imports["lib/"])
}

func TestParseImportMap_ToleratesLineComments(t *testing.T) {
	raw := []byte(`{
		// this is a comment
		"imports": {
			"lodash": "https://esm.sh/lodash@4.17.21" // trailing comment
		}
	}`)
	m, err := ParseImportMap(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://esm.sh/lodash@4.17.21", m.Imports["lodash"])
}

func TestParseImportMap_IgnoresSlashesInsideStrings(t *testing.T) {
	raw := []byte(`{
		"imports": {
			"a": "https://esm.sh/a@1.0.0"
		}
	}`)
	m, err := ParseImportMap(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://esm.sh/a@1.0.0", m.Imports["a"])
}

func TestParseImportMap_EmptyImportsTableDefaultsToNonNilMap(t *testing.T) {
	m, err := ParseImportMap([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, m.Imports)
	assert.Empty(t, m.Imports)
}

func TestParseImportMap_InvalidJSON(t *testing.T) {
	_, err := ParseImportMap([]byte(`not json`))
	require.Error(t, err)
}

func TestImportMap_Resolve_ExactMatch(t *testing.T) {
	m := &ImportMap{Imports: map[string]string{"lodash": "https://esm.sh/lodash@4.17.21"}}
	got, ok := m.Resolve("lodash")
	require.True(t, ok)
	assert.Equal(t, "https://esm.sh/lodash@4.17.21", got)
}

func TestImportMap_Resolve_PrefixMatch(t *testing.T) {
	m := &ImportMap{Imports: map[string]string{"lib/": "https://esm.sh/lib/"}}
	got, ok := m.Resolve("lib/widgets/button")
	require.True(t, ok)
	assert.Equal(t, "https://esm.sh/lib/widgets/button", got)
}

func TestImportMap_Resolve_LongestPrefixWins(t *testing.T) {
	m := &ImportMap{Imports: map[string]string{
		"lib/":          "https://esm.sh/lib/",
		"lib/widgets/":  "https://esm.sh/widgets-pkg/",
	}}
	got, ok := m.Resolve("lib/widgets/button")
	require.True(t, ok)
	assert.Equal(t, "https://esm.sh/widgets-pkg/button", got)
}

func TestImportMap_Resolve_NoMatchPassesThrough(t *testing.T) {
	m := &ImportMap{Imports: map[string]string{"lodash": "https://esm.sh/lodash@4.17.21"}}
	got, ok := m.Resolve("./local-module")
	assert.False(t, ok)
	assert.Equal(t, "./local-module", got)
}

func TestImportMap_Resolve_NilMapPassesThrough(t *testing.T) {
	var m *ImportMap
	got, ok := m.Resolve("lodash")
	assert.False(t, ok)
	assert.Equal(t, "lodash", got)
}
