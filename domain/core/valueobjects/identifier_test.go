package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDOI(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare doi lower-cased", "10.1038/S41467-021-23778-6", "10.1038/s41467-021-23778-6"},
		{"resolver url stripped", "https://doi.org/10.1038/s41467-021-23778-6", "10.1038/s41467-021-23778-6"},
		{"dx resolver url stripped", "http://dx.doi.org/10.1000/XYZ", "10.1000/xyz"},
		{"doi scheme stripped", "doi:10.1000/xyz", "10.1000/xyz"},
		{"whitespace trimmed", "  10.1000/xyz  ", "10.1000/xyz"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeDOI(tc.input))
		})
	}
}

func TestExtractDOI(t *testing.T) {
	assert.Equal(t, "10.1016/j.cell.2019.01.001",
		ExtractDOI("Smith J et al. Cell. 2019. doi:10.1016/j.cell.2019.01.001."))
	assert.Equal(t, "10.1038/s41467-021-23778-6",
		ExtractDOI("see https://doi.org/10.1038/s41467-021-23778-6, accessed 2021"))
	assert.Empty(t, ExtractDOI("no identifier here"))
	assert.Empty(t, ExtractDOI(""))
}

func TestPlaceholderIDs(t *testing.T) {
	id := PlaceholderID("12345")
	assert.Equal(t, "pmid:12345", id)
	assert.True(t, IsPlaceholderID(id))
	assert.False(t, IsPlaceholderID("12345"))
	assert.Equal(t, "12345", PMIDFromPlaceholder(id))
}

func TestToStringList(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected []string
	}{
		{"nil", nil, nil},
		{"native string slice", []string{"1", " 2 ", ""}, []string{"1", "2"}},
		{"any slice", []any{"a", 7, "b"}, []string{"a", "b"}},
		{"json array text", `["111","222"]`, []string{"111", "222"}},
		{"postgres array literal", `{111,222,333}`, []string{"111", "222", "333"}},
		{"quoted array literal", `{"10.1000/a","10.1000/b"}`, []string{"10.1000/a", "10.1000/b"}},
		{"comma delimited", "111, 222,333", []string{"111", "222", "333"}},
		{"semicolon delimited", "111; 222", []string{"111", "222"}},
		{"byte slice", []byte("111,222"), []string{"111", "222"}},
		{"empty string", "   ", nil},
		{"unsupported type", 42, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToStringList(tc.input))
		})
	}
}
