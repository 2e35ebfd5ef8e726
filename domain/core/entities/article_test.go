package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayLabel(t *testing.T) {
	year := 2020

	a := &Article{Authors: []string{"Nguyen T", "Silva M"}, Year: &year, Title: "Some Title"}
	assert.Equal(t, "Nguyen T (2020)", a.DisplayLabel())

	// Year missing: fall back to the title.
	a = &Article{Authors: []string{"Nguyen T"}, Title: "Some Title"}
	assert.Equal(t, "Some Title", a.DisplayLabel())

	long := strings.Repeat("x", 80)
	a = &Article{Title: long}
	assert.Equal(t, long[:57]+"...", a.DisplayLabel())

	a = &Article{PMID: "12345"}
	assert.Equal(t, "PMID:12345", a.DisplayLabel())

	a = &Article{ID: 7}
	assert.Equal(t, "article 7", a.DisplayLabel())
}

func TestMaxCitedByCount(t *testing.T) {
	a := &Article{CitedByCount: 5, ExternalCitedByCount: 12}
	assert.Equal(t, 12, a.MaxCitedByCount())

	a = &Article{CitedByCount: 20, ExternalCitedByCount: 12}
	assert.Equal(t, 20, a.MaxCitedByCount())
}

func TestReferenceIDs_NormalizesDynamicShapes(t *testing.T) {
	a := &Article{ReferenceData: []string{"100", "200"}}
	assert.Equal(t, []string{"100", "200"}, a.ReferenceIDs())

	a = &Article{ReferenceData: "{100,200}"}
	assert.Equal(t, []string{"100", "200"}, a.ReferenceIDs())

	a = &Article{CitingData: "300; 400"}
	assert.Equal(t, []string{"300", "400"}, a.CitingIDs())

	a = &Article{}
	assert.Empty(t, a.ReferenceIDs())
	assert.Empty(t, a.CitingIDs())
}
