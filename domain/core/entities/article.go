package entities

import (
	"fmt"
	"strings"

	"refgraph-backend/domain/core/valueobjects"
)

// MembershipStatus tags an article's standing within a project.
type MembershipStatus string

const (
	StatusSelected  MembershipStatus = "selected"
	StatusCandidate MembershipStatus = "candidate"
	StatusExcluded  MembershipStatus = "excluded"
	StatusDeleted   MembershipStatus = "deleted"
)

// Article is an immutable bibliographic record read from storage. The
// engine never mutates it; graph nodes are derived copies.
type Article struct {
	ID      int64
	DOI     string
	PMID    string
	Title   string
	Authors []string
	Year    *int

	// ReferenceData and CitingData hold the raw identifier-set columns.
	// The storage driver may deliver them as a native array or a
	// delimited string, so they are normalized lazily through
	// valueobjects.ToStringList.
	ReferenceData any
	CitingData    any

	// Two citation-count sources; nodes carry the max of the two.
	CitedByCount         int
	ExternalCitedByCount int

	StatsQuality int

	// RawMetadata is free-form provenance metadata, possibly containing
	// a structured reference list with DOIs (crossref style).
	RawMetadata []byte
}

// ReferenceIDs returns the external identifiers this article cites.
func (a *Article) ReferenceIDs() []string {
	return valueobjects.ToStringList(a.ReferenceData)
}

// CitingIDs returns the external identifiers known to cite this article.
func (a *Article) CitingIDs() []string {
	return valueobjects.ToStringList(a.CitingData)
}

// MaxCitedByCount reconciles the two citation-count sources.
func (a *Article) MaxCitedByCount() int {
	if a.ExternalCitedByCount > a.CitedByCount {
		return a.ExternalCitedByCount
	}
	return a.CitedByCount
}

// DisplayLabel derives the short string shown on a graph node: first
// author plus year when both are known, falling back to the title and
// finally to the PMID.
func (a *Article) DisplayLabel() string {
	if len(a.Authors) > 0 && a.Year != nil {
		return fmt.Sprintf("%s (%d)", a.Authors[0], *a.Year)
	}
	if title := strings.TrimSpace(a.Title); title != "" {
		if len(title) > 60 {
			return title[:57] + "..."
		}
		return title
	}
	if a.PMID != "" {
		return "PMID:" + a.PMID
	}
	return fmt.Sprintf("article %d", a.ID)
}

// ArticleRow joins an article with its project membership, as returned by
// the seed query.
type ArticleRow struct {
	Article
	Status      MembershipStatus
	SourceQuery string
}
