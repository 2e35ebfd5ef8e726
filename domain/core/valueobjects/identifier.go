package valueobjects

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PlaceholderPrefix marks node ids that stand in for external identifiers
// not found in storage. Storage ids are numeric, so the prefix guarantees
// the two id spaces never collide.
const PlaceholderPrefix = "pmid:"

// doiPattern matches a DOI embedded anywhere in free text. Greedy on
// purpose: citation strings usually terminate the DOI with whitespace.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s"'<>]+`)

// NormalizeDOI canonicalizes a DOI for index lookups: resolver URL
// prefixes and the doi: scheme are stripped and the result is lower-cased.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(doi)
	if d == "" {
		return ""
	}
	lower := strings.ToLower(d)
	for _, prefix := range []string{
		"https://doi.org/",
		"http://doi.org/",
		"https://dx.doi.org/",
		"http://dx.doi.org/",
		"doi:",
	} {
		if strings.HasPrefix(lower, prefix) {
			lower = lower[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(lower)
}

// ExtractDOI pulls the first DOI-shaped substring out of unstructured
// citation text. Returns "" when nothing matches.
func ExtractDOI(text string) string {
	match := doiPattern.FindString(text)
	if match == "" {
		return ""
	}
	// Trailing punctuation is citation syntax, not part of the DOI.
	return NormalizeDOI(strings.TrimRight(match, ".,;)"))
}

// PlaceholderID builds the synthetic node id for an unresolved external
// identifier.
func PlaceholderID(pmid string) string {
	return PlaceholderPrefix + pmid
}

// IsPlaceholderID reports whether a node id is synthetic.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// PMIDFromPlaceholder recovers the raw external identifier from a
// synthetic node id.
func PMIDFromPlaceholder(id string) string {
	return strings.TrimPrefix(id, PlaceholderPrefix)
}

// ToStringList normalizes the identifier-set fields coming out of storage.
// Depending on the driver and schema vintage the same logical field
// arrives as a native array, a JSON-encoded array, a Postgres array
// literal, or a delimited string. Every call site goes through here so the
// shape handling lives in exactly one place.
func ToStringList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return cleanList(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return cleanList(out)
	case []byte:
		return parseTextList(string(v))
	case string:
		return parseTextList(v)
	default:
		return nil
	}
}

func parseTextList(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	// JSON array form.
	if strings.HasPrefix(s, "[") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return ToStringList(items)
		}
	}
	// Postgres array literal form: {a,b,c}.
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = s[1 : len(s)-1]
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.Trim(p, `" `))
	}
	return cleanList(out)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
