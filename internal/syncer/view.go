package syncer

import (
	"math"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github-repo-dashboard/internal/model"
)

// Filter returns the records whose name, visibility or language contains term,
// ignoring case. An empty term keeps every record. Order is preserved and the
// input is not modified.
func Filter(repos []model.RepositorySummary, term string) []model.RepositorySummary {
	if term == "" {
		return slices.Clone(repos)
	}
	needle := strings.ToLower(term)
	out := make([]model.RepositorySummary, 0, len(repos))
	for _, r := range repos {
		if matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r model.RepositorySummary, needle string) bool {
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(string(r.Visibility)), needle) ||
		strings.Contains(strings.ToLower(r.Language), needle)
}

// Sort returns a sorted copy of repos. Ties keep their input order.
// Names are compared with English collation rules; an unrecognized order
// sorts by name.
func Sort(repos []model.RepositorySummary, order model.SortOrder) []model.RepositorySummary {
	out := slices.Clone(repos)
	switch order {
	case model.SortByCreated:
		slices.SortStableFunc(out, func(a, b model.RepositorySummary) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case model.SortByUpdated:
		slices.SortStableFunc(out, func(a, b model.RepositorySummary) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
	default:
		// collate.Collator is not safe for concurrent use.
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b model.RepositorySummary) int {
			return c.CompareString(a.Name, b.Name)
		})
	}
	return out
}

// LanguagePercentages converts bytes per language into shares of the total,
// rounded to two decimals. An empty or all-zero usage yields an empty map.
func LanguagePercentages(usage map[string]int) map[string]float64 {
	out := make(map[string]float64, len(usage))
	total := 0
	for _, bytes := range usage {
		total += max(bytes, 0)
	}
	if total == 0 {
		return out
	}
	for lang, bytes := range usage {
		out[lang] = math.Round(float64(max(bytes, 0))/float64(total)*10000) / 100
	}
	return out
}
