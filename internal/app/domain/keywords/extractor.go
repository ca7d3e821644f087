// Package keywords pulls catalog search terms out of a free-text image description.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlaceTypes is the vocabulary matched as case-insensitive substrings.
// Entries must not contain one another: the automaton reports leftmost-longest,
// non-overlapping hits.
var PlaceTypes = []string{
	"museum", "park", "temple", "church", "cathedral", "castle", "palace",
	"tower", "bridge", "monument", "statue", "fortress", "mosque", "basilica",
	"garden", "square", "market", "beach", "waterfall", "mountain", "lake",
	"ruins", "stadium", "opera", "theater", "theatre", "gallery", "zoo",
	"aquarium", "lighthouse", "abbey", "monastery", "pagoda", "shrine",
	"canyon", "volcano", "pyramid", "arch", "harbor", "harbour", "plaza",
	"library", "observatory", "fountain", "colosseum",
}

// KnownPlaces is matched on word boundaries.
var KnownPlaces = []string{
	"Paris", "London", "Rome", "Berlin", "Madrid", "Barcelona", "Lisbon", "Porto",
	"Amsterdam", "Vienna", "Prague", "Budapest", "Athens", "Istanbul", "Moscow",
	"Dubai", "Cairo", "Tokyo", "Kyoto", "Beijing", "Shanghai", "Bangkok",
	"Singapore", "Sydney", "New York", "San Francisco", "Los Angeles", "Rio de Janeiro",
	"Buenos Aires", "Mexico City", "Venice", "Florence", "Milan", "Agra", "Delhi",
	"France", "Italy", "Spain", "Portugal", "Germany", "England", "Greece",
	"Turkey", "Egypt", "Japan", "China", "India", "Thailand", "Australia",
	"Brazil", "Mexico", "Peru", "Netherlands", "Austria", "Czech Republic",
	"Hungary", "Russia", "United States", "United Kingdom",
}

var demonstratives = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "There": {},
}

// One or more capitalised words separated by single spaces.
var capitalizedRun = regexp.MustCompile(`\b[A-Z][a-zA-Z]*(?: [A-Z][a-zA-Z]*)*\b`)

type Extractor struct {
	mu         sync.Mutex
	placeTypes ahocorasick.AhoCorasick
	places     *regexp.Regexp
	fold       cases.Caser
}

func NewExtractor() *Extractor {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})

	quoted := make([]string, 0, len(KnownPlaces))
	for _, p := range KnownPlaces {
		quoted = append(quoted, regexp.QuoteMeta(p))
	}

	return &Extractor{
		placeTypes: builder.Build(PlaceTypes),
		places:     regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		fold:       cases.Lower(language.Und),
	}
}

// Extract returns a sorted, lowercase, duplicate-free keyword list. It is pure:
// the same description always yields the same output.
func (e *Extractor) Extract(description string) []string {
	if strings.TrimSpace(description) == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	add := func(s string) {
		k := strings.TrimSpace(e.fold.String(s))
		if k != "" {
			seen[k] = struct{}{}
		}
	}

	e.mu.Lock()
	hits := e.placeTypes.FindAll(description)
	e.mu.Unlock()
	for _, m := range hits {
		add(PlaceTypes[m.Pattern()])
	}

	for _, m := range e.places.FindAllString(description, -1) {
		add(m)
	}

	for _, run := range capitalizedRun.FindAllString(description, -1) {
		run = trimDemonstrative(run)
		if len(run) > 3 {
			add(run)
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// A leading demonstrative is dropped from a run; a run made only of one is discarded.
func trimDemonstrative(run string) string {
	first, rest, found := strings.Cut(run, " ")
	if _, ok := demonstratives[first]; ok {
		if !found {
			return ""
		}
		return rest
	}
	return run
}

// SearchQuery joins at most limit keywords into a catalog text query.
func SearchQuery(keywords []string, limit int) string {
	if limit > 0 && len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return strings.Join(keywords, " ")
}
