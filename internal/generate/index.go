package generate

import (
	"sort"
	"strings"
)

// SearchIndex maps lowercase whitespace-separated words to the paths whose
// content contained them. Entries are only added; a rewritten file keeps the
// words of its earlier versions.
type SearchIndex struct {
	words map[string]map[string]struct{}
}

// NewSearchIndex returns an empty index.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{words: make(map[string]map[string]struct{})}
}

// Add indexes content under path.
func (x *SearchIndex) Add(path, content string) {
	for _, w := range strings.Fields(strings.ToLower(content)) {
		set, ok := x.words[w]
		if !ok {
			set = make(map[string]struct{})
			x.words[w] = set
		}
		set[path] = struct{}{}
	}
}

// Lookup returns the sorted paths containing word.
func (x *SearchIndex) Lookup(word string) []string {
	set := x.words[strings.ToLower(word)]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct words.
func (x *SearchIndex) Len() int { return len(x.words) }
