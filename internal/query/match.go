package query

import (
	"strings"

	"github.com/wolfman30/slot-watch/internal/textnorm"
)

// WordWiseLooseMatch reports whether every word of needle loosely matches some
// word of haystack. Both arguments must already be normalized.
func WordWiseLooseMatch(haystack, needle string) bool {
	nWords := textnorm.Words(needle)
	if len(nWords) == 0 {
		return false
	}
	hWords := textnorm.Words(haystack)
	for _, n := range nWords {
		matched := false
		for _, h := range hWords {
			if wordMatches(h, n) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func wordMatches(h, n string) bool {
	if (n == "1" && h == "i") || (n == "2" && h == "ii") || (n == "i" && h == "1") || (n == "ii" && h == "2") {
		return true
	}
	// Short needles like "ct" must not match inside unrelated words such as "oct".
	if len(n) <= 2 {
		return h == n || strings.HasPrefix(h, n)
	}
	if strings.Contains(h, n) {
		return true
	}
	if len(h) >= 3 && strings.Contains(n, h) {
		return true
	}
	return len(h) >= 5 && len(n) >= 5 && h[:5] == n[:5]
}

// matcher holds the alias candidates of one query so they are expanded once.
type matcher struct {
	empty      bool
	candidates []string
}

func newMatcher(rawQuery string) matcher {
	if strings.TrimSpace(rawQuery) == "" {
		return matcher{empty: true}
	}
	return matcher{candidates: textnorm.ExpandAliases(rawQuery)}
}

// matches is the loose text match of an item against the query. An empty
// query matches everything.
func (m matcher) matches(it Item) bool {
	if m.empty {
		return true
	}
	for _, candidate := range m.candidates {
		if WordWiseLooseMatch(it.combined, candidate) {
			return true
		}
	}
	return false
}
