// Package branchkey extracts ticket keys from branch names by
// convention, e.g. "feature/ABC-123_fix-login" → "ABC-123".
package branchkey

import (
	"regexp"
	"strings"
)

// Patterns are tried in order; the first match wins. Overlapping
// conventions can disagree on ambiguous names (e.g. "123-fix-abc-45");
// the fixed priority order is the contract, not a tiebreak.
var (
	// typed branch prefix, key terminated by "_" or end of string
	prefixedKey = regexp.MustCompile(`(?:feature|bugfix|hotfix|release)/([A-Za-z]+-\d+)(?:_|$)`)
	// a key anywhere, terminated by "_" or end of string
	bareKey = regexp.MustCompile(`([A-Za-z]+-\d+)(?:_|$)`)
	// legacy convention: a bare numeric reference gets the default project code
	numericRef = regexp.MustCompile(`(?:^|/)(\d+)(?:_|$)`)
)

// Extractor turns branch names into ticket keys. DefaultProject is the
// project code prepended to bare numeric references ("42" → "ABC-42").
type Extractor struct {
	DefaultProject string
}

// Extract returns the upper-cased ticket key for branch, or "" when no
// convention matches. A PR on an unmatched branch stays unlinked.
func (e Extractor) Extract(branch string) string {
	if m := prefixedKey.FindStringSubmatch(branch); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := bareKey.FindStringSubmatch(branch); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := numericRef.FindStringSubmatch(branch); m != nil && e.DefaultProject != "" {
		return strings.ToUpper(e.DefaultProject) + "-" + m[1]
	}
	return ""
}
