package branchkey

import "testing"

func TestExtract(t *testing.T) {
	e := Extractor{DefaultProject: "ABC"}

	tests := []struct {
		branch string
		want   string
	}{
		{"feature/ABC-123_foo", "ABC-123"},
		{"bugfix/ABC-9_typo-fix", "ABC-9"},
		{"hotfix/ops-77", "OPS-77"},
		{"release/XY-1", "XY-1"},
		{"feature/abc-123_lower-case", "ABC-123"},
		// bare key anywhere
		{"ABC-123", "ABC-123"},
		{"wip/DEF-55_spike", "DEF-55"},
		{"123-fix-abc-45", "ABC-45"}, // ambiguous; the anywhere-pattern wins by priority
		// legacy numeric reference gets the default project prefix
		{"bugfix/42_typo", "ABC-42"},
		{"99_cleanup", "ABC-99"},
		// no convention matches
		{"random-branch-name", ""},
		{"main", ""},
		{"feature/no-ticket-here", ""},
	}

	for _, tt := range tests {
		if got := e.Extract(tt.branch); got != tt.want {
			t.Errorf("Extract(%q) = %q, want %q", tt.branch, got, tt.want)
		}
	}
}

func TestExtractNoDefaultProject(t *testing.T) {
	e := Extractor{}
	if got := e.Extract("bugfix/42_typo"); got != "" {
		t.Errorf("numeric reference without a default project should stay unlinked, got %q", got)
	}
	if got := e.Extract("feature/ABC-1_x"); got != "ABC-1" {
		t.Errorf("Extract = %q, want ABC-1", got)
	}
}
