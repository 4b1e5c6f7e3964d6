package gitscan

import "testing"

func TestParseRefs(t *testing.T) {
	raw := "feature/ABC-1_fix\torigin/feature/ABC-1_fix\t[ahead 2, behind 1]\tfix the login\n" +
		"main\torigin/main\t\tinitial commit\n" +
		"local-only\t\t\twip\n" +
		"stale\torigin/stale\t[gone]\told work\n"

	branches := parseRefs(raw, "/home/dev/src/repo", "git@github.com:org/repo.git")
	if len(branches) != 4 {
		t.Fatalf("expected 4 branches, got %d", len(branches))
	}

	b := branches[0]
	if b.Name != "feature/ABC-1_fix" || b.Ahead != 2 || b.Behind != 1 || !b.HasUpstream {
		t.Errorf("tracked branch parsed wrong: %+v", b)
	}
	if b.LastSubject != "fix the login" {
		t.Errorf("subject: %q", b.LastSubject)
	}
	if b.Repo != "repo" || b.Path != "/home/dev/src/repo" || b.RemoteURL != "git@github.com:org/repo.git" {
		t.Errorf("repo identity: %+v", b)
	}

	if up := branches[1]; !up.HasUpstream || up.Ahead != 0 || up.Behind != 0 {
		t.Errorf("up-to-date branch parsed wrong: %+v", up)
	}
	if lo := branches[2]; lo.HasUpstream {
		t.Errorf("branch without upstream marked as tracked: %+v", lo)
	}
	if gone := branches[3]; gone.HasUpstream {
		t.Errorf("branch with gone upstream must not count as remote-backed: %+v", gone)
	}
}

func TestParseTrack(t *testing.T) {
	tests := []struct {
		in            string
		ahead, behind int
	}{
		{"[ahead 2, behind 1]", 2, 1},
		{"[ahead 5]", 5, 0},
		{"[behind 3]", 0, 3},
		{"", 0, 0},
		{"[gone]", 0, 0},
	}
	for _, tt := range tests {
		ahead, behind := parseTrack(tt.in)
		if ahead != tt.ahead || behind != tt.behind {
			t.Errorf("parseTrack(%q) = %d/%d, want %d/%d", tt.in, ahead, behind, tt.ahead, tt.behind)
		}
	}
}

func TestOwnerRepo(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"git@github.com:org/repo.git", "org/repo"},
		{"https://github.com/org/repo.git", "org/repo"},
		{"https://github.com/org/repo", "org/repo"},
		{"ssh://git@github.com/org/repo.git", "org/repo"},
		{"https://gitlab.example.com/group/project.git", "group/project"},
		{"", ""},
		{"not-a-remote", ""},
	}
	for _, tt := range tests {
		if got := OwnerRepo(tt.url); got != tt.want {
			t.Errorf("OwnerRepo(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
