package config

// Default returns the built-in configuration. The rank tables mirror a
// common agile workflow; installations with different vocabularies
// override them in config.yaml.
func Default() *Config {
	return &Config{
		Jira: JiraConfig{
			ClosedStatuses: []string{"Done", "Closed", "Rejected", "Resolved"},
		},
		GitHub: GitHubConfig{
			ProbeLimit:        15,
			RequiredApprovals: map[string]int{},
		},
		Ranks: RankTables{
			Status: map[string]int{
				"in progress": 1,
				"ready":       2,
				"open":        3,
				"to do":       3,
				"todo":        3,
				"qa":          4,
				"review":      5,
				"on hold":     6,
				"done":        7,
				"rejected":    8,
			},
			Priority: map[string]int{
				"blocker":  1,
				"critical": 2,
				"urgent":   3,
				"major":    4,
				"high":     5,
				"minor":    6,
				"low":      7,
				"trivial":  8,
			},
			IssueType: map[string]int{
				"bug":      1,
				"devbug":   2,
				"story":    3,
				"task":     4,
				"sub-task": 5,
				"epic":     6,
			},
		},
	}
}
