package reconcile

import (
	"sort"
	"strings"

	"taskdeck/internal/config"
	"taskdeck/internal/model"
)

// Rank positions for values absent from the tables: they sort last.
const (
	unknownStatusRank   = 9
	unknownPriorityRank = 9
	unknownTypeRank     = 7
)

// Ranks holds the workflow ordering tables, keys lower-cased.
type Ranks struct {
	Status    map[string]int
	Priority  map[string]int
	IssueType map[string]int
}

// RanksFrom normalizes configured rank tables for lookup.
func RanksFrom(cfg config.RankTables) Ranks {
	return Ranks{
		Status:    lowerKeys(cfg.Status),
		Priority:  lowerKeys(cfg.Priority),
		IssueType: lowerKeys(cfg.IssueType),
	}
}

func lowerKeys(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Sort orders tasks in place, recursing into children with the same
// comparator. The sort is stable: tasks equal on every key keep their
// input order.
func Sort(tasks []model.Task, r Ranks) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(&tasks[i], &tasks[j], r)
	})
	for i := range tasks {
		Sort(tasks[i].Children, r)
	}
}

// less applies the six ordering keys strictly in sequence: effective
// visibility, paused-before-dismissed among hidden, sprint membership,
// status rank, priority rank, issue-type rank.
func less(a, b *model.Task, r Ranks) bool {
	if a.Visible != b.Visible {
		return a.Visible
	}
	if !a.Visible {
		ap := a.Meta.HiddenStatus == model.StatusHiddenUntilUpdated
		bp := b.Meta.HiddenStatus == model.StatusHiddenUntilUpdated
		if ap != bp {
			return ap
		}
	}
	if a.InSprint != b.InSprint {
		return a.InSprint
	}
	if sa, sb := rank(r.Status, a.Status, unknownStatusRank), rank(r.Status, b.Status, unknownStatusRank); sa != sb {
		return sa < sb
	}
	if pa, pb := rank(r.Priority, a.Priority, unknownPriorityRank), rank(r.Priority, b.Priority, unknownPriorityRank); pa != pb {
		return pa < pb
	}
	if ta, tb := rank(r.IssueType, a.IssueType, unknownTypeRank), rank(r.IssueType, b.IssueType, unknownTypeRank); ta != tb {
		return ta < tb
	}
	return false
}

func rank(table map[string]int, value string, unknown int) int {
	if n, ok := table[strings.ToLower(strings.TrimSpace(value))]; ok {
		return n
	}
	return unknown
}
