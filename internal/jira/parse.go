package jira

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"taskdeck/internal/model"
)

// jiraTimeFormat is Jira's "updated" timestamp layout.
const jiraTimeFormat = "2006-01-02T15:04:05.000-0700"

func parseIssue(issue gjson.Result, baseURL string) model.Ticket {
	fields := issue.Get("fields")
	key := issue.Get("key").String()

	t := model.Ticket{
		ID:          issue.Get("id").String(),
		Key:         key,
		Title:       fields.Get("summary").String(),
		Status:      fields.Get("status.name").String(),
		IssueType:   fields.Get("issuetype.name").String(),
		Assignee:    fields.Get("assignee.displayName").String(),
		Priority:    fields.Get("priority.name").String(),
		InSprint:    inSprint(fields),
		Description: flattenDescription(fields.Get("description")),
		URL:         baseURL + "/browse/" + key,
	}

	if raw := fields.Get("updated").String(); raw != "" {
		if ts, err := parseTime(raw); err == nil {
			t.UpdatedAt = &ts
		}
	}
	return t
}

func parseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(jiraTimeFormat, raw); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// The public schema does not guarantee a stable sprint field: classic
// projects use a greenhopper custom field of rendered strings, next-gen
// projects a structured array, some a single object. Checks run in
// order; the first one that applies decides.
type sprintCheck func(fields gjson.Result) (in, ok bool)

var sprintChecks = []sprintCheck{
	activeSprintEntry,
	anySprintEntry,
	sprintObject,
	customFieldMentionsSprint,
	sprintFieldPresent,
}

func inSprint(fields gjson.Result) bool {
	for _, check := range sprintChecks {
		if in, ok := check(fields); ok {
			return in
		}
	}
	return false
}

// sprintCollections gathers every field that looks like a collection of
// sprints: the "sprint" field itself plus sprint-shaped custom fields.
func sprintCollections(fields gjson.Result) []gjson.Result {
	var cols []gjson.Result
	if s := fields.Get("sprint"); s.IsArray() {
		cols = append(cols, s)
	}
	fields.ForEach(func(k, v gjson.Result) bool {
		if strings.HasPrefix(k.String(), "customfield_") && v.IsArray() && looksLikeSprints(v) {
			cols = append(cols, v)
		}
		return true
	})
	return cols
}

func looksLikeSprints(arr gjson.Result) bool {
	first := arr.Get("0")
	if first.IsObject() {
		return first.Get("state").Exists() || first.Get("boardId").Exists()
	}
	if first.Type == gjson.String {
		return strings.Contains(strings.ToLower(first.String()), "sprint")
	}
	return false
}

func entryActive(entry gjson.Result) bool {
	if entry.IsObject() {
		return strings.EqualFold(entry.Get("state").String(), "active")
	}
	return strings.Contains(strings.ToLower(entry.String()), "state=active")
}

func activeSprintEntry(fields gjson.Result) (bool, bool) {
	for _, col := range sprintCollections(fields) {
		active := false
		col.ForEach(func(_, entry gjson.Result) bool {
			if entryActive(entry) {
				active = true
				return false
			}
			return true
		})
		if active {
			return true, true
		}
	}
	return false, false
}

func anySprintEntry(fields gjson.Result) (bool, bool) {
	for _, col := range sprintCollections(fields) {
		if len(col.Array()) > 0 {
			return true, true
		}
	}
	return false, false
}

func sprintObject(fields gjson.Result) (bool, bool) {
	if fields.Get("sprint").IsObject() {
		return true, true
	}
	return false, false
}

func customFieldMentionsSprint(fields gjson.Result) (bool, bool) {
	found := false
	fields.ForEach(func(k, v gjson.Result) bool {
		if strings.HasPrefix(k.String(), "customfield_") &&
			v.Type == gjson.String &&
			strings.Contains(strings.ToLower(v.String()), "sprint") {
			found = true
			return false
		}
		return true
	})
	return found, found
}

func sprintFieldPresent(fields gjson.Result) (bool, bool) {
	s := fields.Get("sprint")
	if s.Exists() && s.Type != gjson.Null {
		return true, true
	}
	return false, false
}

// flattenDescription reduces a description to plain text. Plain-string
// descriptions pass through; rich documents are walked depth-first,
// concatenating text leaves with paragraph breaks.
func flattenDescription(node gjson.Result) string {
	if node.Type == gjson.String {
		return node.String()
	}
	if !node.Exists() || node.Type == gjson.Null {
		return ""
	}
	var b strings.Builder
	walkDoc(node, &b)
	return strings.TrimSpace(b.String())
}

func walkDoc(node gjson.Result, b *strings.Builder) {
	if text := node.Get("text"); text.Exists() {
		b.WriteString(text.String())
	}
	node.Get("content").ForEach(func(_, child gjson.Result) bool {
		walkDoc(child, b)
		return true
	})
	switch node.Get("type").String() {
	case "paragraph", "heading", "listItem", "codeBlock":
		b.WriteString("\n")
	}
}
