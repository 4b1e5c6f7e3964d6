package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/internal/dashboard"
	"taskdeck/internal/gitscan"
	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
)

// — state ———————————————————————————————————————————————————————————————————

type appState int

const (
	stateNormal appState = iota
	stateNotes
	stateParent
	stateDeleteConfirm
)

// pollInterval drives background snapshot rebuilds. The PR cache's TTL
// still decides whether the host is actually hit.
const pollInterval = 30 * time.Second

// — styles ——————————————————————————————————————————————————————————————————

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	dimStyle  = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Faint(true).
			PaddingLeft(2)

	detailHeadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().Faint(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 3).
			Width(58)

	deleteModalStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(1, 3).
				Width(58)
)

// — spinner —————————————————————————————————————————————————————————————————

var spinnerFrames = []string{"|", "/", "-", "\\"}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// — messages ————————————————————————————————————————————————————————————————

type snapshotMsg struct {
	snap dashboard.Snapshot
}

type pollMsg struct{}

type branchOpMsg struct {
	op  string
	err error
}

type metaSavedMsg struct {
	err error
}

// — list rows ———————————————————————————————————————————————————————————————

// taskRow is one flattened entry of the task forest. Children appear
// indented under their parent.
type taskRow struct {
	task  model.Task
	depth int
}

func (r taskRow) Title() string {
	indent := strings.Repeat("  ", r.depth)
	line := indent + reviewGlyph(r.task) + " " + r.task.Key + "  " + r.task.Ticket.Title
	if !r.task.Visible {
		return dimStyle.Render(line)
	}
	return line
}

func (r taskRow) Description() string {
	indent := strings.Repeat("  ", r.depth)
	parts := []string{r.task.Status}
	if r.task.Priority != "" {
		parts = append(parts, r.task.Priority)
	}
	if r.task.InSprint {
		parts = append(parts, "sprint")
	}
	return indent + "  " + strings.Join(parts, " · ")
}

func (r taskRow) FilterValue() string { return r.task.Key + " " + r.task.Ticket.Title }

// reviewGlyph summarizes the task's PRs in one character.
func reviewGlyph(t model.Task) string {
	glyph := " "
	for _, pr := range t.PullRequests {
		if pr.Hidden || pr.State != "open" {
			continue
		}
		switch pr.ReviewState {
		case model.ReviewChangesRequested:
			return "✖"
		case model.ReviewApproved:
			glyph = "✔"
		default:
			if glyph == " " {
				glyph = "●"
			}
		}
	}
	return glyph
}

type inboxRow struct {
	pr model.PullRequest
}

func (r inboxRow) Title() string {
	return fmt.Sprintf("#%d  %s", r.pr.Number, r.pr.Title)
}

func (r inboxRow) Description() string { return r.pr.Repo + " · " + r.pr.Author }
func (r inboxRow) FilterValue() string { return r.pr.Title }

// — model ———————————————————————————————————————————————————————————————————

type Model struct {
	service *dashboard.Service

	list   list.Model
	rows   []taskRow
	snap   dashboard.Snapshot
	width  int
	height int

	loading      bool
	spinnerFrame int
	showInbox    bool

	state      appState
	notesInput textinput.Model
	inputErr   string
	statusMsg  string
}

func New(service *dashboard.Service) Model {
	delegate := list.NewDefaultDelegate()

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Tasks"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	ti := textinput.New()
	ti.Placeholder = "e.g. waiting on infra ticket"
	ti.CharLimit = 200

	return Model{
		service:    service,
		list:       l,
		loading:    true,
		notesInput: ti,
	}
}

// — commands ————————————————————————————————————————————————————————————————

func fetchCmd(service *dashboard.Service, force bool) tea.Cmd {
	return func() tea.Msg {
		if force {
			return snapshotMsg{snap: service.Refresh(context.Background())}
		}
		return snapshotMsg{snap: service.Snapshot(context.Background())}
	}
}

func pollCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func (m Model) mutateMetaCmd(mutate func() error) tea.Cmd {
	return func() tea.Msg {
		return metaSavedMsg{err: mutate()}
	}
}

func pushBranchCmd(branch model.LocalBranch) tea.Cmd {
	return func() tea.Msg {
		return branchOpMsg{op: "push", err: gitscan.Push(context.Background(), branch.Path, branch.Name)}
	}
}

func pullBranchCmd(branch model.LocalBranch) tea.Cmd {
	return func() tea.Msg {
		return branchOpMsg{op: "pull", err: gitscan.Pull(context.Background(), branch.Path, branch.Name)}
	}
}

func deleteBranchCmd(branch model.LocalBranch) tea.Cmd {
	return func() tea.Msg {
		return branchOpMsg{op: "delete", err: gitscan.DeleteBranch(context.Background(), branch.Path, branch.Name)}
	}
}

func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		cmd.Run()
		return nil
	}
}

// flatten walks the task forest depth-first into list rows.
func flatten(tasks []model.Task, depth int, out []taskRow) []taskRow {
	for _, t := range tasks {
		out = append(out, taskRow{task: t, depth: depth})
		if t.Meta.ChildrenOpen {
			out = flatten(t.Children, depth+1, out)
		}
	}
	return out
}

func (m *Model) buildItems() {
	if m.showInbox {
		items := make([]list.Item, len(m.snap.ReviewInbox))
		for i, pr := range m.snap.ReviewInbox {
			items[i] = inboxRow{pr: pr}
		}
		m.list.Title = "Review Inbox"
		m.list.SetItems(items)
		return
	}

	m.rows = flatten(m.snap.Tasks, 0, nil)
	items := make([]list.Item, len(m.rows))
	for i, r := range m.rows {
		items[i] = r
	}
	m.list.Title = "Tasks"
	if m.snap.RateLimited {
		m.list.Title = "Tasks (rate limited)"
	}
	m.list.SetItems(items)
}

// — tea.Model ———————————————————————————————————————————————————————————————

func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.service, false), tickCmd(), pollCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		lw, lh := m.listDimensions()
		m.list.SetSize(lw, lh)
		return m, nil

	case tickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, tickCmd()

	case pollMsg:
		return m, tea.Batch(fetchCmd(m.service, false), pollCmd())

	case snapshotMsg:
		m.loading = false
		m.snap = msg.snap
		m.buildItems()
		return m, nil

	case branchOpMsg:
		if msg.err != nil {
			m.statusMsg = errStyle.Render(fmt.Sprintf("%s failed: %v", msg.op, msg.err))
			m.state = stateNormal
			return m, nil
		}
		m.statusMsg = okStyle.Render(msg.op + " done")
		m.state = stateNormal
		return m, fetchCmd(m.service, false)

	case metaSavedMsg:
		if msg.err != nil {
			m.statusMsg = errStyle.Render(msg.err.Error())
			return m, nil
		}
		return m, fetchCmd(m.service, false)
	}

	switch m.state {
	case stateNotes:
		return m.updateNotes(msg)
	case stateParent:
		return m.updateParent(msg)
	case stateDeleteConfirm:
		return m.updateDeleteConfirm(msg)
	default:
		return m.updateNormal(msg)
	}
}

func (m Model) updateNormal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.statusMsg = ""
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, fetchCmd(m.service, true)
		case "v":
			m.showInbox = !m.showInbox
			m.buildItems()
			return m, nil
		case "o":
			if m.showInbox {
				if pr := m.selectedInboxPR(); pr != nil && pr.URL != "" {
					return m, openURLCmd(pr.URL)
				}
				return m, nil
			}
			if t := m.selectedTask(); t != nil && t.URL != "" {
				return m, openURLCmd(t.URL)
			}
			return m, nil
		case "O":
			if t := m.selectedTask(); t != nil && len(t.PullRequests) > 0 && t.PullRequests[0].URL != "" {
				return m, openURLCmd(t.PullRequests[0].URL)
			}
			return m, nil
		case "h":
			if t := m.selectedTask(); t != nil {
				store := m.service.Store()
				id := t.ID
				return m, m.mutateMetaCmd(func() error {
					return store.Hide(id, model.StatusHidden, time.Now())
				})
			}
			return m, nil
		case "u":
			if t := m.selectedTask(); t != nil {
				store := m.service.Store()
				id := t.ID
				return m, m.mutateMetaCmd(func() error {
					return store.Hide(id, model.StatusHiddenUntilUpdated, time.Now())
				})
			}
			return m, nil
		case "s":
			if t := m.selectedTask(); t != nil {
				store := m.service.Store()
				id := t.ID
				return m, m.mutateMetaCmd(func() error {
					return store.Unhide(id)
				})
			}
			return m, nil
		case "n":
			if t := m.selectedTask(); t != nil {
				m.state = stateNotes
				m.inputErr = ""
				m.notesInput.Placeholder = "e.g. waiting on infra ticket"
				m.notesInput.SetValue(t.Meta.Notes)
				m.notesInput.Focus()
				return m, textinput.Blink
			}
			return m, nil
		case "1", "2", "3":
			if t := m.selectedTask(); t != nil {
				return m, m.toggleSectionCmd(t, msg.String())
			}
			return m, nil
		case "m":
			if t := m.selectedTask(); t != nil {
				m.state = stateParent
				m.inputErr = ""
				m.notesInput.Placeholder = "parent ticket key, e.g. ABC-12"
				m.notesInput.SetValue("")
				m.notesInput.Focus()
				return m, textinput.Blink
			}
			return m, nil
		case "M":
			if t := m.selectedTask(); t != nil {
				store := m.service.Store()
				id := t.ID
				return m, m.mutateMetaCmd(func() error {
					return store.RemoveParent(id)
				})
			}
			return m, nil
		case "P":
			if b := m.selectedBranch(); b != nil && b.Path != "" {
				m.statusMsg = warnStyle.Render("pushing " + b.Name + "…")
				return m, pushBranchCmd(*b)
			}
			return m, nil
		case "p":
			if b := m.selectedBranch(); b != nil && b.Path != "" {
				m.statusMsg = warnStyle.Render("pulling " + b.Name + "…")
				return m, pullBranchCmd(*b)
			}
			return m, nil
		case "d":
			if b := m.selectedBranch(); b != nil && b.Path != "" {
				m.state = stateDeleteConfirm
				m.inputErr = ""
				return m, nil
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) toggleSectionCmd(t *model.Task, key string) tea.Cmd {
	store := m.service.Store()
	id := t.ID
	return m.mutateMetaCmd(func() error {
		return store.UpdateTaskMeta(id, func(meta *model.TaskMetadata) {
			switch key {
			case "1":
				meta.ChildrenOpen = !meta.ChildrenOpen
			case "2":
				meta.PRsOpen = !meta.PRsOpen
			case "3":
				meta.BranchesOpen = !meta.BranchesOpen
			}
		})
	})
}

func (m Model) updateNotes(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.state = stateNormal
			m.inputErr = ""
			m.notesInput.Blur()
			return m, nil
		case "enter":
			t := m.selectedTask()
			if t == nil {
				m.state = stateNormal
				return m, nil
			}
			notes := m.notesInput.Value()
			store := m.service.Store()
			id := t.ID
			m.state = stateNormal
			m.notesInput.Blur()
			return m, m.mutateMetaCmd(func() error {
				return store.UpdateTaskMeta(id, func(meta *model.TaskMetadata) {
					meta.Notes = notes
				})
			})
		}
	}
	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

func (m Model) updateParent(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.state = stateNormal
			m.inputErr = ""
			m.notesInput.Blur()
			return m, nil
		case "enter":
			t := m.selectedTask()
			if t == nil {
				m.state = stateNormal
				return m, nil
			}
			key := strings.TrimSpace(m.notesInput.Value())
			if key == "" {
				m.inputErr = "parent key cannot be empty"
				return m, nil
			}
			parent := findByKey(m.snap.Tasks, key)
			if parent == nil {
				m.inputErr = "no fetched ticket with key " + strings.ToUpper(key)
				return m, nil
			}
			store := m.service.Store()
			childID, parentID := t.ID, parent.ID
			m.state = stateNormal
			m.notesInput.Blur()
			return m, m.mutateMetaCmd(func() error {
				if err := store.SetParent(childID, parentID); err != nil {
					if err == overlay.ErrWouldCycle {
						return fmt.Errorf("cannot nest %s under its own descendant", key)
					}
					return err
				}
				return nil
			})
		}
	}
	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

// findByKey walks the forest for a task with the given ticket key.
func findByKey(tasks []model.Task, key string) *model.Task {
	for i := range tasks {
		if strings.EqualFold(tasks[i].Key, key) {
			return &tasks[i]
		}
		if t := findByKey(tasks[i].Children, key); t != nil {
			return t
		}
	}
	return nil
}

func (m Model) updateDeleteConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "n", "N":
			m.state = stateNormal
			m.inputErr = ""
			return m, nil
		case "enter", "y", "Y":
			b := m.selectedBranch()
			if b == nil {
				m.state = stateNormal
				return m, nil
			}
			m.statusMsg = warnStyle.Render("deleting " + b.Name + "…")
			return m, deleteBranchCmd(*b)
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	if m.loading {
		spin := spinnerFrames[m.spinnerFrame]
		return lipgloss.NewStyle().Padding(1, 2).Render(spin + " Loading tasks…")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), m.renderDetail())
	base := lipgloss.JoinVertical(lipgloss.Left, body, m.renderHelp())

	switch m.state {
	case stateNotes:
		return m.renderNotesModalOver(base)
	case stateParent:
		return m.renderParentModalOver(base)
	case stateDeleteConfirm:
		return m.renderDeleteConfirmOver(base)
	}
	return base
}

// — layout helpers ——————————————————————————————————————————————————————————

func (m Model) listDimensions() (width, height int) {
	return m.width / 3, m.height - 2
}

func (m Model) renderDetail() string {
	lw, _ := m.listDimensions()
	dw := m.width - lw
	dh := m.height - 2

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		PaddingLeft(3).
		PaddingRight(2).
		Width(dw - 1).
		Height(dh)

	contentWidth := (dw - 1) - 3 - 2

	if m.showInbox {
		return style.Render(m.renderInboxDetail(contentWidth))
	}

	t := m.selectedTask()
	if t == nil {
		return style.Render(dimStyle.Render("No tasks"))
	}

	row := func(lbl, val string) string {
		return labelStyle.Render(lbl) + val + "\n"
	}

	sep := dimStyle.Render(strings.Repeat("─", contentWidth))

	var b strings.Builder
	b.WriteString(detailHeadStyle.Render(t.Key) + "  " + truncate(t.Ticket.Title, contentWidth-len(t.Key)-2) + "\n\n")
	b.WriteString(row("Status   ", t.Status))
	if t.Priority != "" {
		b.WriteString(row("Priority ", t.Priority))
	}
	if t.IssueType != "" {
		b.WriteString(row("Type     ", t.IssueType))
	}
	if t.InSprint {
		b.WriteString(row("Sprint   ", okStyle.Render("active")))
	}
	if !t.Visible {
		switch t.Meta.HiddenStatus {
		case model.StatusHiddenUntilUpdated:
			b.WriteString(row("Hidden   ", warnStyle.Render("until updated")))
		default:
			b.WriteString(row("Hidden   ", dimStyle.Render("dismissed")))
		}
	}
	if t.Meta.Notes != "" {
		b.WriteString(row("Notes    ", t.Meta.Notes))
	}
	b.WriteString("\n" + sep + "\n\n")

	b.WriteString(m.renderPRSection(t, contentWidth))
	b.WriteString(m.renderBranchSection(t))
	b.WriteString(m.renderChildSection(t))

	if m.statusMsg != "" {
		b.WriteString("\n" + m.statusMsg + "\n")
	}

	return style.Render(b.String())
}

func (m Model) renderPRSection(t *model.Task, contentWidth int) string {
	var b strings.Builder
	b.WriteString(boldStyle.Render(fmt.Sprintf("Pull Requests (%d)", len(t.PullRequests))) + "\n")
	if !t.Meta.PRsOpen {
		b.WriteString(dimStyle.Render("  collapsed · 2 to expand") + "\n\n")
		return b.String()
	}
	if len(t.PullRequests) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n\n")
		return b.String()
	}
	for _, pr := range t.PullRequests {
		line := fmt.Sprintf("  #%d %s", pr.Number, truncate(pr.Title, contentWidth-12))
		if pr.Hidden {
			b.WriteString(dimStyle.Render(line+"  (hidden)") + "\n")
			continue
		}
		b.WriteString(line + "\n")
		b.WriteString("    " + reviewLabel(pr) + dimStyle.Render("  "+pr.Repo) + "\n")
		if pr.LocalStatus != nil {
			b.WriteString("    " + trackLabel(*pr.LocalStatus) + dimStyle.Render("  "+pr.LocalStatus.Name) + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderBranchSection(t *model.Task) string {
	var b strings.Builder
	b.WriteString(boldStyle.Render(fmt.Sprintf("Branches (%d)", len(t.LocalBranches))) + "\n")
	if !t.Meta.BranchesOpen {
		b.WriteString(dimStyle.Render("  collapsed · 3 to expand") + "\n\n")
		return b.String()
	}
	if len(t.LocalBranches) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n\n")
		return b.String()
	}
	for _, br := range t.LocalBranches {
		b.WriteString("  " + br.Name + dimStyle.Render("  ("+br.Repo+")") + "\n")
		b.WriteString("    " + trackLabel(br) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderChildSection(t *model.Task) string {
	if len(t.Children) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(boldStyle.Render(fmt.Sprintf("Subtasks (%d)", len(t.Children))) + "\n")
	if !t.Meta.ChildrenOpen {
		b.WriteString(dimStyle.Render("  collapsed · 1 to expand") + "\n")
		return b.String()
	}
	for _, c := range t.Children {
		b.WriteString("  " + c.Key + "  " + c.Status + "\n")
	}
	return b.String()
}

func (m Model) renderInboxDetail(contentWidth int) string {
	pr := m.selectedInboxPR()
	if pr == nil {
		return dimStyle.Render("Nothing waiting on your review")
	}

	row := func(lbl, val string) string {
		return labelStyle.Render(lbl) + val + "\n"
	}

	var b strings.Builder
	b.WriteString(detailHeadStyle.Render(fmt.Sprintf("#%d", pr.Number)) + "  " + truncate(pr.Title, contentWidth-8) + "\n\n")
	b.WriteString(row("Repo     ", pr.Repo))
	b.WriteString(row("Author   ", pr.Author))
	b.WriteString(row("Review   ", reviewLabel(*pr)))
	return b.String()
}

func reviewLabel(pr model.PullRequest) string {
	switch pr.ReviewState {
	case model.ReviewApproved:
		return okStyle.Render(fmt.Sprintf("✔ approved (%d/%d)", len(pr.ApprovedReviewers), pr.RequiredApprovals))
	case model.ReviewChangesRequested:
		return errStyle.Render("✖ changes requested")
	case model.ReviewPending:
		return warnStyle.Render("⏳ review pending")
	default:
		return dimStyle.Render("no reviews")
	}
}

func trackLabel(br model.LocalBranch) string {
	if !br.HasUpstream {
		return warnStyle.Render("no upstream")
	}
	switch {
	case br.Ahead > 0 && br.Behind > 0:
		return warnStyle.Render(fmt.Sprintf("↑%d ↓%d", br.Ahead, br.Behind))
	case br.Ahead > 0:
		return warnStyle.Render(fmt.Sprintf("↑%d unpushed", br.Ahead))
	case br.Behind > 0:
		return warnStyle.Render(fmt.Sprintf("↓%d behind", br.Behind))
	default:
		return okStyle.Render("up to date")
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func (m Model) renderHelp() string {
	var text string
	switch m.state {
	case stateNotes, stateParent:
		text = "Enter save   Esc cancel"
	case stateDeleteConfirm:
		text = "y/Enter confirm   n/Esc cancel"
	default:
		if m.showInbox {
			text = "↑/↓ navigate   o open PR   v back to tasks   r refresh   q quit"
		} else {
			text = "↑/↓ navigate   h hide   u until-updated   s show   n notes   m/M parent   o/O open   p/P pull/push   d delete branch   v inbox   r refresh   q quit"
		}
	}
	sep := dimStyle.Render(strings.Repeat("─", m.width))
	return sep + "\n" + helpStyle.Render(text)
}

func (m Model) renderNotesModalOver(base string) string {
	t := m.selectedTask()
	var b strings.Builder
	b.WriteString(boldStyle.Render("Notes") + "\n\n")
	if t != nil {
		b.WriteString(dimStyle.Render(t.Key) + "\n\n")
	}
	b.WriteString(m.notesInput.View() + "\n")
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Saved locally · never sent to the ticket system"))

	modal := modalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

func (m Model) renderParentModalOver(base string) string {
	t := m.selectedTask()
	var b strings.Builder
	b.WriteString(boldStyle.Render("Set Parent") + "\n\n")
	if t != nil {
		b.WriteString(dimStyle.Render(t.Key) + "\n\n")
	}
	b.WriteString("Parent ticket key\n")
	b.WriteString(m.notesInput.View() + "\n")
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Nests this task under the parent · M detaches"))

	modal := modalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

func (m Model) renderDeleteConfirmOver(base string) string {
	b := m.selectedBranch()
	var sb strings.Builder
	sb.WriteString(errStyle.Render("Delete Branch") + "\n\n")
	if b != nil {
		sb.WriteString(labelStyle.Render("Branch   ") + b.Name + "\n")
		sb.WriteString(labelStyle.Render("Clone    ") + b.Path + "\n\n")
		if b.Ahead > 0 {
			sb.WriteString(warnStyle.Render(fmt.Sprintf("⚠  %d unpushed commit(s)", b.Ahead)) + "\n\n")
		}
	}
	sb.WriteString("Switches the clone to its default branch first.\n")
	if m.inputErr != "" {
		sb.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	sb.WriteString("\n" + dimStyle.Render("y/Enter to confirm · Esc/n to cancel"))

	modal := deleteModalStyle.Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

func (m Model) selectedTask() *model.Task {
	if m.showInbox || len(m.rows) == 0 {
		return nil
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.rows) {
		return nil
	}
	return &m.rows[idx].task
}

func (m Model) selectedBranch() *model.LocalBranch {
	t := m.selectedTask()
	if t == nil || len(t.LocalBranches) == 0 {
		return nil
	}
	return &t.LocalBranches[0]
}

func (m Model) selectedInboxPR() *model.PullRequest {
	if !m.showInbox || len(m.snap.ReviewInbox) == 0 {
		return nil
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.snap.ReviewInbox) {
		return nil
	}
	return &m.snap.ReviewInbox[idx]
}
