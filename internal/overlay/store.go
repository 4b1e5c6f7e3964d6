// Package overlay persists the client-side metadata layered onto
// server-sourced data: parent/child links, notes, hidden state, section
// flags. Tickets and PRs are ephemeral; this store is the only state
// that survives between sessions.
//
// The database lives at ~/.taskdeck/taskdeck.db by default.
package overlay

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"taskdeck/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_meta (
	ticket_id TEXT PRIMARY KEY,
	parent_ticket_id TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	hidden_status TEXT NOT NULL DEFAULT 'visible',
	hidden_since DATETIME,
	children_open INTEGER NOT NULL DEFAULT 1,
	prs_open INTEGER NOT NULL DEFAULT 1,
	branches_open INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS pr_meta (
	pr_id INTEGER PRIMARY KEY,
	hidden INTEGER NOT NULL DEFAULT 0,
	cached_branch TEXT
);

CREATE INDEX IF NOT EXISTS idx_task_meta_parent ON task_meta(parent_ticket_id);
`

// Store wraps the overlay database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the overlay database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create overlay dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open overlay db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create overlay schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// TaskMeta returns the metadata for a ticket, defaults when the ticket
// has never been touched. Malformed rows degrade to defaults.
func (s *Store) TaskMeta(ticketID string) model.TaskMetadata {
	row := s.db.QueryRow(`
		SELECT parent_ticket_id, notes, hidden_status, hidden_since,
		       children_open, prs_open, branches_open
		FROM task_meta WHERE ticket_id = ?`, ticketID)

	m, err := scanTaskMeta(ticketID, row)
	if err != nil {
		return model.DefaultTaskMetadata(ticketID)
	}
	return m
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskMeta(ticketID string, row rowScanner) (model.TaskMetadata, error) {
	m := model.TaskMetadata{TicketID: ticketID}
	var hiddenSince sql.NullTime
	var status string
	err := row.Scan(&m.ParentTicketID, &m.Notes, &status, &hiddenSince,
		&m.ChildrenOpen, &m.PRsOpen, &m.BranchesOpen)
	if err != nil {
		return m, err
	}
	switch model.HiddenStatus(status) {
	case model.StatusVisible, model.StatusHidden, model.StatusHiddenUntilUpdated:
		m.HiddenStatus = model.HiddenStatus(status)
	default:
		m.HiddenStatus = model.StatusVisible
	}
	if hiddenSince.Valid {
		t := hiddenSince.Time
		m.HiddenSince = &t
	}
	return m, nil
}

// AllTaskMeta returns every stored task metadata row keyed by ticket id.
func (s *Store) AllTaskMeta() (map[string]model.TaskMetadata, error) {
	rows, err := s.db.Query(`
		SELECT ticket_id, parent_ticket_id, notes, hidden_status, hidden_since,
		       children_open, prs_open, branches_open
		FROM task_meta`)
	if err != nil {
		return nil, fmt.Errorf("load task metadata: %w", err)
	}
	defer rows.Close()

	out := map[string]model.TaskMetadata{}
	for rows.Next() {
		var id string
		m := model.TaskMetadata{}
		var hiddenSince sql.NullTime
		var status string
		if err := rows.Scan(&id, &m.ParentTicketID, &m.Notes, &status, &hiddenSince,
			&m.ChildrenOpen, &m.PRsOpen, &m.BranchesOpen); err != nil {
			continue // malformed row: treated as absent
		}
		m.TicketID = id
		switch model.HiddenStatus(status) {
		case model.StatusVisible, model.StatusHidden, model.StatusHiddenUntilUpdated:
			m.HiddenStatus = model.HiddenStatus(status)
		default:
			m.HiddenStatus = model.StatusVisible
		}
		if hiddenSince.Valid {
			t := hiddenSince.Time
			m.HiddenSince = &t
		}
		out[id] = m
	}
	return out, rows.Err()
}

// UpdateTaskMeta applies mutate to the stored metadata for ticketID
// (starting from defaults for untouched tickets) and persists the
// result. Fields the mutation does not touch keep their value.
func (s *Store) UpdateTaskMeta(ticketID string, mutate func(*model.TaskMetadata)) error {
	m := s.TaskMeta(ticketID)
	mutate(&m)

	var hiddenSince any
	if m.HiddenSince != nil {
		hiddenSince = m.HiddenSince.UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO task_meta (ticket_id, parent_ticket_id, notes, hidden_status, hidden_since,
		                       children_open, prs_open, branches_open)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			parent_ticket_id = excluded.parent_ticket_id,
			notes = excluded.notes,
			hidden_status = excluded.hidden_status,
			hidden_since = excluded.hidden_since,
			children_open = excluded.children_open,
			prs_open = excluded.prs_open,
			branches_open = excluded.branches_open`,
		ticketID, m.ParentTicketID, m.Notes, string(m.HiddenStatus), hiddenSince,
		m.ChildrenOpen, m.PRsOpen, m.BranchesOpen)
	if err != nil {
		return fmt.Errorf("save task metadata: %w", err)
	}
	return nil
}

// Hide marks a ticket hidden or hidden-until-updated. Entering
// hidden-until-updated records the current time so the task resurfaces
// on the next upstream change.
func (s *Store) Hide(ticketID string, status model.HiddenStatus, now time.Time) error {
	return s.UpdateTaskMeta(ticketID, func(m *model.TaskMetadata) {
		m.HiddenStatus = status
		if status == model.StatusHiddenUntilUpdated {
			t := now.UTC()
			m.HiddenSince = &t
		} else {
			m.HiddenSince = nil
		}
	})
}

// Unhide makes a ticket visible again.
func (s *Store) Unhide(ticketID string) error {
	return s.UpdateTaskMeta(ticketID, func(m *model.TaskMetadata) {
		m.HiddenStatus = model.StatusVisible
		m.HiddenSince = nil
	})
}

// PRMeta returns the metadata for a pull request, defaults when absent.
// A cached branch blob that fails to decode is treated as absent.
func (s *Store) PRMeta(prID int64) model.PRMetadata {
	m := model.PRMetadata{PRID: prID}
	var cached sql.NullString
	err := s.db.QueryRow(`SELECT hidden, cached_branch FROM pr_meta WHERE pr_id = ?`, prID).
		Scan(&m.Hidden, &cached)
	if err != nil {
		return model.PRMetadata{PRID: prID}
	}
	if cached.Valid && cached.String != "" {
		var b model.LocalBranch
		if json.Unmarshal([]byte(cached.String), &b) == nil {
			m.CachedBranch = &b
		}
	}
	return m
}

// AllPRMeta returns every stored PR metadata row keyed by PR id.
func (s *Store) AllPRMeta() (map[int64]model.PRMetadata, error) {
	rows, err := s.db.Query(`SELECT pr_id, hidden, cached_branch FROM pr_meta`)
	if err != nil {
		return nil, fmt.Errorf("load pr metadata: %w", err)
	}
	defer rows.Close()

	out := map[int64]model.PRMetadata{}
	for rows.Next() {
		m := model.PRMetadata{}
		var cached sql.NullString
		if err := rows.Scan(&m.PRID, &m.Hidden, &cached); err != nil {
			continue
		}
		if cached.Valid && cached.String != "" {
			var b model.LocalBranch
			if json.Unmarshal([]byte(cached.String), &b) == nil {
				m.CachedBranch = &b
			}
		}
		out[m.PRID] = m
	}
	return out, rows.Err()
}

// UpdatePRMeta applies mutate to the stored PR metadata and persists it.
func (s *Store) UpdatePRMeta(prID int64, mutate func(*model.PRMetadata)) error {
	m := s.PRMeta(prID)
	mutate(&m)

	var cached any
	if m.CachedBranch != nil {
		blob, err := json.Marshal(m.CachedBranch)
		if err == nil {
			cached = string(blob)
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO pr_meta (pr_id, hidden, cached_branch)
		VALUES (?, ?, ?)
		ON CONFLICT(pr_id) DO UPDATE SET
			hidden = excluded.hidden,
			cached_branch = excluded.cached_branch`,
		prID, m.Hidden, cached)
	if err != nil {
		return fmt.Errorf("save pr metadata: %w", err)
	}
	return nil
}
