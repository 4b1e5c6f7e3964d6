package overlay

import (
	"errors"
	"log/slog"

	"taskdeck/internal/model"
)

// ErrWouldCycle is returned when a parent assignment would make the
// parent relation cyclic. The store is left untouched.
var ErrWouldCycle = errors.New("parent assignment would create a cycle")

// maxAncestorDepth caps the ancestor walk so a corrupted store cannot
// loop forever.
const maxAncestorDepth = 100

// SetParent links taskID under parentID. The assignment is rejected
// when taskID equals parentID or when taskID already appears in
// parentID's ancestor chain.
func (s *Store) SetParent(taskID, parentID string) error {
	if taskID == parentID {
		slog.Warn("rejected self-parent assignment", "task", taskID)
		return ErrWouldCycle
	}

	cur := parentID
	for depth := 0; cur != "" && depth < maxAncestorDepth; depth++ {
		if cur == taskID {
			slog.Warn("rejected cyclic parent assignment", "task", taskID, "parent", parentID)
			return ErrWouldCycle
		}
		cur = s.TaskMeta(cur).ParentTicketID
	}

	return s.UpdateTaskMeta(taskID, func(m *model.TaskMetadata) {
		m.ParentTicketID = parentID
	})
}

// RemoveParent detaches taskID from its parent unconditionally.
func (s *Store) RemoveParent(taskID string) error {
	return s.UpdateTaskMeta(taskID, func(m *model.TaskMetadata) {
		m.ParentTicketID = ""
	})
}
