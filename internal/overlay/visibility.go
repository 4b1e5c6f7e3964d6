package overlay

import "taskdeck/internal/model"

// Visible computes the effective visibility of a ticket under its
// metadata. hidden-until-updated expires once the ticket's last-update
// timestamp passes the moment it was hidden; a ticket with no
// last-update timestamp can never have been "updated since", so it
// never stays hidden. Unknown status values fail open.
func Visible(t model.Ticket, m model.TaskMetadata) bool {
	switch m.HiddenStatus {
	case model.StatusVisible:
		return true
	case model.StatusHidden:
		return false
	case model.StatusHiddenUntilUpdated:
		if t.UpdatedAt == nil {
			return true
		}
		if m.HiddenSince == nil {
			return true
		}
		return t.UpdatedAt.After(*m.HiddenSince)
	default:
		return true
	}
}
