package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskdeck/internal/gitscan"
	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
)

func (s *Server) handleTasks(c *gin.Context) {
	snap := s.service.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, snap)
}

// handleReviewInbox serves the warm snapshot when one exists; the
// background poll keeps it fresh, and unlike tasks the inbox carries no
// overlay state a mutation could stale.
func (s *Server) handleReviewInbox(c *gin.Context) {
	snap, ok := s.service.Last()
	if !ok {
		snap = s.service.Snapshot(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{
		"review_inbox": snap.ReviewInbox,
		"rate_limited": snap.RateLimited,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	snap := s.service.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, snap)
}

type parentRequest struct {
	ParentID string `json:"parent_id" binding:"required"`
}

func (s *Server) handleSetParent(c *gin.Context) {
	var req parentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.service.Store().SetParent(c.Param("id"), req.ParentID)
	switch {
	case errors.Is(err, overlay.ErrWouldCycle):
		c.JSON(http.StatusConflict, gin.H{"error": "assignment would create a cycle"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleRemoveParent(c *gin.Context) {
	if err := s.service.Store().RemoveParent(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type hideRequest struct {
	UntilUpdated bool `json:"until_updated"`
}

func (s *Server) handleHideTask(c *gin.Context) {
	var req hideRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := model.StatusHidden
	if req.UntilUpdated {
		status = model.StatusHiddenUntilUpdated
	}
	if err := s.service.Store().Hide(c.Param("id"), status, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUnhideTask(c *gin.Context) {
	if err := s.service.Store().Unhide(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.service.Store().UpdateTaskMeta(c.Param("id"), func(m *model.TaskMetadata) {
		m.Notes = req.Notes
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// sectionsRequest uses pointers so a partial update leaves the other
// sections alone.
type sectionsRequest struct {
	ChildrenOpen *bool `json:"children_open"`
	PRsOpen      *bool `json:"prs_open"`
	BranchesOpen *bool `json:"branches_open"`
}

func (s *Server) handleSections(c *gin.Context) {
	var req sectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.service.Store().UpdateTaskMeta(c.Param("id"), func(m *model.TaskMetadata) {
		if req.ChildrenOpen != nil {
			m.ChildrenOpen = *req.ChildrenOpen
		}
		if req.PRsOpen != nil {
			m.PRsOpen = *req.PRsOpen
		}
		if req.BranchesOpen != nil {
			m.BranchesOpen = *req.BranchesOpen
		}
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setPRHidden(c *gin.Context, hidden bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pull request id"})
		return
	}
	err = s.service.Store().UpdatePRMeta(id, func(m *model.PRMetadata) {
		m.Hidden = hidden
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHidePR(c *gin.Context)   { s.setPRHidden(c, true) }
func (s *Server) handleUnhidePR(c *gin.Context) { s.setPRHidden(c, false) }

type branchRequest struct {
	RepoPath string `json:"repo_path" binding:"required"`
	Branch   string `json:"branch" binding:"required"`
}

func (s *Server) branchOp(c *gin.Context, op func(c *gin.Context, req branchRequest) error) {
	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := op(c, req); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePush(c *gin.Context) {
	s.branchOp(c, func(c *gin.Context, req branchRequest) error {
		return gitscan.Push(c.Request.Context(), req.RepoPath, req.Branch)
	})
}

func (s *Server) handlePull(c *gin.Context) {
	s.branchOp(c, func(c *gin.Context, req branchRequest) error {
		return gitscan.Pull(c.Request.Context(), req.RepoPath, req.Branch)
	})
}

func (s *Server) handleDeleteBranch(c *gin.Context) {
	s.branchOp(c, func(c *gin.Context, req branchRequest) error {
		return gitscan.DeleteBranch(c.Request.Context(), req.RepoPath, req.Branch)
	})
}
