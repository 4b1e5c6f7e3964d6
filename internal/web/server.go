// Package web serves the dashboard over HTTP for non-terminal
// consumers. Read endpoints return the reconciled snapshot; write
// endpoints mutate the overlay or operate on local branches.
package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"taskdeck/internal/dashboard"
)

// Server is the taskdeck API server.
type Server struct {
	service *dashboard.Service
	logger  *slog.Logger
	router  *gin.Engine
}

// NewServer creates the API server around a dashboard service.
func NewServer(service *dashboard.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		service: service,
		logger:  logger,
		router:  router,
	}

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleTasks)
		api.GET("/review-inbox", s.handleReviewInbox)
		api.POST("/refresh", s.handleRefresh)

		api.PUT("/tasks/:id/parent", s.handleSetParent)
		api.DELETE("/tasks/:id/parent", s.handleRemoveParent)
		api.POST("/tasks/:id/hide", s.handleHideTask)
		api.POST("/tasks/:id/unhide", s.handleUnhideTask)
		api.PUT("/tasks/:id/notes", s.handleNotes)
		api.PUT("/tasks/:id/sections", s.handleSections)

		api.POST("/prs/:id/hide", s.handleHidePR)
		api.POST("/prs/:id/unhide", s.handleUnhidePR)

		api.POST("/branches/push", s.handlePush)
		api.POST("/branches/pull", s.handlePull)
		api.POST("/branches/delete", s.handleDeleteBranch)
	}

	return s
}

// Run starts the server on addr, blocking until it exits.
func (s *Server) Run(addr string) error {
	s.logger.Info("api server listening", "addr", addr)
	return s.router.Run(addr)
}
