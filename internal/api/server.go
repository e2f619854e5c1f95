// Package api exposes the generation engine over HTTP: synchronous and
// streaming generation, job submission and polling, file downloads, and
// operational stats.
package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/zimalabs/genflow/internal/jobs"
	"github.com/zimalabs/genflow/internal/orchestrator"
	"github.com/zimalabs/genflow/internal/workspace"
)

// sessionIDPattern bounds what we accept as a session identifier; it also
// becomes a path segment under the output root.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	orch      *orchestrator.Orchestrator
	registry  *jobs.Registry
	workspace *workspace.Workspace
}

// NewServer creates a Server over the engine's subsystems.
func NewServer(orch *orchestrator.Orchestrator, registry *jobs.Registry, ws *workspace.Workspace) *Server {
	return &Server{
		orch:      orch,
		registry:  registry,
		workspace: ws,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/generate", s.handleGenerate)
		api.POST("/generate/stream", s.handleGenerateStream)
		api.POST("/generate/parallel", s.handleGenerateParallel)
		api.POST("/title", s.handleTitle)
		api.POST("/summarize", s.handleSummarize)

		api.POST("/jobs", s.handleSubmitJob)
		api.GET("/jobs/:id", s.handleJobStatus)
		api.GET("/jobs/:id/wait", s.handleJobWait)
		api.DELETE("/jobs/:id", s.handleCancelJob)

		api.GET("/files/*path", s.handleDownload)

		api.GET("/stats", s.handleStats)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cache":     s.orch.Cache().Stats(),
		"warm_pool": s.orch.Pool().Stats(),
		"jobs":      s.registry.Len(),
	})
}

func validSessionID(id string) bool {
	return id == "" || sessionIDPattern.MatchString(id)
}
