package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zimalabs/genflow/internal/jobs"
	"github.com/zimalabs/genflow/pkg/models"
)

// generateRequest is the transport shape for all generation endpoints.
type generateRequest struct {
	Prompt      string                       `json:"prompt" binding:"required"`
	Context     string                       `json:"context"`
	SessionID   string                       `json:"session_id"`
	Messages    []models.ConversationMessage `json:"messages"`
	FileContext string                       `json:"file_context"`
}

func (g *generateRequest) toModel() *models.GenerationRequest {
	return &models.GenerationRequest{
		Prompt:      g.Prompt,
		Context:     g.Context,
		SessionID:   g.SessionID,
		Messages:    g.Messages,
		FileContext: g.FileContext,
	}
}

func bindGenerateRequest(c *gin.Context) (*generateRequest, bool) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return nil, false
	}
	if !validSessionID(req.SessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id format"})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleGenerate(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}

	result, err := s.orch.Generate(c.Request.Context(), req.toModel())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGenerateParallel(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}

	result, err := s.orch.ExecuteParallel(c.Request.Context(), req.toModel())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleGenerateStream writes the event sequence as newline-delimited JSON,
// flushing after every event.
func (s *Server) handleGenerateStream(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	enc := newStreamEncoder(c.Writer)

	_ = s.orch.GenerateStreaming(c.Request.Context(), req.toModel(), func(ev models.StreamEvent) {
		if err := enc.encode(ev); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
}

type titleRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleTitle(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	title := s.orch.GenerateTitle(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, gin.H{"title": title})
}

type summarizeRequest struct {
	Messages []models.ConversationMessage `json:"messages" binding:"required"`
}

func (s *Server) handleSummarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	summary := s.orch.Summarize(c.Request.Context(), req.Messages)
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleSubmitJob(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}

	handle, err := s.registry.Submit(req.toModel())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, handle)
}

func (s *Server) handleJobStatus(c *gin.Context) {
	job, err := s.registry.GetStatus(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleJobWait(c *gin.Context) {
	timeout := 30 * time.Second
	if raw := c.Query("timeoutSeconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 || secs > 300 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "timeoutSeconds must be in 1..300"})
			return
		}
		timeout = time.Duration(secs) * time.Second
	}

	job, err := s.registry.WaitForCompletion(c.Request.Context(), c.Param("id"), timeout)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrStillProcessing):
		// Deadline elapsed; report the in-flight snapshot, not a failure.
		c.JSON(http.StatusAccepted, gin.H{"status": "processing", "job": job})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, job)
	}
}

func (s *Server) handleCancelJob(c *gin.Context) {
	err := s.registry.Cancel(c.Param("id"))
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrJobTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}

// handleDownload serves a generated file from the output root. Paths are
// resolved inside the root only.
func (s *Server) handleDownload(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	if rel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file path"})
		return
	}

	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(clean) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file path"})
		return
	}

	full := filepath.Join(s.workspace.Root(), clean)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(full, filepath.Base(clean))
}
