package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthgrid/govai/internal/core"
	"github.com/healthgrid/govai/internal/core/table"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CreateSession(c *gin.Context) {
	sess, err := s.Pipeline.CreateSession()
	if err != nil {
		s.log.Error("failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "rows": sess.Rows()})
}

func (s *Server) session(c *gin.Context) (*core.Session, bool) {
	sess, ok := s.Pipeline.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session"})
		return nil, false
	}
	return sess, true
}

// UploadDataset merges one or more uploaded CSV files into the session's
// dataset. Gated by the admin token when one is configured.
func (s *Server) UploadDataset(c *gin.Context) {
	if token := s.cfg.Server.AdminToken; token != "" && c.GetHeader("X-Admin-Token") != token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin token"})
		return
	}

	sess, ok := s.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	merged := 0
	rows := 0
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open " + fh.Filename})
			return
		}
		n, err := s.Pipeline.Ingest(sess, f)
		f.Close()
		if err != nil {
			s.log.Warn("failed to merge upload", zap.String("file", fh.Filename), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to merge " + fh.Filename})
			return
		}
		merged++
		rows += n
	}

	c.JSON(http.StatusOK, gin.H{"merged_files": merged, "merged_rows": rows, "total_rows": sess.Rows()})
}

func (s *Server) Summary(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	view, err := s.Pipeline.Summary(sess, c.QueryArray("city"), c.QueryArray("year"))
	if err != nil {
		s.renderPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type AnalyzeRequest struct {
	Cities []string `json:"cities"`
	Years  []string `json:"years"`
}

func (s *Server) Analyze(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	rec, err := s.Pipeline.Analyze(c.Request.Context(), sess, req.Cities, req.Years)
	if err != nil {
		s.renderPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) History(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	insights, err := s.Pipeline.History(c.Request.Context(), sess, limit)
	if err != nil {
		s.log.Error("failed to list insights", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list insights"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights})
}

// renderPipelineError maps the pipeline's named conditions to responses the
// dashboard can act on.
func (s *Server) renderPipelineError(c *gin.Context, err error) {
	var missing *table.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": missing.Error(), "missing_columns": missing.Columns})
	case errors.Is(err, table.ErrEmptyDataset):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Dataset has no rows"})
	default:
		s.log.Error("pipeline failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
