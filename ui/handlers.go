package ui

import (
	"net/http"
	"strconv"

	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, ok := s.runID(c)
	if !ok {
		return
	}
	run, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleResults(c *gin.Context) {
	id, ok := s.runID(c)
	if !ok {
		return
	}
	significant, err := strconv.ParseBool(c.DefaultQuery("significant", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "significant must be true or false"})
		return
	}

	records, err := s.store.GetRecords(c.Request.Context(), id, significant)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":      id.String(),
		"significant": significant,
		"count":       len(records),
		"results":     records,
	})
}

func (s *Server) handlePair(c *gin.Context) {
	id, ok := s.runID(c)
	if !ok {
		return
	}
	pair := match.NewPair(c.Param("p1"), c.Param("p2"))
	if pair.IsSelf() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a pair needs two different players"})
		return
	}

	record, err := s.store.GetPair(c.Request.Context(), id, pair)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) runID(c *gin.Context) (core.RunID, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return "", false
	}
	return id, true
}

// fail maps application error codes to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.CodeInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
