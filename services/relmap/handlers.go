// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package relmap

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/relmap/services/relmap/query"
)

// Handlers holds the HTTP handlers for the relmap endpoints.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// extractRequest is the body of POST /extract.
type extractRequest struct {
	Root string `json:"root" binding:"required"`
}

// HandleExtract runs an extraction over a project root and makes the
// resulting graph current.
//
// POST /v1/relmap/extract
func (h *Handlers) HandleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "root is required"})
		return
	}

	info, err := h.service.Extract(c.Request.Context(), req.Root)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleCallers returns the callers of a function.
//
// GET /v1/relmap/callers?name=foo&limit=50
func (h *Handlers) HandleCallers(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	results, err := engine.Callers(c.Request.Context(), name, queryLimit(c))
	if err != nil {
		h.queryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// HandleCallees returns the callees of a function.
//
// GET /v1/relmap/callees?name=foo&limit=50
func (h *Handlers) HandleCallees(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	results, err := engine.Callees(c.Request.Context(), name, queryLimit(c))
	if err != nil {
		h.queryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// HandleDeadCode lists orphan functions.
//
// GET /v1/relmap/dead-code?include_public=true&limit=100
func (h *Handlers) HandleDeadCode(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	opts := query.DeadCodeOptions{
		IncludePublic: c.Query("include_public") == "true",
		Limit:         queryLimit(c),
	}
	candidates, err := engine.DeadCode(c.Request.Context(), opts)
	if err != nil {
		h.queryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "count": len(candidates)})
}

// HandleImplementations looks up the inheritance table.
//
// GET /v1/relmap/implementations?name=Shape
func (h *Handlers) HandleImplementations(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	result, err := engine.Implementations(c.Request.Context(), name)
	if err != nil {
		h.queryError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleChain finds a call path between two functions.
//
// GET /v1/relmap/chain?from=a&to=c
func (h *Handlers) HandleChain(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}

	path, err := engine.CallChain(c.Request.Context(), from, to)
	if err != nil {
		h.queryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "length": len(path)})
}

// HandleExport streams the deterministic JSON serialization of the
// current graph. This is the hand-off point for downstream renderers.
//
// GET /v1/relmap/export
func (h *Handlers) HandleExport(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	data, err := engine.Relationships().ToJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// HandleStats reports run metadata and graph sizes.
//
// GET /v1/relmap/stats
func (h *Handlers) HandleStats(c *gin.Context) {
	info, err := h.service.Info()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleHealth is the liveness probe.
//
// GET /v1/relmap/healthz
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// engine fetches the current query engine, writing the 409 itself
// when no graph is loaded yet.
func (h *Handlers) engine(c *gin.Context) (*query.Engine, bool) {
	engine, err := h.service.Engine()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return nil, false
	}
	return engine, true
}

// queryError maps query sentinel errors to HTTP statuses.
func (h *Handlers) queryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, query.ErrUnknownFunction),
		errors.Is(err, query.ErrUnknownType),
		errors.Is(err, query.ErrNoPath):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// queryLimit parses the optional limit query parameter.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
