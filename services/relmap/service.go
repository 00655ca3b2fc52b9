// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relmap is the service layer: it owns the current
// relationship graph, runs extractions, and exposes the HTTP query
// surface.
package relmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/relmap/services/relmap/graph"
	"github.com/AleutianAI/relmap/services/relmap/query"
)

// ErrNoGraph indicates a query arrived before any extraction ran.
var ErrNoGraph = errors.New("no relationship graph loaded")

// RunInfo describes the extraction run behind the current graph.
type RunInfo struct {
	RunID         string `json:"run_id"`
	Root          string `json:"root"`
	StartedAtMs   int64  `json:"started_at_ms"`
	DurationMs    int64  `json:"duration_ms"`
	Files         int    `json:"files"`
	Functions     int    `json:"functions"`
	Edges         int    `json:"edges"`
	ParseFailures int    `json:"parse_failures"`
}

// Service owns the current graph and serves queries over it.
//
// Thread Safety: safe for concurrent use. Extract swaps the graph
// atomically under a write lock; queries run under a read lock.
type Service struct {
	builder *graph.Builder

	mu     sync.RWMutex
	engine *query.Engine
	info   RunInfo
}

// NewService creates a Service using the given builder.
func NewService(builder *graph.Builder) *Service {
	if builder == nil {
		builder = graph.NewBuilder()
	}
	return &Service{builder: builder}
}

// Extract builds a fresh graph from root and makes it current.
func (s *Service) Extract(ctx context.Context, root string) (RunInfo, error) {
	runID := uuid.NewString()
	start := time.Now()

	slog.Info("extraction started",
		slog.String("run_id", runID),
		slog.String("root", root))

	rels, err := s.builder.BuildDir(ctx, root)
	if err != nil {
		return RunInfo{}, fmt.Errorf("extract %s: %w", root, err)
	}

	engine := query.NewEngine(rels)
	info := RunInfo{
		RunID:         runID,
		Root:          root,
		StartedAtMs:   start.UnixMilli(),
		DurationMs:    time.Since(start).Milliseconds(),
		Files:         engine.Index().Stats().FileCount,
		Functions:     rels.FunctionCount(),
		Edges:         rels.EdgeCount(),
		ParseFailures: len(rels.ParseFailures()),
	}

	s.mu.Lock()
	s.engine = engine
	s.info = info
	s.mu.Unlock()

	slog.Info("extraction finished",
		slog.String("run_id", runID),
		slog.Int("functions", info.Functions),
		slog.Int("edges", info.Edges),
		slog.Int("parse_failures", info.ParseFailures))

	return info, nil
}

// SetRelationships replaces the current graph directly, used by watch
// mode where the watcher already built it.
func (s *Service) SetRelationships(rels *graph.Relationships, root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = query.NewEngine(rels)
	s.info = RunInfo{
		RunID:         uuid.NewString(),
		Root:          root,
		StartedAtMs:   time.Now().UnixMilli(),
		Files:         s.engine.Index().Stats().FileCount,
		Functions:     rels.FunctionCount(),
		Edges:         rels.EdgeCount(),
		ParseFailures: len(rels.ParseFailures()),
	}
}

// Engine returns the current query engine, or ErrNoGraph before the
// first extraction.
func (s *Service) Engine() (*query.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return nil, ErrNoGraph
	}
	return s.engine, nil
}

// Info returns metadata for the current graph.
func (s *Service) Info() (RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return RunInfo{}, ErrNoGraph
	}
	return s.info, nil
}
