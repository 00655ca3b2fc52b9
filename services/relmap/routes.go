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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all relmap routes with the router.
//
// Description:
//
//	Registers all /v1/relmap/* endpoints with the given Gin router
//	group. The group should already have any required middleware
//	applied.
//
// Endpoints:
//
//	POST /v1/relmap/extract - Build a relationship graph from a project root
//	GET  /v1/relmap/callers - Find function callers
//	GET  /v1/relmap/callees - Find function callees
//	GET  /v1/relmap/dead-code - List orphan functions
//	GET  /v1/relmap/implementations - Inheritance table lookup
//	GET  /v1/relmap/chain - Shortest call path between two functions
//	GET  /v1/relmap/export - Deterministic JSON export
//	GET  /v1/relmap/stats - Current run metadata
//	GET  /v1/relmap/healthz - Liveness probe
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	relmap := rg.Group("/relmap")
	{
		relmap.POST("/extract", handlers.HandleExtract)
		relmap.GET("/callers", handlers.HandleCallers)
		relmap.GET("/callees", handlers.HandleCallees)
		relmap.GET("/dead-code", handlers.HandleDeadCode)
		relmap.GET("/implementations", handlers.HandleImplementations)
		relmap.GET("/chain", handlers.HandleChain)
		relmap.GET("/export", handlers.HandleExport)
		relmap.GET("/stats", handlers.HandleStats)
		relmap.GET("/healthz", handlers.HandleHealth)
	}
}
