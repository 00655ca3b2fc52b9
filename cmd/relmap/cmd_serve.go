// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/relmap/services/relmap"
)

// newServeCmd builds the HTTP server command.
func newServeCmd() *cobra.Command {
	var (
		port  int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relmap HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			svc := relmap.NewService(newBuilder(flagRoot))
			handlers := relmap.NewHandlers(svc)

			router := gin.New()
			router.Use(gin.Recovery())
			// Extracts W3C trace context headers and propagates them
			// through the request context to all handlers.
			router.Use(otelgin.Middleware("aleutian-relmap"))
			if debug {
				router.Use(gin.Logger())
			}

			v1 := router.Group("/v1")
			relmap.RegisterRoutes(v1, handlers)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-quit
				slog.Info("shutting down relmap server")
				os.Exit(0)
			}()

			addr := fmt.Sprintf(":%d", port)
			slog.Info("starting relmap server", slog.String("address", addr))
			return router.Run(addr)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable request logging")
	return cmd
}
