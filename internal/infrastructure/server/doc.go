// Package server assembles the editor host.
//
// This package wires every component together:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, tracing, metrics, CORS, rate limiting)
//   - Surface manager for sandbox-backed and WebSocket-backed editors
//   - Prometheus registry served on /metrics
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Resolve the extensions file
//  4. Setup metrics, routes and middleware
//  5. Serve until the context is cancelled
//  6. Drain HTTP, then unmount every editor
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
