/*
Package monitoring provides metrics collection for the SSH daemon.

# Overview

This package implements Prometheus-based metrics for SSH connections, terminal
sessions, relay throughput, window-change handling and the admin HTTP endpoint.
Every Metrics value owns its registry, so several daemons (or tests) can live
in one process.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to the admin router
	router.Use(monitoring.Middleware(metrics))

	// Record domain events
	metrics.ConnectionOpened()
	metrics.SessionStarted()
	metrics.RecordRelay("out", n)

All recording methods accept a nil receiver so components can run without
metrics.

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
