// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/handlers"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers all verifier endpoints on the router. The
// /metrics endpoint is only mounted when metric collection is configured.
func SetupRoutes(router *gin.Engine, newVerifier handlers.VerifierFactory, metrics *observability.Metrics) {
	router.GET("/health", handlers.HealthCheck)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/verify", handlers.HandleVerify(newVerifier, metrics))
		v1.POST("/verify/stream", handlers.HandleVerifyStream(newVerifier, metrics))
	}
}
