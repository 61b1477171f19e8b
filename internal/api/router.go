// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package api wires the HTTP surface of the reputation cache.
package api

import (
	"embed"
	"html/template"
	"time"

	"wotcache/internal/api/handlers"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Reputation *handlers.ReputationHandler
	Widget     *handlers.WidgetHandler
	Realtime   *handlers.RealtimeHandler
	System     *handlers.SystemHandler
}

// NewRouter builds the gin engine. In production mode gin's debug output
// is silenced and requests are logged through pterm instead.
func NewRouter(h Handlers, logger *pterm.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/healthz", h.System.Health)
	router.GET("/scorecard/:domain", h.Reputation.ScorecardPage)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/reputation", h.Reputation.GetByURL)
		v1.GET("/reputation/:domain", h.Reputation.GetByDomain)
		v1.GET("/reputation/:domain/:category", h.Reputation.GetCategory)
		v1.GET("/categories", h.Reputation.GetCategories)
		v1.GET("/widget/:domain", h.Widget.GetWidget)

		v1.GET("/stats", h.Realtime.GetCurrentMetrics)
		v1.GET("/stats/stream", h.Realtime.StreamMetrics)

		v1.GET("/system", h.System.GetSystemStats)
		v1.POST("/system/purge", h.System.RunPurge)
	}

	return router
}

func requestLogger(logger *pterm.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := logger.Args(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if c.Writer.Status() >= 500 {
			logger.Warn("HTTP request", args)
			return
		}
		logger.Trace("HTTP request", args)
	}
}
