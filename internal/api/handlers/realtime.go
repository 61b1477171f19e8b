// MIT License
//
// Copyright (c) 2026 Kolin
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
//
package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"wotcache/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// MaxSSEConnections is the default cap on concurrent stream clients.
const MaxSSEConnections = 50

// RealtimeHandler serves cache counters, once or as a Server-Sent Events stream.
type RealtimeHandler struct {
	collector         *realtime.MetricsCollector
	logger            *pterm.Logger
	activeConnections int
	maxConnections    int
	interval          time.Duration
	connectionMutex   sync.Mutex
}

func NewRealtimeHandler(collector *realtime.MetricsCollector, logger *pterm.Logger, maxConnections int) *RealtimeHandler {
	if maxConnections <= 0 {
		maxConnections = MaxSSEConnections
	}
	return &RealtimeHandler{
		collector:      collector,
		logger:         logger,
		maxConnections: maxConnections,
		interval:       time.Second,
	}
}

// StreamMetrics handles GET /api/v1/stats/stream
func (h *RealtimeHandler) StreamMetrics(c *gin.Context) {
	h.connectionMutex.Lock()
	if h.activeConnections >= h.maxConnections {
		h.connectionMutex.Unlock()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Maximum concurrent connections reached. Please try again later."})
		return
	}
	h.activeConnections++
	currentConnections := h.activeConnections
	h.collector.SetActiveConnections(h.activeConnections)
	h.connectionMutex.Unlock()

	defer func() {
		h.connectionMutex.Lock()
		h.activeConnections--
		h.collector.SetActiveConnections(h.activeConnections)
		h.connectionMutex.Unlock()

		if r := recover(); r != nil {
			h.logger.Error("Panic in SSE stream", h.logger.Args("panic", r, "client_ip", c.ClientIP()))
		}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Debug("Client connected to cache metrics stream",
		h.logger.Args("client_ip", c.ClientIP(), "active_connections", currentConnections))

	if !h.send(c) {
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			h.logger.Debug("Cache metrics stream closed", h.logger.Args("client_ip", c.ClientIP()))
			return
		case <-ticker.C:
			if !h.send(c) {
				return
			}
		}
	}
}

// send writes one event. Between collector ticks the cached snapshot is reused.
func (h *RealtimeHandler) send(c *gin.Context) bool {
	data := h.collector.GetCachedJSON()
	if data == nil {
		return true
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		h.logger.Debug("Failed to write SSE data", h.logger.Args("error", err))
		return false
	}
	c.Writer.Flush()
	return true
}

// GetCurrentMetrics handles GET /api/v1/stats
func (h *RealtimeHandler) GetCurrentMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.collector.GetMetrics())
}
