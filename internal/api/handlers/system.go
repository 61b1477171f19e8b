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
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"wotcache/internal/database"
	"wotcache/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// RecordCounter reports how many records are stored.
type RecordCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Purger runs the retention purge on demand.
type Purger interface {
	RunNow(ctx context.Context) (int64, error)
	Stats() database.PurgeStats
}

// SystemHandler handles health and system statistics requests.
type SystemHandler struct {
	records       RecordCounter
	dbSize        func() (int64, error)
	purge         Purger
	logger        *pterm.Logger
	startTime     time.Time
	dbPath        string
	expirationDay int
}

// SystemStats holds process, store and retention statistics.
type SystemStats struct {
	// Process Info
	AppVersion    string  `json:"app_version"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`
	GoVersion     string  `json:"go_version"`
	NumCPU        int     `json:"num_cpu"`
	NumGoroutines int     `json:"num_goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemorySysMB   float64 `json:"memory_sys_mb"`

	// Database Info
	TotalRecords   int64   `json:"total_records"`
	DatabaseSizeMB float64 `json:"database_size_mb"`
	DatabasePath   string  `json:"database_path"`
	ExpirationDays int     `json:"expiration_days"`

	// Purge Info
	RetentionDays      int    `json:"retention_days"`
	NextPurgeTime      string `json:"next_purge_time"`
	NextPurgeCountdown string `json:"next_purge_countdown"`
	LastPurgeTime      string `json:"last_purge_time"`
	LastPurgeDeleted   int64  `json:"last_purge_deleted"`
}

func NewSystemHandler(
	records RecordCounter,
	dbSize func() (int64, error),
	purge Purger,
	logger *pterm.Logger,
	dbPath string,
	expirationDays int,
) *SystemHandler {
	return &SystemHandler{
		records:       records,
		dbSize:        dbSize,
		purge:         purge,
		logger:        logger,
		startTime:     time.Now(),
		dbPath:        dbPath,
		expirationDay: expirationDays,
	}
}

// Health handles GET /healthz
func (h *SystemHandler) Health(c *gin.Context) {
	if _, err := h.records.Count(c.Request.Context()); err != nil {
		h.logger.WithCaller().Error("Health check failed", h.logger.Args("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

// GetSystemStats handles GET /api/v1/system
func (h *SystemHandler) GetSystemStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.collectSystemStats(c.Request.Context()))
}

// RunPurge handles POST /api/v1/system/purge
func (h *SystemHandler) RunPurge(c *gin.Context) {
	if h.purge == nil {
		c.JSON(http.StatusConflict, gin.H{"error": database.ErrPurgeDisabled.Error()})
		return
	}

	deleted, err := h.purge.RunNow(c.Request.Context())
	if errors.Is(err, database.ErrPurgeDisabled) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.WithCaller().Error("Manual purge failed", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purge failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *SystemHandler) collectSystemStats(ctx context.Context) *SystemStats {
	stats := &SystemStats{
		AppVersion:     version.Version,
		StartTime:      h.startTime.Format(time.RFC3339),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutines:  runtime.NumGoroutine(),
		DatabasePath:   h.dbPath,
		ExpirationDays: h.expirationDay,
	}

	uptime := time.Since(h.startTime)
	stats.UptimeSeconds = int64(uptime.Seconds())
	stats.Uptime = formatDuration(uptime)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.MemoryAllocMB = float64(m.Alloc) / 1024 / 1024
	stats.MemorySysMB = float64(m.Sys) / 1024 / 1024

	totalRecords, err := h.records.Count(ctx)
	if err != nil {
		h.logger.WithCaller().Warn("Failed to get total records", h.logger.Args("error", err))
	}
	stats.TotalRecords = totalRecords

	if h.dbSize != nil {
		if size, err := h.dbSize(); err == nil {
			stats.DatabaseSizeMB = float64(size) / 1024 / 1024
		}
	}

	stats.NextPurgeTime = "Disabled"
	stats.NextPurgeCountdown = "N/A"
	stats.LastPurgeTime = "N/A"
	if h.purge != nil {
		purgeStats := h.purge.Stats()
		stats.RetentionDays = purgeStats.RetentionDays
		if purgeStats.Enabled {
			stats.NextPurgeTime = purgeStats.NextScheduledRun.Format(time.DateTime)
			stats.NextPurgeCountdown = formatDuration(time.Until(purgeStats.NextScheduledRun))
			stats.LastPurgeTime = "Never"
			if !purgeStats.LastRunTime.IsZero() {
				stats.LastPurgeTime = purgeStats.LastRunTime.Format(time.DateTime)
				stats.LastPurgeDeleted = purgeStats.RecordsDeleted
			}
		}
	}

	return stats
}

// formatDuration formats a duration into a human-readable string
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return formatPlural(days, "day", hours, "hour")
	}
	if hours > 0 {
		return formatPlural(hours, "hour", minutes, "minute")
	}
	if minutes > 0 {
		return formatPlural(minutes, "minute", seconds, "second")
	}
	return formatPlural(seconds, "second", 0, "")
}

// formatPlural formats numbers with proper pluralization
func formatPlural(n1 int, unit1 string, n2 int, unit2 string) string {
	result := formatSingle(n1, unit1)
	if n2 > 0 && unit2 != "" {
		result += ", " + formatSingle(n2, unit2)
	}
	return result
}

// formatSingle formats a single value with pluralization
func formatSingle(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

