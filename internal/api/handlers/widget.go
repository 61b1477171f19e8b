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
	"net/http"

	"wotcache/internal/reputation"
	"wotcache/internal/scoring"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// WidgetHandler serves a compact trust badge for embedding.
type WidgetHandler struct {
	cache  ReputationCache
	calc   *scoring.Calculator
	logger *pterm.Logger
}

func NewWidgetHandler(cache ReputationCache, calc *scoring.Calculator, logger *pterm.Logger) *WidgetHandler {
	return &WidgetHandler{cache: cache, calc: calc, logger: logger}
}

// GetWidget handles GET /api/v1/widget/:domain. Lookup failures degrade to
// an "unknown" badge instead of an error status.
func (h *WidgetHandler) GetWidget(c *gin.Context) {
	domain := c.Param("domain")

	record, err := h.cache.GetOrRefresh(c.Request.Context(), domain)
	if err != nil {
		if reputation.IsInvalidDomain(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Debug("Widget lookup error", h.logger.Args("domain", domain, "error", err))
		c.JSON(http.StatusOK, gin.H{
			"domain":     domain,
			"status":     "unknown",
			"reputation": 0,
			"confidence": 0,
			"asset":      h.calc.ReputationAsset(scoring.MinScore),
		})
		return
	}

	// Trustworthiness drives the badge.
	rep, _ := h.calc.Reputation(record, reputation.Trustworthiness)
	conf, _ := h.calc.Confidence(record, reputation.Trustworthiness)

	c.JSON(http.StatusOK, gin.H{
		"domain":     record.Domain,
		"status":     badgeStatus(rep.Score, conf.Score),
		"reputation": rep.Score,
		"confidence": conf.Score,
		"label":      rep.Label,
		"asset":      rep.Asset,
	})
}

func badgeStatus(reputationScore, confidenceScore int) string {
	switch {
	case reputationScore == scoring.MinScore:
		return "unknown"
	case reputationScore <= 2:
		return "danger"
	case reputationScore == 3 || confidenceScore <= 1:
		return "warning"
	default:
		return "healthy"
	}
}
