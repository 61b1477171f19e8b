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
//
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"wotcache/internal/reputation"
	"wotcache/internal/scoring"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// ReputationCache is the part of the record cache the HTTP layer needs.
type ReputationCache interface {
	GetOrRefresh(ctx context.Context, urlOrDomain string) (*reputation.Record, error)
	Peek(ctx context.Context, urlOrDomain string) (*reputation.Record, error)
	IsStale(record *reputation.Record) bool
}

// ReputationHandler serves scorecards for domains.
type ReputationHandler struct {
	cache  ReputationCache
	calc   *scoring.Calculator
	logger *pterm.Logger
}

// ScorecardResponse is a scorecard plus its freshness.
type ScorecardResponse struct {
	scoring.Card
	Stale bool `json:"stale"`
}

// CategoryResponse is the rating of a single category.
type CategoryResponse struct {
	Domain     string              `json:"domain"`
	Category   reputation.Category `json:"category"`
	Label      string              `json:"label"`
	Reputation scoring.Rating      `json:"reputation"`
	Confidence scoring.Rating      `json:"confidence"`
}

func NewReputationHandler(cache ReputationCache, calc *scoring.Calculator, logger *pterm.Logger) *ReputationHandler {
	return &ReputationHandler{cache: cache, calc: calc, logger: logger}
}

// GetByURL handles GET /api/v1/reputation?url=...
// With cached=true only the stored record is returned.
func (h *ReputationHandler) GetByURL(c *gin.Context) {
	input := c.Query("url")
	if input == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}
	h.respondScorecard(c, input)
}

// GetByDomain handles GET /api/v1/reputation/:domain
func (h *ReputationHandler) GetByDomain(c *gin.Context) {
	h.respondScorecard(c, c.Param("domain"))
}

// GetCategory handles GET /api/v1/reputation/:domain/:category
func (h *ReputationHandler) GetCategory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category must be numeric"})
		return
	}
	category := reputation.Category(id)

	label, err := h.calc.CategoryLabel(category)
	if err != nil {
		h.writeError(c, err)
		return
	}

	record, err := h.lookup(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rep, err := h.calc.Reputation(record, category)
	if err != nil {
		h.writeError(c, err)
		return
	}
	conf, err := h.calc.Confidence(record, category)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{
		Domain:     record.Domain,
		Category:   category,
		Label:      label,
		Reputation: rep,
		Confidence: conf,
	})
}

// ScorecardPage handles GET /scorecard/:domain
func (h *ReputationHandler) ScorecardPage(c *gin.Context) {
	record, err := h.lookup(c)
	if err != nil {
		status, msg := h.classify(err)
		c.HTML(status, "error.html", gin.H{
			"title":  "Scorecard unavailable",
			"status": status,
			"error":  msg,
			"input":  c.Param("domain"),
		})
		return
	}

	c.HTML(http.StatusOK, "scorecard.html", gin.H{
		"title": "Reputation of " + record.Domain,
		"card":  h.calc.Scorecard(record),
		"stale": h.cache.IsStale(record),
	})
}

// GetCategories handles GET /api/v1/categories
func (h *ReputationHandler) GetCategories(c *gin.Context) {
	tables := h.calc.Tables()
	categories := make([]gin.H, 0, len(tables.CategoryLabels))
	for _, category := range tables.Categories() {
		categories = append(categories, gin.H{
			"id":    int(category),
			"label": tables.CategoryLabels[category],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"categories":        categories,
		"reputation_labels": tables.ReputationLabels,
		"confidence_labels": tables.ConfidenceLabels,
	})
}

func (h *ReputationHandler) respondScorecard(c *gin.Context, input string) {
	record, err := h.lookupInput(c, input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ScorecardResponse{
		Card:  h.calc.Scorecard(record),
		Stale: h.cache.IsStale(record),
	})
}

func (h *ReputationHandler) lookup(c *gin.Context) (*reputation.Record, error) {
	return h.lookupInput(c, c.Param("domain"))
}

func (h *ReputationHandler) lookupInput(c *gin.Context, input string) (*reputation.Record, error) {
	if c.Query("cached") == "true" {
		return h.cache.Peek(c.Request.Context(), input)
	}
	return h.cache.GetOrRefresh(c.Request.Context(), input)
}

func (h *ReputationHandler) writeError(c *gin.Context, err error) {
	status, msg := h.classify(err)
	c.JSON(status, gin.H{"error": msg})
}

// classify maps lookup errors onto HTTP statuses.
func (h *ReputationHandler) classify(err error) (int, string) {
	switch {
	case reputation.IsInvalidDomain(err):
		return http.StatusBadRequest, err.Error()
	case reputation.IsFetchError(err):
		h.logger.Warn("Reputation fetch failed", h.logger.Args("error", err))
		return http.StatusBadGateway, "reputation service unavailable"
	case errors.Is(err, reputation.ErrNotFound):
		return http.StatusNotFound, "no cached record"
	case errors.Is(err, scoring.ErrUnknownCategory):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "lookup timed out"
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		return 499, "request cancelled"
	default:
		h.logger.WithCaller().Error("Reputation lookup failed", h.logger.Args("error", err))
		return http.StatusInternalServerError, "internal error"
	}
}
