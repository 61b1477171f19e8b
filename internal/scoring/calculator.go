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
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"wotcache/internal/reputation"
)

// Kind names the metric a score was derived from.
type Kind string

const (
	KindReputation Kind = "reputation"
	KindConfidence Kind = "confidence"
)

// Score maps raw onto 0..5 using thresholds ordered from the score-5 bound
// downwards. A nil raw value is "not rated" and always scores 0.
func Score(raw *int, thresholds []int) int {
	if raw == nil {
		return MinScore
	}
	score := MaxScore
	for _, t := range thresholds {
		if *raw >= t {
			return score
		}
		score--
	}
	return score
}

// Calculator derives scores, labels and asset paths from validated tables.
type Calculator struct {
	tables Tables
}

// NewCalculator validates tables and returns a Calculator over them.
func NewCalculator(tables Tables) (*Calculator, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{tables: tables}, nil
}

// Default returns a Calculator over DefaultTables.
func Default() *Calculator {
	c, err := NewCalculator(DefaultTables())
	if err != nil {
		panic(err)
	}
	return c
}

// Tables returns the tables the calculator was built with.
func (c *Calculator) Tables() Tables {
	return c.tables
}

func (c *Calculator) ReputationScore(raw *int) int {
	return Score(raw, c.tables.ReputationThresholds)
}

func (c *Calculator) ConfidenceScore(raw *int) int {
	return Score(raw, c.tables.ConfidenceThresholds)
}

func (c *Calculator) ReputationLabel(score int) string {
	return c.tables.ReputationLabels[clamp(score)]
}

func (c *Calculator) ConfidenceLabel(score int) string {
	return c.tables.ConfidenceLabels[clamp(score)]
}

func (c *Calculator) ReputationAsset(score int) string {
	return c.asset(KindReputation, score)
}

func (c *Calculator) ConfidenceAsset(score int) string {
	return c.asset(KindConfidence, score)
}

// CategoryLabel returns the display name of category.
func (c *Calculator) CategoryLabel(category reputation.Category) (string, error) {
	label, ok := c.tables.CategoryLabels[category]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	return label, nil
}

// Rating is one metric of one category, ready for display.
type Rating struct {
	Raw   *int   `json:"raw"`
	Score int    `json:"score"`
	Label string `json:"label"`
	Asset string `json:"asset"`
}

// Reputation rates the reputation value of category in record.
func (c *Calculator) Reputation(record *reputation.Record, category reputation.Category) (Rating, error) {
	if _, err := c.CategoryLabel(category); err != nil {
		return Rating{}, err
	}
	raw := record.Metric(category).Reputation
	score := c.ReputationScore(raw)
	return Rating{Raw: raw, Score: score, Label: c.ReputationLabel(score), Asset: c.ReputationAsset(score)}, nil
}

// Confidence rates the confidence value of category in record.
func (c *Calculator) Confidence(record *reputation.Record, category reputation.Category) (Rating, error) {
	if _, err := c.CategoryLabel(category); err != nil {
		return Rating{}, err
	}
	raw := record.Metric(category).Confidence
	score := c.ConfidenceScore(raw)
	return Rating{Raw: raw, Score: score, Label: c.ConfidenceLabel(score), Asset: c.ConfidenceAsset(score)}, nil
}

func (c *Calculator) asset(kind Kind, score int) string {
	return strings.NewReplacer(
		"{kind}", string(kind),
		"{score}", strconv.Itoa(clamp(score)),
	).Replace(c.tables.AssetTemplate)
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
