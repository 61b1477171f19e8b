package scoring

import (
	"errors"
	"fmt"
	"sort"

	"wotcache/internal/reputation"
)

const (
	MinScore = 0
	MaxScore = 5
)

// ErrUnknownCategory is returned for category ids missing from the label table.
var ErrUnknownCategory = errors.New("unknown reputation category")

// ConfigError reports an incomplete or inconsistent scoring table.
type ConfigError struct {
	Table  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scoring table %s: %s", e.Table, e.Reason)
}

// Tables holds every lookup table used to turn raw values into display values.
type Tables struct {
	// Thresholds are ordered from the score-5 bound down to the score-1 bound.
	ReputationThresholds []int
	ConfidenceThresholds []int

	ReputationLabels map[int]string
	ConfidenceLabels map[int]string
	CategoryLabels   map[reputation.Category]string

	// AssetTemplate may contain {kind} and {score} placeholders.
	AssetTemplate string
}

// DefaultTables returns the stock WOT tables.
func DefaultTables() Tables {
	return Tables{
		ReputationThresholds: []int{80, 60, 40, 20, 1},
		ConfidenceThresholds: []int{45, 34, 23, 12, 6},
		ReputationLabels: map[int]string{
			0: "Unknown",
			1: "Very poor",
			2: "Poor",
			3: "Unsatisfactory",
			4: "Good",
			5: "Excellent",
		},
		ConfidenceLabels: map[int]string{
			0: "None",
			1: "Very low",
			2: "Low",
			3: "Medium",
			4: "High",
			5: "Very high",
		},
		CategoryLabels: map[reputation.Category]string{
			reputation.Trustworthiness:   "Trustworthiness",
			reputation.VendorReliability: "Vendor reliability",
			reputation.Privacy:           "Privacy",
			reputation.ChildSafety:       "Child safety",
		},
		AssetTemplate: "/static/mywot/{kind}_{score}.png",
	}
}

// Validate checks that every score has a label and the thresholds are usable.
func (t Tables) Validate() error {
	if err := validateThresholds("reputation_thresholds", t.ReputationThresholds); err != nil {
		return err
	}
	if err := validateThresholds("confidence_thresholds", t.ConfidenceThresholds); err != nil {
		return err
	}
	if err := validateLabels("reputation_labels", t.ReputationLabels); err != nil {
		return err
	}
	if err := validateLabels("confidence_labels", t.ConfidenceLabels); err != nil {
		return err
	}

	if len(t.CategoryLabels) == 0 {
		return &ConfigError{Table: "category_labels", Reason: "no categories configured"}
	}
	for c := range t.CategoryLabels {
		if !c.Valid() {
			return &ConfigError{Table: "category_labels", Reason: fmt.Sprintf("unsupported category %d", c)}
		}
	}

	if t.AssetTemplate == "" {
		return &ConfigError{Table: "asset_template", Reason: "empty template"}
	}
	return nil
}

// Categories returns the configured categories in ascending order.
func (t Tables) Categories() []reputation.Category {
	out := make([]reputation.Category, 0, len(t.CategoryLabels))
	for c := range t.CategoryLabels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func validateThresholds(name string, thresholds []int) error {
	if len(thresholds) != MaxScore {
		return &ConfigError{Table: name, Reason: fmt.Sprintf("want %d thresholds, got %d", MaxScore, len(thresholds))}
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] >= thresholds[i-1] {
			return &ConfigError{Table: name, Reason: "thresholds must be strictly descending"}
		}
	}
	return nil
}

func validateLabels(name string, labels map[int]string) error {
	for score := MinScore; score <= MaxScore; score++ {
		if _, ok := labels[score]; !ok {
			return &ConfigError{Table: name, Reason: fmt.Sprintf("missing label for score %d", score)}
		}
	}
	return nil
}
