package scoring

import (
	"time"

	"wotcache/internal/reputation"
)

// Row is one category line of a scorecard.
type Row struct {
	Category   reputation.Category `json:"category"`
	Label      string              `json:"label"`
	Reputation Rating              `json:"reputation"`
	Confidence Rating              `json:"confidence"`
}

// Card is the display form of a record.
type Card struct {
	Domain     string              `json:"domain"`
	LastUpdate time.Time           `json:"last_update"`
	Rows       []Row               `json:"categories"`
	Host       reputation.HostInfo `json:"host"`
}

// Scorecard rates every configured category of record. Categories without
// data appear as not rated.
func (c *Calculator) Scorecard(record *reputation.Record) Card {
	card := Card{
		Domain:     record.Domain,
		LastUpdate: record.LastUpdate,
		Host:       record.Host,
	}
	for _, category := range c.tables.Categories() {
		// Categories come from the table, so the lookups cannot fail.
		rep, _ := c.Reputation(record, category)
		conf, _ := c.Confidence(record, category)
		card.Rows = append(card.Rows, Row{
			Category:   category,
			Label:      c.tables.CategoryLabels[category],
			Reputation: rep,
			Confidence: conf,
		})
	}
	return card
}
