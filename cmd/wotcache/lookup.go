package main

import (
	"context"
	"errors"
	"strconv"

	"wotcache/internal/config"

	"github.com/pterm/pterm"
)

func lookup(ctx context.Context, cfg *config.Config, logger *pterm.Logger, inputs []string) error {
	if len(inputs) == 0 {
		return errors.New("lookup: at least one URL or domain is required")
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	data := pterm.TableData{{"Domain", "Category", "Reputation", "Confidence", "Updated"}}
	failed := 0
	for _, input := range inputs {
		record, err := a.cache.GetOrRefresh(ctx, input)
		if err != nil {
			failed++
			pterm.Error.Printfln("%s: %v", input, err)
			continue
		}
		card := a.calc.Scorecard(record)
		for _, row := range card.Rows {
			data = append(data, []string{
				card.Domain,
				row.Label,
				rating(row.Reputation.Raw, row.Reputation.Label),
				rating(row.Confidence.Raw, row.Confidence.Label),
				card.LastUpdate.Format("2006-01-02"),
			})
		}
	}

	if len(data) > 1 {
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}
	if failed == len(inputs) {
		return errors.New("lookup: no input could be resolved")
	}
	return nil
}

func rating(raw *int, label string) string {
	if raw == nil {
		return label
	}
	return label + " (" + strconv.Itoa(*raw) + ")"
}
