package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/pkg/util"
)

// SignalFilterFrom converts query parameters into a store filter.
func SignalFilterFrom(req models.SignalsRequest) (models.SignalFilter, error) {
	f := models.SignalFilter{
		Ticker: util.NormalizeTicker(req.Ticker),
		Status: models.SignalStatus(req.Status),
		Limit:  req.Limit,
	}
	if req.Pattern != "" {
		p, err := models.ParsePattern(req.Pattern)
		if err != nil {
			return f, err
		}
		f.Pattern = p
	}
	var err error
	if f.From, err = optionalDate(req.From); err != nil {
		return f, fmt.Errorf("from: %w", err)
	}
	if f.To, err = optionalDate(req.To); err != nil {
		return f, fmt.Errorf("to: %w", err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("to %s is before from %s", req.To, req.From)
	}
	return f, nil
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return util.ParseDate(s)
}

// QuerySignals returns matching signals newest first, capped at f.Limit.
func QuerySignals(ctx context.Context, store drepo.SignalStore, f models.SignalFilter) ([]models.Signal, error) {
	sigs, err := store.Signals(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	sort.SliceStable(sigs, func(i, j int) bool {
		if !sigs[i].Date.Equal(sigs[j].Date) {
			return sigs[i].Date.After(sigs[j].Date)
		}
		return sigs[i].Ticker < sigs[j].Ticker
	})
	if f.Limit > 0 && len(sigs) > f.Limit {
		sigs = sigs[:f.Limit]
	}
	return sigs, nil
}
