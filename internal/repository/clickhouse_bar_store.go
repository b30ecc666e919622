package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ChartScan/internal/domain/models"
	pkgch "ChartScan/pkg/clickhouse"
	"ChartScan/pkg/logger"

	"github.com/shopspring/decimal"
)

// BarSchema creates the daily bar table. ReplacingMergeTree keeps the
// latest load of a (ticker, date) so re-imports are idempotent.
func BarSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_bars (
			ticker LowCardinality(String),
			date   Date,
			open   Decimal(18, 4),
			high   Decimal(18, 4),
			low    Decimal(18, 4),
			close  Decimal(18, 4),
			volume Int64,
			loaded_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(loaded_at)
		ORDER BY (ticker, date)`, database),
	}
}

// CHBarStore reads daily bars from ClickHouse.
type CHBarStore struct {
	db    *sql.DB
	table string
	log   *logger.Logger
}

func NewCHBarStore(ch *pkgch.Client, database string, log *logger.Logger) *CHBarStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CHBarStore{
		db:    ch.DB(),
		table: database + ".daily_bars",
		log:   log.With(logger.String("component", "ch_bar_store")),
	}
}

// unavailable maps driver and connection errors onto the domain sentinel
// unless the caller's context ended first.
func unavailable(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrBarStoreUnavailable)
}

func (s *CHBarStore) BarsFor(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	started := time.Now()
	// FINAL collapses duplicate loads that have not merged yet
	q := fmt.Sprintf(`
		SELECT date, open, high, low, close, volume
		FROM %s FINAL
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, models.Day(start), models.Day(end))
	if err != nil {
		s.log.Error("clickhouse bars query", logger.String("ticker", ticker), logger.Error(err))
		return nil, unavailable(ctx, "query bars", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 128)
	for rows.Next() {
		b := models.Bar{Ticker: ticker}
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", ticker, err)
		}
		b.Date = models.Day(b.Date)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, "read bars", err)
	}
	s.log.Debug("clickhouse bars ok",
		logger.String("ticker", ticker),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(started)))
	return out, nil
}

func (s *CHBarStore) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	q := fmt.Sprintf("SELECT close FROM %s FINAL WHERE ticker = ? ORDER BY date DESC LIMIT 1", s.table)
	var px decimal.Decimal
	err := s.db.QueryRowContext(ctx, q, ticker).Scan(&px)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return decimal.Zero, fmt.Errorf("latest %s: %w", ticker, models.ErrInsufficientData)
	case err != nil:
		return decimal.Zero, unavailable(ctx, "latest price", err)
	}
	return px, nil
}

// StoreBars inserts bars in multi-row VALUES chunks. Used by the CSV import.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			if b.Ticker == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Ticker, models.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ticker, date, open, high, low, close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert bars: %w", err)
		}
	}
	return nil
}
