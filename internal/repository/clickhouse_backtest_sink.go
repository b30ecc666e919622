package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ChartScan/internal/domain/models"
	pkgch "ChartScan/pkg/clickhouse"
)

// BacktestSchema creates the flat record table written by CHBacktestSink.
func BacktestSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_records (
			run_id     String,
			date       Date,
			ticker     LowCardinality(String),
			pattern    LowCardinality(String),
			entry      Decimal(18, 4),
			support    Decimal(18, 4),
			target     Decimal(18, 4),
			rr         Decimal(18, 4),
			status     LowCardinality(String),
			return_pct Decimal(18, 2),
			max_gain   Decimal(18, 2),
			max_loss   Decimal(18, 2),
			days_held  UInt16
		) ENGINE = MergeTree
		ORDER BY (run_id, date, ticker)`, database),
	}
}

// CHBacktestSink stores backtest records for later analysis.
type CHBacktestSink struct {
	db    *sql.DB
	table string
}

func NewCHBacktestSink(ch *pkgch.Client, database string) *CHBacktestSink {
	return &CHBacktestSink{db: ch.DB(), table: database + ".backtest_records"}
}

func (s *CHBacktestSink) WriteRecords(ctx context.Context, runID string, records []models.BacktestRecord) error {
	const chunkSize = 2000
	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, r := range records[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				runID, r.Date, r.Ticker, string(r.Pattern),
				r.Entry, r.Support, r.Target, r.RR,
				string(r.Status), r.ReturnPct, r.MaxGain, r.MaxLoss, uint16(r.DaysHeld),
			)
		}
		q := fmt.Sprintf(`INSERT INTO %s (run_id, date, ticker, pattern, entry, support, target, rr,
			status, return_pct, max_gain, max_loss, days_held) VALUES %s`, s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert backtest records: %w", err)
		}
	}
	return nil
}
