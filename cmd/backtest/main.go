// Command backtest replays the scanner over a date range and writes the
// report to stdout or a file. Bars come from a CSV directory or, when
// -csv is empty, from the ClickHouse store in the config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ChartScan/internal/di"
	"ChartScan/internal/domain/models"
	internalrepo "ChartScan/internal/repository"
	"ChartScan/internal/usecase"
	"ChartScan/pkg/config"
	"ChartScan/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "config/config.yaml", "config file path")
		csvDir     = flag.String("csv", "", "directory of <TICKER>.csv bar files; overrides bar_store")
		start      = flag.String("start", "", "first evaluation date (YYYY-MM-DD)")
		end        = flag.String("end", "", "last evaluation date (YYYY-MM-DD)")
		tickers    = flag.String("tickers", "", "comma separated universe; defaults to universe.tickers")
		pats       = flag.String("patterns", "", "comma separated pattern names; defaults to all")
		stride     = flag.Int("stride", 0, "calendar days between evaluation dates; weekend steps move to Monday (default backtest.stride_days)")
		policy     = flag.String("expired-policy", "", "exclude or by_sign (default backtest.expired_policy)")
		format     = flag.String("format", "json", "json or csv")
		output     = flag.String("o", "", "output file; stdout when empty")
	)
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		return err
	}
	if *csvDir != "" {
		cfg.BarStore.Type = "csv"
		cfg.BarStore.CSVDir = *csvDir
	}
	// reports and records stay local unless the config asks for the sink
	cfg.Redis.Enabled = false
	cfg.Kafka.Enabled = false
	cfg.Log.Collect = false

	fmtSel, err := internalrepo.ParseReportFormat(*format)
	if err != nil {
		return err
	}
	req := models.BacktestRequest{
		Start:         *start,
		End:           *end,
		StrideDays:    *stride,
		Tickers:       splitFlag(*tickers),
		Patterns:      splitFlag(*pats),
		ExpiredPolicy: *policy,
	}
	params, err := usecase.BacktestParamsFrom(req, cfg.Universe.Tickers)
	if err != nil {
		return err
	}

	log, err := di.ProvideLogger(cfg, nil)
	if err != nil {
		return err
	}
	ch, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		return err
	}
	if ch != nil {
		defer ch.Close()
	}
	c := di.ProvideCache(cfg, nil)
	bars := di.ProvideBarStore(cfg, ch, c, log)
	backtester := di.ProvideBacktester(cfg, bars, di.ProvideRecordSink(cfg, ch), nil, di.ProvideMetrics(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := backtester.Run(ctx, params)
	if err != nil {
		return err
	}
	log.Info("backtest written",
		logger.String("run_id", report.RunID),
		logger.Int("records", len(report.Records)),
		logger.String("format", string(fmtSel)))

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return internalrepo.WriteReport(w, report, fmtSel)
}

func splitFlag(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
