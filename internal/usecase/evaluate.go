package usecase

import (
	"errors"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/internal/services/indicators"
	"ChartScan/internal/services/patterns"
	"ChartScan/pkg/logger"

	"github.com/shopspring/decimal"
)

// evaluator turns one ticker's bars into at most one signal for a date.
// It holds no I/O so the scanner and the backtest share it.
type evaluator struct {
	lookback  int
	minBars   int
	ceiling   decimal.Decimal
	detectors []patterns.Detector
	log       *logger.Logger
}

type evaluation struct {
	ticker         string
	signal         *models.Signal
	skip           models.SkipReason
	detectorErrors int
	loaded         bool
}

func (e evaluator) evaluate(ticker string, bars []models.Bar, date time.Time) evaluation {
	res := evaluation{ticker: ticker, loaded: true}

	w, err := models.NewTrailingWindow(ticker, bars, date, e.lookback)
	if err != nil {
		e.log.Warn("invalid bars", logger.String("ticker", ticker), logger.Date("date", date), logger.Error(err))
		res.skip = models.SkipInvalidBars
		return res
	}
	if w.Len() < e.minBars {
		res.skip = models.SkipInsufficientData
		return res
	}
	if !w.EndsOn(date) {
		res.skip = models.SkipStaleWindow
		return res
	}

	rsi, err := indicators.RSI(w.Closes(), 14)
	if err != nil {
		res.skip = models.SkipInsufficientData
		return res
	}
	if rsi.GreaterThanOrEqual(e.ceiling) {
		res.skip = models.SkipOverbought
		return res
	}

	for _, d := range e.detectors {
		sig, err := detectSafely(d, w)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientData) {
				continue
			}
			res.detectorErrors++
			e.log.Warn("detector failed",
				logger.String("ticker", ticker),
				logger.Date("date", date),
				logger.String("pattern", string(d.Pattern())),
				logger.Error(err))
			continue
		}
		if sig != nil {
			res.signal = sig
			return res
		}
	}

	res.skip = models.SkipNoPattern
	if res.detectorErrors > 0 {
		res.skip = models.SkipDetectorError
	}
	return res
}

// detectSafely converts a detector panic into an invariant error.
func detectSafely(d patterns.Detector, w models.Window) (sig *models.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = nil
			err = fmt.Errorf("%s panicked: %v: %w", d.Pattern(), r, models.ErrInvariantViolation)
		}
	}()
	return d.Detect(w)
}

// lookbackStart is the first calendar day to fetch so that roughly lookback
// trading bars end on date.
func lookbackStart(date time.Time, lookback int) time.Time {
	return models.Day(date).AddDate(0, 0, -(lookback*3/2 + 10))
}
