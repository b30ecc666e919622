package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/kafka"
	"ChartScan/pkg/logger"
	"ChartScan/pkg/util"
)

// CommandHandler consumes scheduler commands and triggers scans and
// lifecycle passes. It implements kafka.MessageHandler.
type CommandHandler struct {
	topic     string
	scanner   *Scanner
	lifecycle *LifecycleEvaluator
	universe  []string
	log       *logger.Logger
	now       func() time.Time
}

func NewCommandHandler(topic string, scanner *Scanner, lifecycle *LifecycleEvaluator, universe []string, log *logger.Logger) *CommandHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CommandHandler{
		topic:     topic,
		scanner:   scanner,
		lifecycle: lifecycle,
		universe:  universe,
		log:       log.With(logger.String("component", "commands")),
		now:       time.Now,
	}
}

func (h *CommandHandler) Topic() string { return h.topic }

// Handle runs one command. Malformed commands are permanent failures; a scan
// already running elsewhere is not an error.
func (h *CommandHandler) Handle(ctx context.Context, data []byte) error {
	var cmd models.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode command: %v: %w", err, kafka.ErrPermanent)
	}
	date := util.Day(h.now())
	if cmd.Date != "" {
		d, err := util.ParseDate(cmd.Date)
		if err != nil {
			return fmt.Errorf("command %s: %v: %w", cmd.Command, err, kafka.ErrPermanent)
		}
		date = d
	}

	switch cmd.Command {
	case models.CommandScan:
		universe := h.universe
		if len(cmd.Tickers) > 0 {
			universe = cmd.Tickers
		}
		res, err := h.scanner.Scan(ctx, date, universe)
		if errors.Is(err, models.ErrScanInProgress) {
			h.log.Info("scan already running, command dropped", logger.Date("date", date))
			return nil
		}
		if err != nil {
			return err
		}
		h.log.Info("scan command done", logger.Date("date", date), logger.Int("signals", len(res.Signals)))
		return nil

	case models.CommandLifecycle:
		res, err := h.lifecycle.Run(ctx, date)
		if err != nil {
			return err
		}
		h.log.Info("lifecycle command done", logger.Date("as_of", date), logger.Int("examined", res.Examined))
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd.Command, kafka.ErrPermanent)
}
