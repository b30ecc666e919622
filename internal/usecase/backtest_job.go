package usecase

import (
	"context"
	"fmt"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/logger"
	"ChartScan/pkg/queue"
)

// BacktestJob runs queued backtests; the HTTP API submits them and polls the
// report store by run id.
type BacktestJob struct {
	backtester *Backtester
	universe   []string
	log        *logger.Logger
}

func NewBacktestJob(b *Backtester, universe []string, log *logger.Logger) *BacktestJob {
	if log == nil {
		log = logger.Nop()
	}
	return &BacktestJob{backtester: b, universe: universe, log: log}
}

func (j *BacktestJob) Name() string { return "backtest" }
func (j *BacktestJob) Type() string { return models.BacktestJobType }

func (j *BacktestJob) Handle(ctx context.Context, payload interface{}) error {
	msg, err := queue.ParsePayload[models.BacktestJob](payload)
	if err != nil {
		return fmt.Errorf("backtest job: %v: %w", err, queue.ErrPermanent)
	}
	params, err := BacktestParamsFrom(msg.Request, j.universe)
	if err != nil {
		return fmt.Errorf("backtest job %s: %v: %w", msg.RunID, err, queue.ErrPermanent)
	}

	j.log.Info("backtest job started", logger.String("run_id", msg.RunID))
	_, err = j.backtester.RunWithID(ctx, msg.RunID, params)
	return err
}

// Submit validates the request, stores a queued report and enqueues the job.
func (j *BacktestJob) Submit(ctx context.Context, q queue.QueueService, req models.BacktestRequest) (*models.BacktestReport, error) {
	params, err := BacktestParamsFrom(req, j.universe)
	if err != nil {
		return nil, err
	}
	runID := j.backtester.NewRunID()
	report := &models.BacktestReport{
		RunID:      runID,
		Status:     models.ReportQueued,
		Start:      params.Start,
		End:        params.End,
		StrideDays: j.backtester.strideFor(params),
		Universe:   params.Universe,
		StartedAt:  j.backtester.now().UTC(),
	}
	j.backtester.save(ctx, report)
	if err := q.PublishMessage(ctx, models.BacktestJobType, models.BacktestJob{RunID: runID, Request: req}); err != nil {
		return nil, fmt.Errorf("enqueue backtest: %w", err)
	}
	return report, nil
}
