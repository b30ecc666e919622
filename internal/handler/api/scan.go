package api

import (
	"errors"
	"net/http"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/internal/usecase"
	xhttp "ChartScan/pkg/http"
	xlogger "ChartScan/pkg/logger"
	"ChartScan/pkg/queue"
	"ChartScan/pkg/util"

	"github.com/labstack/echo/v4"
)

// Deps are the use cases behind the API. Jobs and Queue are optional; without
// them backtests run inside the request.
type Deps struct {
	Scanner    *usecase.Scanner
	Lifecycle  *usecase.LifecycleEvaluator
	Signals    drepo.SignalStore
	Stats      *usecase.StatsService
	Backtester *usecase.Backtester
	Jobs       *usecase.BacktestJob
	Queue      queue.QueueService
	Universe   []string
}

// ScanHandler exposes scanning, lifecycle, signal queries, stats and backtests.
type ScanHandler struct {
	logger *xlogger.Logger
	deps   Deps
}

func NewScanHandler(logger *xlogger.Logger, deps Deps) *ScanHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScanHandler{logger: logger.With(xlogger.String("component", "api")), deps: deps}
}

func (h *ScanHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scan", h.Scan)
	g.POST("/lifecycle", h.Lifecycle)
	g.GET("/signals", h.ListSignals)
	g.GET("/stats", h.Stats)
	g.POST("/backtest", h.Backtest)
	g.GET("/backtest/:id", h.BacktestReport)
}

func (h *ScanHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, err := util.ParseDate(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	opts, err := usecase.ScanOptionsFrom(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	universe := h.deps.Universe
	if len(req.Tickers) > 0 {
		universe = req.Tickers
	}

	res, err := h.deps.Scanner.Scan(c.Request().Context(), date, universe, opts...)
	if err != nil {
		return h.fail(c, "scan", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanHandler) Lifecycle(c echo.Context) error {
	req := &models.LifecycleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asOf, err := util.ParseDate(req.AsOf)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	res, err := h.deps.Lifecycle.Run(c.Request().Context(), asOf)
	if err != nil {
		return h.fail(c, "lifecycle", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanHandler) ListSignals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	filter, err := usecase.SignalFilterFrom(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	sigs, err := usecase.QuerySignals(c.Request().Context(), h.deps.Signals, filter)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *ScanHandler) Stats(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var pattern models.Pattern
	if req.Pattern != "" {
		p, err := models.ParsePattern(req.Pattern)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithParam("options", models.Patterns))
		}
		pattern = p
	}
	report, err := h.deps.Stats.Performance(c.Request().Context(), pattern, models.ExpiredPolicy(req.ExpiredPolicy))
	if err != nil {
		return h.fail(c, "stats", err)
	}
	// stats only move after a lifecycle pass
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, report)
}

func (h *ScanHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if h.deps.Jobs != nil && h.deps.Queue != nil {
		report, err := h.deps.Jobs.Submit(ctx, h.deps.Queue, *req)
		if err != nil {
			return h.fail(c, "backtest", err)
		}
		c.Response().Header().Set(echo.HeaderLocation, "/api/backtest/"+report.RunID)
		return xhttp.AcceptedResponse(c, report)
	}

	params, err := usecase.BacktestParamsFrom(*req, h.deps.Universe)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	report, err := h.deps.Backtester.Run(ctx, params)
	if err != nil {
		return h.fail(c, "backtest", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ScanHandler) BacktestReport(c echo.Context) error {
	req := &models.BacktestReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.deps.Backtester.Report(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "backtest_report", err)
	}
	return xhttp.SuccessResponse(c, report)
}

// fail maps domain errors onto the envelope; anything unknown is logged and
// answered with a 500.
func (h *ScanHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("route", c.Path()), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrScanInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrBarStoreUnavailable):
		return xhttp.UnavailableError("bar store unavailable").WithError(err)
	case errors.Is(err, models.ErrReportNotFound):
		return xhttp.NotFoundError("backtest report not found").WithError(err)
	case errors.Is(err, usecase.ErrNoBacktestReports):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvariantViolation), errors.Is(err, models.ErrInsufficientData):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
