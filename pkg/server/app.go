package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartScan/pkg/logger"
)

// Service is anything the app starts at boot and stops at shutdown.
// Start must not block.
type Service interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedService struct {
	name string
	svc  Service
}

type closer struct {
	name string
	fn   func() error
}

// App starts services in registration order, waits for a signal or for
// its context to end, then stops them in reverse order and closes
// infrastructure clients.
type App struct {
	log             *logger.Logger
	shutdownTimeout time.Duration
	services        []namedService
	closers         []closer
}

func New(log *logger.Logger, shutdownTimeout time.Duration) *App {
	if log == nil {
		log = logger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &App{log: log.With(logger.String("component", "app")), shutdownTimeout: shutdownTimeout}
}

// Add registers a service under name.
func (a *App) Add(name string, svc Service) {
	a.services = append(a.services, namedService{name: name, svc: svc})
}

// OnShutdown registers fn to run after every service stopped.
func (a *App) OnShutdown(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := 0
	var startErr error
	for _, s := range a.services {
		if err := s.svc.Start(); err != nil {
			startErr = fmt.Errorf("start %s: %w", s.name, err)
			break
		}
		started++
		a.log.Info("service started", logger.String("service", s.name))
	}

	if startErr == nil {
		<-ctx.Done()
		a.log.Info("shutdown signal received")
	} else {
		a.log.Error("startup failed", logger.Error(startErr))
	}
	return errors.Join(startErr, a.shutdown(started))
}

func (a *App) shutdown(started int) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := started - 1; i >= 0; i-- {
		s := a.services[i]
		if err := s.svc.Stop(ctx); err != nil {
			a.log.Warn("service stop", logger.String("service", s.name), logger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", s.name, err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close", logger.String("resource", c.name), logger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
