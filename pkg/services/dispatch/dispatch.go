package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// ReportSink receives the full review result.
type ReportSink interface {
	Write(ctx context.Context, result domain.ReviewResult) error
}

// AlertSink receives the findings selected for alerting.
type AlertSink interface {
	Notify(ctx context.Context, findings []domain.Finding) error
}

// Dispatcher fans a review result out to report and alert sinks.
type Dispatcher struct {
	cfg        domain.ReviewConfig
	reports    []ReportSink
	alerts     []AlertSink
	suppressor *Suppressor
}

func NewDispatcher(cfg domain.ReviewConfig) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

func (d *Dispatcher) AddReportSink(sink ReportSink) {
	d.reports = append(d.reports, sink)
}

func (d *Dispatcher) AddAlertSink(sink AlertSink) {
	d.alerts = append(d.alerts, sink)
}

// SetSuppressor installs alert dedup across runs. Without one every selected
// finding alerts on every run.
func (d *Dispatcher) SetSuppressor(s *Suppressor) {
	d.suppressor = s
}

// Dispatch writes the result to every report sink, then notifies the alert
// sinks about findings at or above the configured alert level. A failing
// sink does not stop the remaining sinks.
func (d *Dispatcher) Dispatch(ctx context.Context, result domain.ReviewResult) error {
	logger := zerolog.Ctx(ctx)

	var errs []error
	for _, sink := range d.reports {
		if err := sink.Write(ctx, result); err != nil {
			logger.Error().Err(err).Msgf("report sink %T failed", sink)
			errs = append(errs, fmt.Errorf("report sink %T: %w", sink, err))
		}
	}

	alerts := SelectAlerts(result.Findings, d.cfg.AlertLevel)
	if d.suppressor != nil {
		alerts = d.suppressor.Filter(ctx, alerts, result.GeneratedAt)
	}

	if len(alerts) == 0 || len(d.alerts) == 0 {
		return errors.Join(errs...)
	}

	notified := true
	for _, sink := range d.alerts {
		if err := sink.Notify(ctx, alerts); err != nil {
			notified = false
			logger.Error().Err(err).Msgf("alert sink %T failed", sink)
			errs = append(errs, fmt.Errorf("alert sink %T: %w", sink, err))
		}
	}

	// State is recorded only when every alert sink succeeded, so a failed
	// delivery is retried on the next run.
	if notified && d.suppressor != nil {
		if err := d.suppressor.Record(ctx, alerts, result.GeneratedAt); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// SelectAlerts returns the findings at or above min, preserving order.
func SelectAlerts(findings []domain.Finding, min domain.RiskLevel) []domain.Finding {
	selected := make([]domain.Finding, 0)
	for _, f := range findings {
		if f.Level >= min {
			selected = append(selected, f)
		}
	}
	return selected
}
