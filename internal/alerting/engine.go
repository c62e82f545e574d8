// FilePath: internal/alerting/engine.go

// Package alerting decides, for each normalized reading, whether to fire
// a new alert, suppress a duplicate inside its cooldown window, or
// resolve the open alerts for a device.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/monitoring"
	"github.com/spoilsense/spoilsense/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Severity classifies a ratio against the two thresholds.
type Severity string

const (
	SeverityFresh   Severity = "fresh"
	SeverityWarning Severity = "warning"
	SeveritySpoiled Severity = "spoiled"
)

// Kind maps a non-fresh severity to its persisted alert kind.
func (s Severity) Kind() models.AlertKind {
	switch s {
	case SeverityWarning:
		return models.AlertKindWarning
	case SeveritySpoiled:
		return models.AlertKindSpoiled
	default:
		return ""
	}
}

// Outcome is the engine's verdict for one reading.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeResolved   Outcome = "resolved"
)

// Decision reports what Evaluate did. Alert is set only for
// OutcomeCreated; ResolvedCount only for OutcomeResolved.
type Decision struct {
	Outcome       Outcome          `json:"outcome"`
	Severity      Severity         `json:"severity"`
	Alert         *models.Alert    `json:"alert,omitempty"`
	ResolvedCount int64            `json:"resolved_count,omitempty"`
	Kind          models.AlertKind `json:"kind,omitempty"`
}

// History is the alert history port the engine evaluates against.
// Implementations must make Insert a conditional insert that fails with
// repository.ErrDuplicate when an unresolved same-kind alert newer than
// since already exists.
type History interface {
	FindActive(ctx context.Context, deviceID string, kind models.AlertKind, since time.Time) (*models.Alert, error)
	Insert(ctx context.Context, alert *models.Alert, since time.Time) error
	ResolveAll(ctx context.Context, deviceID string, kind models.AlertKind) (int64, error)
}

// Notifier places the outbound voice call. A failure never blocks alert
// creation; it only leaves the call reference unset.
type Notifier interface {
	Send(ctx context.Context, recipient, contextText string) (string, error)
}

// Engine evaluates readings against the alert history. The clock is
// injected for deterministic cooldown tests.
type Engine struct {
	cfg      config.AlertingConfig
	history  History
	notifier Notifier
	now      func() time.Time
}

func NewEngine(cfg config.AlertingConfig, history History, notifier Notifier, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:      cfg,
		history:  history,
		notifier: notifier,
		now:      now,
	}
}

// Classify derives the severity of a ratio. Boundary values belong to the
// lower (more severe) bucket: ratio == warning threshold is spoiled,
// ratio == fresh threshold is warning.
func (e *Engine) Classify(ratio float64) Severity {
	switch {
	case ratio <= e.cfg.RatioWarning:
		return SeveritySpoiled
	case ratio <= e.cfg.RatioFresh:
		return SeverityWarning
	default:
		return SeverityFresh
	}
}

// Cooldown returns the suppression window for an alert kind. Spoiled
// alerts recur more eagerly because they are higher severity.
func (e *Engine) Cooldown(kind models.AlertKind) time.Duration {
	if kind == models.AlertKindSpoiled {
		return e.cfg.CooldownSpoiled
	}
	return e.cfg.CooldownWarning
}

// Evaluate runs the decision procedure for one reading. A fresh reading
// resolves all open alerts for the device. Otherwise the engine checks
// the cooldown window once; that single check gates both record creation
// and call dispatch. History failures are surfaced; notifier failures are
// logged and recovered.
func (e *Engine) Evaluate(ctx context.Context, reading models.Reading, recipient string) (Decision, error) {
	severity := e.Classify(reading.Ratio)

	if severity == SeverityFresh {
		count, err := e.history.ResolveAll(ctx, reading.DeviceID, "")
		if err != nil {
			return Decision{}, fmt.Errorf("resolving alerts for device %s: %w", reading.DeviceID, err)
		}
		if count > 0 {
			nuts.L.Infof("[AlertEngine] Resolved %d alerts for device %s (ratio %.3f)",
				count, reading.DeviceID, reading.Ratio)
		}
		return Decision{Outcome: OutcomeResolved, Severity: severity, ResolvedCount: count}, nil
	}

	kind := severity.Kind()
	since := e.now().Add(-e.Cooldown(kind))

	active, err := e.history.FindActive(ctx, reading.DeviceID, kind, since)
	if err != nil {
		return Decision{}, fmt.Errorf("querying active alerts for device %s: %w", reading.DeviceID, err)
	}
	if active != nil {
		nuts.L.Debugf("[AlertEngine] Suppressing %s alert for device %s, active alert %s from %v",
			kind, reading.DeviceID, active.ID, active.Timestamp)
		return Decision{Outcome: OutcomeSuppressed, Severity: severity, Kind: kind}, nil
	}

	alert := &models.Alert{
		ID:         nuts.NID("al", 12),
		DeviceID:   reading.DeviceID,
		Kind:       kind,
		RatioValue: reading.Ratio,
		Timestamp:  e.now().UTC(),
	}

	// The cooldown check above already cleared this alert for
	// notification; it is not re-evaluated here.
	if recipient != "" && e.notifier != nil {
		// PhoneNumber records the intended recipient; only CallSID
		// marks whether the call actually went out.
		alert.PhoneNumber = recipient
		contextText := fmt.Sprintf("Food spoilage alert for device %s. Current ratio is %.3f.",
			reading.DeviceID, reading.Ratio)
		sid, err := e.notifier.Send(ctx, recipient, contextText)
		if err != nil {
			monitoring.NotificationsFailed.Inc()
			nuts.L.Warnf("[AlertEngine] Voice alert failed for device %s: %v", reading.DeviceID, err)
		} else {
			alert.CallSID = sid
			nuts.L.Infof("[AlertEngine] Voice alert sent for device %s, call %s", reading.DeviceID, sid)
		}
	}

	if err := e.history.Insert(ctx, alert, since); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race against a concurrent evaluation.
			nuts.L.Debugf("[AlertEngine] Concurrent %s alert for device %s already created",
				kind, reading.DeviceID)
			return Decision{Outcome: OutcomeSuppressed, Severity: severity, Kind: kind}, nil
		}
		return Decision{}, fmt.Errorf("inserting alert for device %s: %w", reading.DeviceID, err)
	}

	nuts.L.Infof("[AlertEngine] Created %s alert %s for device %s (ratio %.3f)",
		kind, alert.ID, reading.DeviceID, reading.Ratio)
	return Decision{Outcome: OutcomeCreated, Severity: severity, Kind: kind, Alert: alert}, nil
}
