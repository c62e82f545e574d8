// FilePath: internal/alerting/engine_test.go
package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/repository"
)

// memoryHistory implements History with the same windowed conditional
// insert semantics as the postgres repository.
type memoryHistory struct {
	alerts     []*models.Alert
	findErr    error
	insertErr  error
	resolveErr error
}

func (h *memoryHistory) FindActive(_ context.Context, deviceID string, kind models.AlertKind, since time.Time) (*models.Alert, error) {
	if h.findErr != nil {
		return nil, h.findErr
	}
	for i := len(h.alerts) - 1; i >= 0; i-- {
		a := h.alerts[i]
		if a.DeviceID == deviceID && a.Kind == kind && !a.IsResolved && !a.Timestamp.Before(since) {
			return a, nil
		}
	}
	return nil, nil
}

func (h *memoryHistory) Insert(ctx context.Context, alert *models.Alert, since time.Time) error {
	if h.insertErr != nil {
		return h.insertErr
	}
	if existing, _ := h.FindActive(ctx, alert.DeviceID, alert.Kind, since); existing != nil {
		return repository.ErrDuplicate
	}
	h.alerts = append(h.alerts, alert)
	return nil
}

func (h *memoryHistory) ResolveAll(_ context.Context, deviceID string, kind models.AlertKind) (int64, error) {
	if h.resolveErr != nil {
		return 0, h.resolveErr
	}
	var count int64
	for _, a := range h.alerts {
		if a.DeviceID == deviceID && !a.IsResolved && (kind == "" || a.Kind == kind) {
			a.IsResolved = true
			count++
		}
	}
	return count, nil
}

func (h *memoryHistory) unresolved() int {
	count := 0
	for _, a := range h.alerts {
		if !a.IsResolved {
			count++
		}
	}
	return count
}

type fakeNotifier struct {
	calls []string
	sid   string
	err   error
}

func (n *fakeNotifier) Send(_ context.Context, recipient, contextText string) (string, error) {
	n.calls = append(n.calls, recipient)
	if n.err != nil {
		return "", n.err
	}
	return n.sid, nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() config.AlertingConfig {
	return config.AlertingConfig{
		RatioFresh:      0.8,
		RatioWarning:    0.5,
		CooldownSpoiled: 30 * time.Minute,
		CooldownWarning: 60 * time.Minute,
	}
}

func reading(deviceID string, ratio float64) models.Reading {
	return models.Reading{DeviceID: deviceID, Ratio: ratio}
}

func TestClassify(t *testing.T) {
	engine := NewEngine(testConfig(), &memoryHistory{}, nil, nil)

	tests := []struct {
		ratio float64
		want  Severity
	}{
		{0.0, SeveritySpoiled},
		{0.45, SeveritySpoiled},
		{0.5, SeveritySpoiled}, // boundary belongs to the more severe bucket
		{0.51, SeverityWarning},
		{0.8, SeverityWarning},
		{0.81, SeverityFresh},
		{1.5, SeverityFresh},
	}

	for _, tt := range tests {
		if got := engine.Classify(tt.ratio); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestCooldownPerKind(t *testing.T) {
	engine := NewEngine(testConfig(), &memoryHistory{}, nil, nil)

	if got := engine.Cooldown(models.AlertKindSpoiled); got != 30*time.Minute {
		t.Errorf("spoiled cooldown = %v, want 30m", got)
	}
	if got := engine.Cooldown(models.AlertKindWarning); got != 60*time.Minute {
		t.Errorf("warning cooldown = %v, want 60m", got)
	}
}

func TestEvaluateCooldownLifecycle(t *testing.T) {
	history := &memoryHistory{}
	notifier := &fakeNotifier{sid: "CA0001"}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(testConfig(), history, notifier, clock.Now)
	ctx := context.Background()

	// First spoiled reading creates an alert and places a call.
	decision, err := engine.Evaluate(ctx, reading("dev_1", 0.45), "+4912345")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %v, want created", decision.Outcome)
	}
	if decision.Kind != models.AlertKindSpoiled {
		t.Errorf("kind = %v, want spoiled", decision.Kind)
	}
	if decision.Alert == nil || decision.Alert.CallSID != "CA0001" {
		t.Errorf("expected alert with call SID, got %+v", decision.Alert)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("notifier calls = %d, want 1", len(notifier.calls))
	}

	// Ten minutes later the same condition is suppressed, no second call.
	clock.Advance(10 * time.Minute)
	decision, err = engine.Evaluate(ctx, reading("dev_1", 0.40), "+4912345")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeSuppressed {
		t.Fatalf("outcome = %v, want suppressed", decision.Outcome)
	}
	if len(notifier.calls) != 1 {
		t.Errorf("notifier calls = %d, want still 1", len(notifier.calls))
	}

	// After the 30 minute spoiled cooldown a new alert fires even though
	// the first record is still unresolved.
	clock.Advance(25 * time.Minute)
	decision, err = engine.Evaluate(ctx, reading("dev_1", 0.42), "+4912345")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %v, want created after cooldown", decision.Outcome)
	}
	if len(notifier.calls) != 2 {
		t.Errorf("notifier calls = %d, want 2", len(notifier.calls))
	}
	if history.unresolved() != 2 {
		t.Errorf("unresolved alerts = %d, want 2", history.unresolved())
	}

	// A fresh reading resolves every open alert for the device.
	decision, err = engine.Evaluate(ctx, reading("dev_1", 0.9), "+4912345")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeResolved {
		t.Fatalf("outcome = %v, want resolved", decision.Outcome)
	}
	if decision.ResolvedCount != 2 {
		t.Errorf("resolved count = %d, want 2", decision.ResolvedCount)
	}
	if history.unresolved() != 0 {
		t.Errorf("unresolved alerts = %d, want 0", history.unresolved())
	}
	if len(notifier.calls) != 2 {
		t.Errorf("notifier calls = %d, resolution must not notify", len(notifier.calls))
	}
}

func TestEvaluateWarningUsesOwnCooldown(t *testing.T) {
	history := &memoryHistory{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(testConfig(), history, nil, clock.Now)
	ctx := context.Background()

	decision, err := engine.Evaluate(ctx, reading("dev_1", 0.6), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeCreated || decision.Kind != models.AlertKindWarning {
		t.Fatalf("decision = %+v, want created warning", decision)
	}

	// 45 minutes is past the spoiled cooldown but inside the warning one.
	clock.Advance(45 * time.Minute)
	decision, err = engine.Evaluate(ctx, reading("dev_1", 0.6), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeSuppressed {
		t.Errorf("outcome = %v, want suppressed inside warning cooldown", decision.Outcome)
	}

	clock.Advance(20 * time.Minute)
	decision, err = engine.Evaluate(ctx, reading("dev_1", 0.6), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeCreated {
		t.Errorf("outcome = %v, want created after warning cooldown", decision.Outcome)
	}
}

func TestEvaluateSeparateKindsDoNotSuppressEachOther(t *testing.T) {
	history := &memoryHistory{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(testConfig(), history, nil, clock.Now)
	ctx := context.Background()

	if d, err := engine.Evaluate(ctx, reading("dev_1", 0.6), ""); err != nil || d.Outcome != OutcomeCreated {
		t.Fatalf("warning decision = %+v, err = %v", d, err)
	}

	clock.Advance(time.Minute)
	d, err := engine.Evaluate(ctx, reading("dev_1", 0.3), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Outcome != OutcomeCreated || d.Kind != models.AlertKindSpoiled {
		t.Errorf("decision = %+v, want created spoiled despite open warning", d)
	}
}

func TestEvaluateNoRecipientSkipsNotifier(t *testing.T) {
	history := &memoryHistory{}
	notifier := &fakeNotifier{sid: "CA0001"}
	engine := NewEngine(testConfig(), history, notifier, nil)

	decision, err := engine.Evaluate(context.Background(), reading("dev_1", 0.3), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %v, want created", decision.Outcome)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("notifier called with empty recipient")
	}
	if decision.Alert.CallSID != "" {
		t.Errorf("call SID = %q, want empty", decision.Alert.CallSID)
	}
}

func TestEvaluateNotifierFailureStillCreates(t *testing.T) {
	history := &memoryHistory{}
	notifier := &fakeNotifier{err: errors.New("twilio is down")}
	engine := NewEngine(testConfig(), history, notifier, nil)

	decision, err := engine.Evaluate(context.Background(), reading("dev_1", 0.3), "+4912345")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %v, want created despite notifier failure", decision.Outcome)
	}
	if decision.Alert.CallSID != "" {
		t.Errorf("failed call must leave CallSID empty, got %q", decision.Alert.CallSID)
	}
	if decision.Alert.PhoneNumber != "+4912345" {
		t.Errorf("alert must record the intended recipient, got %q", decision.Alert.PhoneNumber)
	}
	if len(history.alerts) != 1 {
		t.Errorf("alerts persisted = %d, want 1", len(history.alerts))
	}
}

func TestEvaluateInsertRaceReportsSuppressed(t *testing.T) {
	history := &memoryHistory{insertErr: repository.ErrDuplicate}
	engine := NewEngine(testConfig(), history, nil, nil)

	decision, err := engine.Evaluate(context.Background(), reading("dev_1", 0.3), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeSuppressed {
		t.Errorf("outcome = %v, want suppressed on duplicate insert", decision.Outcome)
	}
}

func TestEvaluateHistoryFailures(t *testing.T) {
	storeErr := errors.New("connection refused")

	engine := NewEngine(testConfig(), &memoryHistory{findErr: storeErr}, nil, nil)
	if _, err := engine.Evaluate(context.Background(), reading("dev_1", 0.3), ""); !errors.Is(err, storeErr) {
		t.Errorf("find failure not surfaced, got %v", err)
	}

	engine = NewEngine(testConfig(), &memoryHistory{insertErr: storeErr}, nil, nil)
	if _, err := engine.Evaluate(context.Background(), reading("dev_1", 0.3), ""); !errors.Is(err, storeErr) {
		t.Errorf("insert failure not surfaced, got %v", err)
	}

	engine = NewEngine(testConfig(), &memoryHistory{resolveErr: storeErr}, nil, nil)
	if _, err := engine.Evaluate(context.Background(), reading("dev_1", 0.9), ""); !errors.Is(err, storeErr) {
		t.Errorf("resolve failure not surfaced, got %v", err)
	}
}

func TestEvaluateFreshWithNothingToResolve(t *testing.T) {
	engine := NewEngine(testConfig(), &memoryHistory{}, nil, nil)

	decision, err := engine.Evaluate(context.Background(), reading("dev_1", 1.2), "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Outcome != OutcomeResolved || decision.ResolvedCount != 0 {
		t.Errorf("decision = %+v, want resolved with count 0", decision)
	}
}
