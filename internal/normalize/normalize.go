// FilePath: internal/normalize/normalize.go

// Package normalize converts raw device payloads into canonical readings.
// Device telemetry is noisy; the normalizer never fails, it defaults
// malformed fields instead.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/spoilsense/spoilsense/internal/models"
)

// Normalizer turns raw status payloads into canonical readings. The clock
// is injected so cooldown-window tests can run deterministically.
type Normalizer struct {
	now func() time.Time
}

func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize extracts Ro, Rs, Vout, status and ratio from the raw payload.
// Missing, null or non-numeric fields become 0.0 (empty string for
// status). An explicit ratio wins; otherwise ratio = Rs/Ro when Ro > 0,
// else 0. The timestamp is the current UTC instant. Pure aside from the
// clock read; no side effects.
func (n *Normalizer) Normalize(raw map[string]interface{}, deviceID string) models.Reading {
	ro := safeFloat(raw["Ro"])
	rs := safeFloat(raw["Rs"])
	ratio := safeFloat(raw["ratio"])

	if ratio == 0.0 && ro > 0 {
		ratio = rs / ro
	}
	// Ratio must stay a finite non-negative number.
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
		ratio = 0.0
	}

	return models.Reading{
		DeviceID:  deviceID,
		Ro:        ro,
		Rs:        rs,
		Ratio:     ratio,
		Vout:      safeFloat(raw["Vout"]),
		Status:    safeString(raw["status"]),
		Timestamp: n.now().UTC(),
	}
}

// safeFloat coerces JSON-decoded values to float64, defaulting to 0.0.
func safeFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0.0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0.0
		}
		return f
	default:
		return 0.0
	}
}

func safeString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
