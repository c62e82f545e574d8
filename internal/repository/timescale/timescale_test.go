// FilePath: internal/repository/timescale/timescale_test.go
package timescale

import (
	"testing"
	"time"
)

func TestRetentionInterval(t *testing.T) {
	tests := []struct {
		name   string
		maxAge time.Duration
		want   string
	}{
		{"configured max age", 720 * time.Hour, "720 hours"},
		{"short max age", 48 * time.Hour, "48 hours"},
		{"unconfigured falls back to thirty days", 0, "720 hours"},
		{"negative falls back to thirty days", -time.Hour, "720 hours"},
		{"sub-hour clamps to one hour", 30 * time.Minute, "1 hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retentionInterval(tt.maxAge); got != tt.want {
				t.Errorf("retentionInterval(%v) = %q, want %q", tt.maxAge, got, tt.want)
			}
		})
	}
}
