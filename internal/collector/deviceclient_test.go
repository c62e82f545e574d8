// FilePath: internal/collector/deviceclient_test.go
package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spoilsense/spoilsense/internal/errors"
)

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %q, want /status", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Ro": 500000, "Rs": 250000, "ratio": 0.5, "status": "ok"}`))
	}))
	defer srv.Close()

	client := NewDeviceClient(time.Second)
	raw, err := client.FetchStatus(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}

	// Numbers must come back as json.Number for the normalizer.
	if _, ok := raw["Ro"].(json.Number); !ok {
		t.Errorf("Ro decoded as %T, want json.Number", raw["Ro"])
	}
	if raw["status"] != "ok" {
		t.Errorf("status = %v", raw["status"])
	}
}

func TestFetchStatusTrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %q, want /status", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewDeviceClient(time.Second)
	if _, err := client.FetchStatus(context.Background(), srv.URL+"/"); err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
}

func TestFetchStatusErrorResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewDeviceClient(time.Second)
	_, err := client.FetchStatus(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if apiErr, ok := err.(*errors.APIError); !ok || apiErr.Type != errors.ErrorTypeUnavailable {
		t.Errorf("error = %v, want unavailable", err)
	}
}

func TestFetchStatusMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewDeviceClient(time.Second)
	_, err := client.FetchStatus(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if apiErr, ok := err.(*errors.APIError); !ok || apiErr.Type != errors.ErrorTypeValidation {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestFetchStatusUnreachableDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewDeviceClient(500 * time.Millisecond)
	_, err := client.FetchStatus(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for unreachable device")
	}
	if apiErr, ok := err.(*errors.APIError); !ok || apiErr.Type != errors.ErrorTypeUnavailable {
		t.Errorf("error = %v, want unavailable", err)
	}
}
