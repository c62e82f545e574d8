// FilePath: internal/notify/twilio.go

// Package notify places voice-call alerts through the Twilio REST API.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// VoiceNotifier dispatches phone calls via Twilio. The call audio is
// produced by the configured webhook, which receives the alert context as
// a query parameter.
type VoiceNotifier struct {
	cfg    config.TwilioConfig
	client *http.Client
	base   string
}

func NewVoiceNotifier(cfg config.TwilioConfig) *VoiceNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VoiceNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		base:   twilioAPIBase,
	}
}

// callResponse is the subset of the Twilio call resource we read back.
type callResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Send places a call to the recipient and returns the Twilio call SID.
// Fails with a notification error when Twilio is not configured or the
// API rejects the request; callers treat that as non-fatal.
func (n *VoiceNotifier) Send(ctx context.Context, recipient, contextText string) (string, error) {
	if !n.cfg.Enabled() {
		return "", errors.NewNotificationError("twilio not configured", nil)
	}

	webhookURL := fmt.Sprintf("%s?context=%s", n.cfg.WebhookURL, url.QueryEscape(contextText))

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", n.cfg.PhoneNumber)
	form.Set("Url", webhookURL)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", n.base, n.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.NewNotificationError("failed to build call request", err)
	}
	req.SetBasicAuth(n.cfg.AccountSID, n.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", errors.NewNotificationError("call request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.NewNotificationError(
			fmt.Sprintf("twilio API error: %d - %s", resp.StatusCode, string(body)), nil)
	}

	var call callResponse
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return "", errors.NewNotificationError("failed to decode call response", err)
	}

	nuts.L.Infof("[VoiceNotifier] Call %s placed to %s (%s)", call.SID, recipient, call.Status)
	return call.SID, nil
}
