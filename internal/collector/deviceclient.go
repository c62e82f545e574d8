// FilePath: internal/collector/deviceclient.go
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spoilsense/spoilsense/internal/errors"
)

// DeviceClient fetches raw status payloads from sensor devices over HTTP.
type DeviceClient struct {
	client *http.Client
}

func NewDeviceClient(timeout time.Duration) *DeviceClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DeviceClient{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchStatus retrieves {baseURL}/status and decodes it as a JSON object.
// Numbers are kept as json.Number so the normalizer can coerce them.
func (c *DeviceClient) FetchStatus(ctx context.Context, baseURL string) (map[string]interface{}, error) {
	url := strings.TrimRight(baseURL, "/") + "/status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewValidationError("invalid device URL", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewUnavailableError("device fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnavailableError(
			fmt.Sprintf("device returned status %d", resp.StatusCode), nil)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	raw := map[string]interface{}{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.NewValidationError("malformed device payload", err)
	}
	return raw, nil
}
