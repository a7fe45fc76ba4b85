package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rtxscan/rtx/internal/httputil"
)

// getJSON issues a GET request and decodes a JSON response body into v.
// A 404 is reported as (false, nil) so adapters can treat "package not
// found" as empty metadata rather than an error.
func getJSON(ctx context.Context, client *retryablehttp.Client, url string, v any) (bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("registry: build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("registry: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		return false, fmt.Errorf("registry: %w", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("registry: decode %s: %w", url, err)
	}
	return true, nil
}
