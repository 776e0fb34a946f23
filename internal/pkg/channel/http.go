package channel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxDiagnosticBytes = 2048

// doRequest performs req and returns the (truncated) response body. Non-2xx
// responses are errors carrying the body as diagnostic.
func doRequest(ctx context.Context, client *http.Client, req *http.Request) (string, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBytes))
	if err != nil {
		return "", err
	}
	diag := strings.TrimSpace(string(body))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return diag, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return diag, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}
