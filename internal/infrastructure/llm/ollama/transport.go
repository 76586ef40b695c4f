package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

// HTTPStatusError carries a non-2xx model server response so the error
// classifier can decide retryability by status code.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Body)
}

const maxErrorBodyBytes = 2048

func (c *Client) postJSON(ctx context.Context, path string, reqBody, out any, operation string) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, operation, fmt.Errorf("encode request: %w", err))
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			return &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyLLMError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.WrapError(domain.ErrBackendUnavailable, operation, err)
	}
	return nil
}
