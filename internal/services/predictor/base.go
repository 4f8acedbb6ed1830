package predictor

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    xhttp "FinCast/pkg/http"
)

// HTTPServiceBase holds the client and base URL shared by model service calls.
type HTTPServiceBase struct {
    baseURL string
    client  *xhttp.Client
}

func NewHTTPServiceBase(baseURL string, timeout time.Duration) *HTTPServiceBase {
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    return &HTTPServiceBase{
        baseURL: strings.TrimRight(baseURL, "/"),
        client:  xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("fincast-predictor")),
    }
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
    return b.do(ctx, xhttp.MethodPost, path, payload, dest)
}

// GetJSON issues a GET to path and decodes JSON into dest (nil discards the body).
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, dest interface{}) error {
    return b.do(ctx, xhttp.MethodGet, path, nil, dest)
}

func (b *HTTPServiceBase) do(ctx context.Context, method, path string, payload interface{}, dest interface{}) error {
    if b.client == nil || b.baseURL == "" {
        return fmt.Errorf("model service client not initialized")
    }
    opts := &xhttp.RequestOptions{
        Method: method,
        URL:    b.baseURL + path,
        Body:   payload,
    }
    if err := b.client.SendAndParse(ctx, opts, dest); err != nil {
        return fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
    }
    return nil
}

// PostJSONWithRetry posts JSON with up to attempts tries and a linear backoff.
// Client errors (4xx other than 429) are returned without retrying.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
    if attempts <= 1 {
        return b.PostJSON(ctx, path, payload, dest)
    }
    var err error
    for i := 1; i <= attempts; i++ {
        err = b.PostJSON(ctx, path, payload, dest)
        if err == nil {
            return nil
        }
        var se *xhttp.StatusError
        if errors.As(err, &se) && !se.Temporary() {
            return err
        }
        if i == attempts {
            break
        }
        select {
        case <-time.After(time.Duration(i) * 50 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}
