package agents

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/cache"
)

const maxBodyBytes = 8 << 20

// Fetcher performs JSON requests against the public APIs with retry and an
// optional payload cache in front.
type Fetcher struct {
	client *http.Client
	retry  RetryConfig
	cache  cache.Cache
	logger *zap.Logger
}

func NewFetcher(client *http.Client, retry RetryConfig, c cache.Cache, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, retry: retry, cache: c, logger: logger}
}

// GetJSON issues a GET with params and decodes the body into out.
func (f *Fetcher) GetJSON(ctx context.Context, source, rawURL string, params url.Values, out any) error {
	target := rawURL
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return f.do(ctx, source, http.MethodGet, target, nil, out)
}

// PostJSON sends body as JSON and decodes the response into out. A nil out
// discards the response, which then need not be JSON and is never cached.
func (f *Fetcher) PostJSON(ctx context.Context, source, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", source, err)
	}
	return f.do(ctx, source, http.MethodPost, rawURL, payload, out)
}

func (f *Fetcher) do(ctx context.Context, source, method, target string, payload []byte, out any) error {
	if out == nil {
		_, err := WithRetry(ctx, f.logger, f.retry, source, func(ctx context.Context) ([]byte, error) {
			return f.roundTrip(ctx, method, target, payload, false)
		})
		return err
	}

	key := cacheKey(source, method, target, payload)
	if raw, ok, err := f.cache.Get(ctx, key); err != nil {
		f.logger.Warn("cache read failed", zap.String("source", source), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(raw, out); err == nil {
			f.logger.Debug("cache hit", zap.String("source", source))
			return nil
		}
	}

	raw, err := WithRetry(ctx, f.logger, f.retry, source, func(ctx context.Context) ([]byte, error) {
		return f.roundTrip(ctx, method, target, payload, true)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", source, err)
	}

	if err := f.cache.Set(ctx, key, raw); err != nil {
		f.logger.Warn("cache write failed", zap.String("source", source), zap.Error(err))
	}
	return nil
}

func (f *Fetcher) roundTrip(ctx context.Context, method, target string, payload []byte, wantJSON bool) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Host, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("%s %s: unexpected status %d", method, req.URL.Host, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(statusErr)
		}
		return nil, statusErr
	}
	if wantJSON && !json.Valid(raw) {
		return nil, permanent(fmt.Errorf("%s %s: response is not JSON", method, req.URL.Host))
	}

	return raw, nil
}

func cacheKey(source, method, target string, payload []byte) string {
	h := sha1.New()
	h.Write([]byte(method))
	h.Write([]byte(target))
	h.Write(payload)
	return source + ":" + hex.EncodeToString(h.Sum(nil))
}
