package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"crypto-tracker/internal/models"
)

// ErrHTTPStatus wraps non-200 explorer responses.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Cache stores raw explorer responses between runs.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// Cacheable is implemented by response types that can report an error inside a
// 200 body. GetJSON skips the cache when Cacheable returns false.
type Cacheable interface {
	Cacheable() bool
}

// BaseSource contains common fields and methods for all explorer sources
type BaseSource struct {
	ApiKey          string
	Endpoint        string
	ExplorerBaseURL string
	MaxRetries      int
	RetryDelay      time.Duration
	RateLimiter     *rate.Limiter
	Client          *http.Client
	Logger          *zerolog.Logger
	Cache           Cache
	BlockchainName  models.BlockchainName
}

// CustomTransport sets the headers every explorer request carries.
type CustomTransport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	return t.Base.RoundTrip(req)
}

func NewBaseSource(blockchain models.BlockchainName, rateLimit float64, endpoint, apiKey, explorerBaseURL string, timeout time.Duration, logger *zerolog.Logger) *BaseSource {
	if rateLimit <= 0 {
		rateLimit = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BaseSource{
		Logger:          logger,
		Endpoint:        endpoint,
		ApiKey:          apiKey,
		ExplorerBaseURL: explorerBaseURL,
		RateLimiter:     rate.NewLimiter(rate.Limit(rateLimit), 1),
		MaxRetries:      1,
		RetryDelay:      time.Second,
		BlockchainName:  blockchain,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &CustomTransport{
				Base:      http.DefaultTransport,
				UserAgent: "crypto-tracker/1.0",
			},
		},
	}
}

func (b *BaseSource) Chain() models.BlockchainName {
	return b.BlockchainName
}

func (b *BaseSource) GetExplorerURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", b.ExplorerBaseURL, txHash)
}

// GetJSON issues a rate-limited GET and decodes the JSON body into out.
// Successful bodies are cached under the URL with the api key stripped, unless out
// implements Cacheable and rejects the decoded body.
func (b *BaseSource) GetJSON(ctx context.Context, rawURL string, out any) error {
	key := cacheKey(rawURL)
	if b.Cache != nil {
		if body, ok := b.Cache.Get(key); ok {
			if err := json.Unmarshal(body, out); err == nil {
				b.Logger.Debug().Str("url", key).Msg("Serving explorer response from cache")
				return nil
			}
		}
	}

	b.Logger.Debug().
		Str("url", key).
		Str("blockchain", b.BlockchainName.String()).
		Msg("Making explorer request")

	var body []byte
	err := b.Retry(ctx, func() error {
		if err := b.RateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}

		resp, err := b.Client.Do(req)
		if err != nil {
			return err
		}
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %d - %s", ErrHTTPStatus, resp.StatusCode, resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	})
	if err != nil {
		b.Logger.Error().
			Err(err).
			Str("blockchain", b.BlockchainName.String()).
			Str("url", key).
			Msg("Explorer request failed")
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if c, ok := out.(Cacheable); ok && !c.Cacheable() {
		return nil
	}
	if b.Cache != nil {
		if err := b.Cache.Set(key, body); err != nil {
			b.Logger.Warn().Err(err).Msg("Failed to cache explorer response")
		}
	}
	return nil
}

// Retry runs fn up to MaxRetries times, sleeping RetryDelay between attempts.
func (b *BaseSource) Retry(ctx context.Context, fn func() error) error {
	attempts := b.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.RetryDelay):
		}
	}
	return err
}

func (b *BaseSource) CloseHTTPClient() {
	if b.Client != nil {
		b.Client.CloseIdleConnections()
	}
}

func cacheKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Del("apikey")
	q.Del("token")
	u.RawQuery = q.Encode()
	return u.String()
}
