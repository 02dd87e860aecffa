// Package supabase provides the adapters for Supabase: PostgREST as the
// record store and GoTrue as the identity provider.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/portalcadastro/cadastro-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to a Supabase project. It implements both
// port.RecordStore (PostgREST) and port.IdentityProvider (GoTrue).
type Client struct {
	httpClient     *http.Client
	baseURL        string
	anonKey        string
	serviceRoleKey string
	siteURL        string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client. siteURL may be empty; when set it is
// used as the post-confirmation redirect base for provider sign-ups.
func NewClient(httpClient *http.Client, baseURL, anonKey, serviceRoleKey, siteURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		anonKey:        anonKey,
		serviceRoleKey: serviceRoleKey,
		siteURL:        siteURL,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// apiError is the error body PostgREST and GoTrue return on non-2xx.
type apiError struct {
	Code      string `json:"code"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Msg       string `json:"msg"`
	Details   string `json:"details"`
}

func (e *apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// do issues one request through the breaker and bulkhead. The bearer token
// is the service-role key unless anon is set (GoTrue sign-up runs with the
// public key; only the admin user endpoints need the service role).
func (c *Client) do(ctx context.Context, method, url string, payload any, anon bool) (body []byte, status int, err error) {
	_, execErr := c.cb.Execute(func() (any, error) {
		if err := c.bulkhead.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.bulkhead.Release()

		var reqBody io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reqBody = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, err
		}

		key := c.serviceRoleKey
		if anon {
			key = c.anonKey
		}
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", key))
		req.Header.Set("Content-Type", "application/json")
		if method == http.MethodPost {
			req.Header.Set("Prefer", "return=representation")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("supabase: request failed",
				zap.String("method", method),
				zap.String("url", url),
				zap.Error(err),
			)
			return nil, err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		status = resp.StatusCode
		return nil, nil
	})
	if execErr != nil {
		return nil, 0, execErr
	}
	return body, status, nil
}

func decodeAPIError(body []byte) *apiError {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err != nil {
		return &apiError{Message: string(body)}
	}
	if ae.text() == "" {
		ae.Message = string(body)
	}
	return &ae
}
