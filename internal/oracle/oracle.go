// Package oracle asks an external scorer how confident it is in a validated signal.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/paper"
	"meanrev-go/internal/risk"
	"meanrev-go/internal/signal"
)

// Request carries only data dated on or before Date.
type Request struct {
	Stock      string         `json:"stock"`
	Date       time.Time      `json:"date"`
	Historical paper.Snapshot `json:"historical"`
	Signal     *signal.Signal `json:"signal"`
	Scores     risk.Scores    `json:"scores"`
	Window     []frame.Bar    `json:"window"`
}

// Oracle scores a request in [0,1].
type Oracle interface {
	Score(ctx context.Context, req Request) (float64, error)
}

// Bypass is used when no oracle is configured; every signal gets full confidence.
type Bypass struct{}

func (Bypass) Score(context.Context, Request) (float64, error) { return 1, nil }

type response struct {
	Confidence *float64 `json:"confidence"`
}

type statusError struct{ code int }

func (e statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

// HTTPOracle POSTs requests as JSON and reads {"confidence": x}.
type HTTPOracle struct {
	url     string
	apiKey  string
	retries int
	backoff time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPOracle builds a client from config.
func NewHTTPOracle(cfg config.Oracle, log zerolog.Logger) *HTTPOracle {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &HTTPOracle{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		retries: retries,
		backoff: 100 * time.Millisecond,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// New returns an HTTPOracle when enabled, otherwise Bypass.
func New(cfg config.Oracle, log zerolog.Logger) Oracle {
	if !cfg.Enabled {
		return Bypass{}
	}
	return NewHTTPOracle(cfg, log)
}

// Score retries transport failures and 5xx responses with linear backoff. The confidence is
// clamped to [0,1].
func (o *HTTPOracle) Score(ctx context.Context, req Request) (float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode oracle request: %w", err)
	}
	for attempt := 1; ; attempt++ {
		conf, err := o.post(ctx, body)
		if err == nil {
			return clamp(conf), nil
		}
		var se statusError
		if attempt >= o.retries || (errors.As(err, &se) && se.code < 500) {
			return 0, fmt.Errorf("oracle score %s: %w", req.Stock, err)
		}
		o.log.Debug().Err(err).Str("stock", req.Stock).Int("attempt", attempt).Msg("oracle call failed, retrying")
		select {
		case <-time.After(time.Duration(attempt) * o.backoff):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (o *HTTPOracle) post(ctx context.Context, body []byte) (float64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "meanrev-go/1.0 (oracle)")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, statusError{code: resp.StatusCode}
	}
	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode oracle response: %w", err)
	}
	if payload.Confidence == nil || math.IsNaN(*payload.Confidence) {
		return 0, errors.New("oracle response missing confidence")
	}
	return *payload.Confidence, nil
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
