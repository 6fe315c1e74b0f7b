package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/callpulse/hub/internal/metrics"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

const maxResponseBytes = 1 << 20

var (
	ErrEmptyResult = errors.New("model returned no predictions")
	ErrMalformed   = errors.New("model returned malformed output")
)

type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length"`
}

// HTTPClassifier calls a text-classification inference server speaking the
// Hugging Face inference protocol. It is the only place that interprets the
// model's native output shape.
type HTTPClassifier struct {
	client *http.Client
	url    string
	token  string
	cb     circuitbreaker.CircuitBreaker[any]
}

// NewHTTP builds a classifier for model served under endpoint. Calls are
// bounded by timeout and guarded by a circuit breaker: while the breaker is
// open every call returns Unknown without touching the network.
func NewHTTP(endpoint, model, token string, timeout time.Duration) *HTTPClassifier {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "classifier",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.ClassifierCircuitState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &HTTPClassifier{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(endpoint, "/") + "/models/" + model,
		token:  token,
		cb:     cb,
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string, maxLength int) Result {
	if !c.cb.TryAcquirePermit() {
		metrics.ClassifierFailuresTotal.WithLabelValues("circuit_open").Inc()
		return Unknown
	}

	start := time.Now()
	res, err := c.infer(ctx, Truncate(text, maxLength), maxLength)
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrEmptyResult):
		c.cb.RecordSuccess()
		metrics.ClassifierFailuresTotal.WithLabelValues("empty").Inc()
		return Unknown
	case err != nil:
		c.cb.RecordError(err)
		slog.Warn("Classification failed", "error", err)
		metrics.ClassifierFailuresTotal.WithLabelValues("error").Inc()
		return Unknown
	}

	c.cb.RecordSuccess()
	return res
}

func (c *HTTPClassifier) infer(ctx context.Context, text string, maxLength int) (Result, error) {
	body, err := json.Marshal(inferenceRequest{
		Inputs:     text,
		Parameters: inferenceParameters{Truncation: true, MaxLength: maxLength},
	})
	if err != nil {
		return Unknown, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Unknown, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Unknown, fmt.Errorf("calling model: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Unknown, fmt.Errorf("reading model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Unknown, fmt.Errorf("model returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	return parsePredictions(data)
}

// parsePredictions accepts both the flat [{label,score}] and the batched
// [[{label,score}]] response shapes and returns the highest-scoring label.
func parsePredictions(data []byte) (Result, error) {
	var preds []prediction
	if err := json.Unmarshal(data, &preds); err != nil {
		var batched [][]prediction
		if err := json.Unmarshal(data, &batched); err != nil {
			return Unknown, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(batched) > 0 {
			preds = batched[0]
		}
	}
	if len(preds) == 0 {
		return Unknown, ErrEmptyResult
	}

	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	res := Result{Label: best.Label, Score: best.Score}
	if !res.Valid() {
		return Unknown, fmt.Errorf("%w: %+v", ErrMalformed, best)
	}
	return res, nil
}
