package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModelServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClassifier_FlatResponse(t *testing.T) {
	var gotReq inferenceRequest
	var gotPath, gotAuth string
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`[{"label":"anger","score":0.85}]`))
	})

	c := NewHTTP(srv.URL+"/", "acme/emotion", "secret", time.Second)
	res := c.Classify(context.Background(), "I am furious about this bill", 256)

	assert.Equal(t, Result{Label: "anger", Score: 0.85}, res)
	assert.Equal(t, "/models/acme/emotion", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "I am furious about this bill", gotReq.Inputs)
	assert.True(t, gotReq.Parameters.Truncation)
	assert.Equal(t, 256, gotReq.Parameters.MaxLength)
}

func TestHTTPClassifier_TruncatesInput(t *testing.T) {
	var gotReq inferenceRequest
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`[{"label":"joy","score":0.9}]`))
	})

	c := NewHTTP(srv.URL, "m", "", time.Second)
	c.Classify(context.Background(), "The weather is nice today", 7)

	assert.Equal(t, "The wea", gotReq.Inputs)
	assert.Equal(t, 7, gotReq.Parameters.MaxLength)
}

func TestHTTPClassifier_BatchedResponsePicksHighestScore(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[{"label":"neutral","score":0.2},{"label":"joy","score":0.7},{"label":"fear","score":0.1}]]`))
	})

	c := NewHTTP(srv.URL, "m", "", time.Second)
	assert.Equal(t, Result{Label: "joy", Score: 0.7}, c.Classify(context.Background(), "nice", 256))
}

func TestHTTPClassifier_FailuresReturnUnknown(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"malformed json", http.StatusOK, `not json`},
		{"wrong shape", http.StatusOK, `{"label":"joy"}`},
		{"empty list", http.StatusOK, `[]`},
		{"empty batch", http.StatusOK, `[[]]`},
		{"score out of range", http.StatusOK, `[{"label":"joy","score":3}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			c := NewHTTP(srv.URL, "m", "", time.Second)
			assert.Equal(t, Unknown, c.Classify(context.Background(), "text", 256))
		})
	}
}

func TestHTTPClassifier_UnreachableReturnsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTP(url, "m", "", 200*time.Millisecond)
	assert.Equal(t, Unknown, c.Classify(context.Background(), "text", 256))
}

func TestHTTPClassifier_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	c := NewHTTP(srv.URL, "m", "", time.Second)
	for range 20 {
		require.Equal(t, Unknown, c.Classify(context.Background(), "text", 256))
	}

	assert.Less(t, int(hits.Load()), 20, "open circuit should stop calls reaching the model")
}

func TestParsePredictions(t *testing.T) {
	res, err := parsePredictions([]byte(`[{"label":"sadness","score":0.61}]`))
	require.NoError(t, err)
	assert.Equal(t, Result{Label: "sadness", Score: 0.61}, res)

	_, err = parsePredictions([]byte(`[]`))
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = parsePredictions([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformed)
}
