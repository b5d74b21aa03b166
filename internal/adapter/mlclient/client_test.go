package mlclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

var features = domain.FeatureVector{RainfallMMPerHr: 50, DrainageLevelM: 2, FlowRateLPS: 30}

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, [][]float64{{50, 2, 30}}, req.Features)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[2.1]}`))
	}))
	defer srv.Close()

	level, err := NewClient(srv.URL, 5*time.Second).Predict(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, 2.1, level)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "model not loaded", "status 500"},
		{"bad json", http.StatusOK, "{broken", "decode"},
		{"no predictions", http.StatusOK, `{"predictions":[]}`, "expected 1 prediction"},
		{"too many predictions", http.StatusOK, `{"predictions":[1,2]}`, "expected 1 prediction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, 5*time.Second).Predict(context.Background(), features)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPrediction)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPredict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 50*time.Millisecond).Predict(context.Background(), features)
	assert.ErrorIs(t, err, domain.ErrPrediction)
}

func TestPredict_Unreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", time.Second).Predict(context.Background(), features)
	assert.ErrorIs(t, err, domain.ErrPrediction)
}
