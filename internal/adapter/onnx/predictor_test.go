package onnx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func TestFeatureRow_Order(t *testing.T) {
	row := featureRow(domain.FeatureVector{RainfallMMPerHr: 50, DrainageLevelM: 2, FlowRateLPS: 30})
	assert.Equal(t, []float32{50, 2, 30}, row)
}

func TestValidateInputShape(t *testing.T) {
	assert.NoError(t, validateInputShape(ort.NewShape(-1, 3)))
	assert.NoError(t, validateInputShape(ort.NewShape(1, 3)))
	assert.NoError(t, validateInputShape(ort.NewShape(-1, -1)))
	assert.Error(t, validateInputShape(ort.NewShape(-1, 4)))
	assert.Error(t, validateInputShape(ort.NewShape(3)))
}

func TestSingleRowShape(t *testing.T) {
	assert.Equal(t, ort.NewShape(1, 1), singleRowShape(ort.NewShape(-1, 1)))
	assert.Equal(t, ort.NewShape(1), singleRowShape(ort.NewShape(-1)))
	assert.Equal(t, ort.NewShape(1), singleRowShape(nil))
}

func TestNewPredictor_MissingModel(t *testing.T) {
	_, err := NewPredictor(filepath.Join(t.TempDir(), "missing.onnx"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file")
}

// TestPredictor_Model runs against a real exported model when one is
// available via ONNX_TEST_MODEL (and ONNX_RUNTIME_LIB if needed).
func TestPredictor_Model(t *testing.T) {
	modelPath := os.Getenv("ONNX_TEST_MODEL")
	if modelPath == "" {
		t.Skip("ONNX_TEST_MODEL not set")
	}
	if _, err := os.Stat(modelPath); err != nil {
		t.Skipf("model not available: %v", err)
	}

	p, err := NewPredictor(modelPath, os.Getenv("ONNX_RUNTIME_LIB"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	level, err := p.Predict(context.Background(), domain.FeatureVector{RainfallMMPerHr: 50, DrainageLevelM: 2, FlowRateLPS: 30})
	require.NoError(t, err)
	assert.Greater(t, level, 0.0)
}
