// Package onnx scores feature vectors with an ONNX-exported water level regressor.
package onnx

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// featureCount is the width of the model's input row.
const featureCount = 3

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. An empty libPath uses
// the library's default search path.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Predictor implements domain.Predictor with an ONNX Runtime session. The
// model takes one float32 input of shape [N, 3] in FeatureVector order and
// produces the predicted level as its first output.
type Predictor struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	outputShape ort.Shape
}

// NewPredictor loads the model at modelPath.
func NewPredictor(modelPath, libPath string) (*Predictor, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("onnx: model file: %w", err)
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 model input, got %d", len(inputs))
	}
	if err := validateInputShape(inputs[0].Dimensions); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &Predictor{
		session:     session,
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		outputShape: singleRowShape(outputs[0].Dimensions),
	}, nil
}

// Predict implements domain.Predictor.
func (p *Predictor) Predict(ctx context.Context, f domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPrediction, err)
	}

	in, err := ort.NewTensor(ort.NewShape(1, featureCount), featureRow(f))
	if err != nil {
		return 0, fmt.Errorf("%w: create input tensor: %w", domain.ErrPrediction, err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](p.outputShape)
	if err != nil {
		return 0, fmt.Errorf("%w: create output tensor: %w", domain.ErrPrediction, err)
	}
	defer out.Destroy()

	if err := p.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return 0, fmt.Errorf("%w: inference failed: %w", domain.ErrPrediction, err)
	}

	data := out.GetData()
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty model output %q", domain.ErrPrediction, p.outputName)
	}
	level := float64(data[0])
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return 0, fmt.Errorf("%w: non-finite model output", domain.ErrPrediction)
	}
	return level, nil
}

// Close releases the session.
func (p *Predictor) Close() error {
	return p.session.Destroy()
}

// featureRow lays out features in training column order:
// rainfall_mm_hr, drainage_level_m, flow_rate_lps.
func featureRow(f domain.FeatureVector) []float32 {
	return []float32{
		float32(f.RainfallMMPerHr),
		float32(f.DrainageLevelM),
		float32(f.FlowRateLPS),
	}
}

func validateInputShape(dims ort.Shape) error {
	if len(dims) != 2 {
		return fmt.Errorf("onnx: expected 2D input tensor, got %v", dims)
	}
	if dims[1] != featureCount && dims[1] > 0 {
		return fmt.Errorf("onnx: expected %d input features, got %d", featureCount, dims[1])
	}
	return nil
}

// singleRowShape fixes dynamic dimensions to 1 for a one-row batch.
func singleRowShape(dims ort.Shape) ort.Shape {
	if len(dims) == 0 {
		return ort.NewShape(1)
	}
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
	}
	return shape
}
