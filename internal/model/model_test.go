package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const linearArtifact = `{
	"kind": "linear",
	"disturbance": 100,
	"regression_coefficients": [0.5, 10, -10, 2],
	"attrs": [{"name": "Good Qty (Can)"}, {"name": "Can Size_Slim 180"}, {"name": "Can Size_Slim 250"}, {"name": "Drink Type_Retort"}]
}`

// Two stumps on feature 0 and one leaf-only tree.
const forestArtifact = `{
	"kind": "forest",
	"n_features": 2,
	"trees": [
		{"nodes": [
			{"feature": 0, "threshold": 10, "left": 1, "right": 2},
			{"left": -1, "value": 1},
			{"left": -1, "value": 3}
		]},
		{"nodes": [
			{"feature": 1, "threshold": 0.5, "left": 1, "right": 2},
			{"left": -1, "value": 5},
			{"left": -1, "value": 7}
		]},
		{"nodes": [{"left": -1, "value": 6}]}
	]
}`

func TestDecodeLinear(t *testing.T) {
	reg, err := Decode(strings.NewReader(linearArtifact))
	require.NoError(t, err)
	assert.Equal(t, KindLinear, reg.Kind())
	assert.Equal(t, 4, reg.NumFeatures())

	x := mat.NewDense(2, 4, []float64{
		600000, 1, 0, 1,
		1000, 0, 1, 0,
	})
	preds, err := reg.Predict(x)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.InDelta(t, 100+300000+10+2, preds[0], 1e-6)
	assert.InDelta(t, 100+500-10, preds[1], 1e-6)
}

func TestDecodeForest(t *testing.T) {
	reg, err := Decode(strings.NewReader(forestArtifact))
	require.NoError(t, err)
	assert.Equal(t, KindForest, reg.Kind())
	assert.Equal(t, 2, reg.NumFeatures())

	x := mat.NewDense(3, 2, []float64{
		5, 0,
		20, 1,
		10, 0.5,
	})
	preds, err := reg.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 16.0 / 3, 4}, preds)
}

func TestPredictShapeMismatch(t *testing.T) {
	reg, err := Decode(strings.NewReader(linearArtifact))
	require.NoError(t, err)

	_, err = reg.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	assert.EqualError(t, err, "model expects 4 features, got 3")

	_, err = reg.Predict(nil)
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		expect   string
	}{
		{"not json", `rf`, "decode model artifact"},
		{"no kind", `{"disturbance": 1}`, "model artifact has no kind"},
		{"unknown kind", `{"kind": "svm"}`, `unsupported model kind "svm"`},
		{"no coefficients", `{"kind": "linear", "disturbance": 1}`, "no regression coefficients"},
		{"attrs mismatch", `{"kind": "linear", "regression_coefficients": [1, 2], "attrs": [{"name": "a"}]}`, "1 attrs for 2 coefficients"},
		{"no trees", `{"kind": "forest", "n_features": 1, "trees": []}`, "no trees"},
		{"no features", `{"kind": "forest", "trees": [{"nodes": [{"left": -1}]}]}`, "n_features must be positive"},
		{"feature out of range", `{"kind": "forest", "n_features": 1, "trees": [{"nodes": [{"feature": 3, "left": 1, "right": 2}, {"left": -1}, {"left": -1}]}]}`, "feature 3 out of range"},
		{"cycle", `{"kind": "forest", "n_features": 1, "trees": [{"nodes": [{"feature": 0, "left": 0, "right": 1}, {"left": -1}]}]}`, "invalid children"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.artifact))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expect)
		})
	}
}
