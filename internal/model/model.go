// Package model decodes trained regressor artifacts and evaluates them on
// encoded feature matrices.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/mat"
)

const (
	KindLinear = "linear"
	KindForest = "forest"
)

// Regressor predicts one value per row of an encoded feature matrix
type Regressor interface {
	Predict(x *mat.Dense) ([]float64, error)
	NumFeatures() int
	Kind() string
}

// Decode reads a JSON model artifact. The "kind" key selects the regressor.
func Decode(r io.Reader) (Regressor, error) {
	var d map[string]interface{}
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	kind, _ := d["kind"].(string)
	switch kind {
	case KindLinear:
		return decodeLinear(d)
	case KindForest:
		return decodeForest(d)
	case "":
		return nil, errors.New("model artifact has no kind")
	default:
		return nil, fmt.Errorf("unsupported model kind %q", kind)
	}
}

func decode(input interface{}, output interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func checkInput(x *mat.Dense, features int) (int, error) {
	if x == nil {
		return 0, errors.New("no input rows")
	}
	rows, cols := x.Dims()
	if cols != features {
		return 0, fmt.Errorf("model expects %d features, got %d", features, cols)
	}
	return rows, nil
}
