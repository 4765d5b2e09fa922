package model

import (
	"errors"
	"fmt"

	"github.com/sjwhitworth/golearn/base"
	"gonum.org/v1/gonum/mat"
)

const predictionAttribute = "prediction"

// Linear is a fitted linear regression
type Linear struct {
	Disturbance            float64   `mapstructure:"disturbance"`
	RegressionCoefficients []float64 `mapstructure:"regression_coefficients"`
	Attrs                  []string  `mapstructure:"-"`
}

type linearAttr struct {
	Name string `mapstructure:"name"`
}

func decodeLinear(d map[string]interface{}) (*Linear, error) {
	lr := &Linear{}
	if err := decode(d, lr); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if len(lr.RegressionCoefficients) == 0 {
		return nil, errors.New("linear model has no regression coefficients")
	}

	if val, ok := d["attrs"]; ok {
		var attrs []linearAttr
		if err := decode(val, &attrs); err != nil {
			return nil, fmt.Errorf("decode linear model attrs: %w", err)
		}
		if len(attrs) != len(lr.RegressionCoefficients) {
			return nil, fmt.Errorf("linear model has %d attrs for %d coefficients", len(attrs), len(lr.RegressionCoefficients))
		}
		for _, a := range attrs {
			lr.Attrs = append(lr.Attrs, a.Name)
		}
	}
	return lr, nil
}

func (lr *Linear) Kind() string {
	return KindLinear
}

func (lr *Linear) NumFeatures() int {
	return len(lr.RegressionCoefficients)
}

// Predict loads x into golearn instances and evaluates the fitted
// coefficients row by row.
func (lr *Linear) Predict(x *mat.Dense) ([]float64, error) {
	rows, err := checkInput(x, lr.NumFeatures())
	if err != nil {
		return nil, err
	}

	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, lr.NumFeatures())
	for j := range specs {
		specs[j] = inst.AddAttribute(base.NewFloatAttribute(lr.attrName(j)))
	}
	cls := base.NewFloatAttribute(predictionAttribute)
	inst.AddAttribute(cls)
	if err := inst.AddClassAttribute(cls); err != nil {
		return nil, err
	}
	if err := inst.Extend(rows); err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		for j, spec := range specs {
			inst.Set(spec, i, base.PackFloatToBytes(x.At(i, j)))
		}
	}

	ret := base.GeneratePredictionVector(inst)
	clsSpec, err := ret.GetAttribute(cls)
	if err != nil {
		return nil, err
	}

	err = inst.MapOverRows(specs, func(row [][]byte, i int) (bool, error) {
		prediction := lr.Disturbance
		for j, r := range row {
			prediction += base.UnpackBytesToFloat(r) * lr.RegressionCoefficients[j]
		}
		ret.Set(clsSpec, i, base.PackFloatToBytes(prediction))
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	for i := range out {
		out[i] = base.UnpackBytesToFloat(ret.Get(clsSpec, i))
	}
	return out, nil
}

func (lr *Linear) attrName(j int) string {
	if j < len(lr.Attrs) && lr.Attrs[j] != "" {
		return lr.Attrs[j]
	}
	return fmt.Sprintf("x%d", j)
}
