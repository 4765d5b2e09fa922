package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const leaf = -1

// Node is one split or leaf of a regression tree. A node whose Left is -1
// is a leaf holding Value; otherwise rows with x[Feature] <= Threshold go
// Left and the rest go Right.
type Node struct {
	Feature   int     `mapstructure:"feature"`
	Threshold float64 `mapstructure:"threshold"`
	Left      int     `mapstructure:"left"`
	Right     int     `mapstructure:"right"`
	Value     float64 `mapstructure:"value"`
}

// Tree is a regression tree rooted at Nodes[0]
type Tree struct {
	Nodes []Node `mapstructure:"nodes"`
}

// Forest averages the predictions of its trees
type Forest struct {
	Features int    `mapstructure:"n_features"`
	Trees    []Tree `mapstructure:"trees"`
}

func decodeForest(d map[string]interface{}) (*Forest, error) {
	f := &Forest{}
	if err := decode(d, f); err != nil {
		return nil, fmt.Errorf("decode forest model: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid forest model: %w", err)
	}
	return f, nil
}

// validate checks every split references a known feature and children
// that come after their parent, so evaluation always reaches a leaf.
func (f *Forest) validate() error {
	if f.Features <= 0 {
		return errors.New("n_features must be positive")
	}
	if len(f.Trees) == 0 {
		return errors.New("no trees")
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", t)
		}
		for i, n := range tree.Nodes {
			if n.Left == leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.Features {
				return fmt.Errorf("tree %d node %d: feature %d out of range", t, i, n.Feature)
			}
			if n.Left <= i || n.Left >= len(tree.Nodes) || n.Right <= i || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid children %d, %d", t, i, n.Left, n.Right)
			}
		}
	}
	return nil
}

func (f *Forest) Kind() string {
	return KindForest
}

func (f *Forest) NumFeatures() int {
	return f.Features
}

func (f *Forest) Predict(x *mat.Dense) ([]float64, error) {
	rows, err := checkInput(x, f.Features)
	if err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].eval(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

func (t *Tree) eval(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
