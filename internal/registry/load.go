package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kartoza/goodspeed/internal/model"
	"github.com/kartoza/goodspeed/internal/schema"
	"github.com/kartoza/goodspeed/internal/storage"
)

// Model is a loaded entry. It is never mutated after Load.
type Model struct {
	Entry

	regressor      model.Regressor
	featureColumns []string
	introspector   schema.Introspector
}

// FeatureColumns returns a copy of the ordered feature column list
func (m *Model) FeatureColumns() []string {
	return append([]string(nil), m.featureColumns...)
}

// NumFeatures returns the feature column count
func (m *Model) NumFeatures() int {
	return len(m.featureColumns)
}

// Regressor returns the decoded predictor
func (m *Model) Regressor() model.Regressor {
	return m.regressor
}

// Introspector returns the vocabulary source for the input form
func (m *Model) Introspector() schema.Introspector {
	return m.introspector
}

// NewModel assembles a model from already decoded parts
func NewModel(entry Entry, reg model.Regressor, featureColumns []string, in schema.Introspector) (*Model, error) {
	if err := validateColumns(featureColumns); err != nil {
		return nil, err
	}
	if reg.NumFeatures() != len(featureColumns) {
		return nil, fmt.Errorf("model %s expects %d features but %s lists %d",
			entry.ModelName, reg.NumFeatures(), entry.ColumnsName, len(featureColumns))
	}
	if in == nil {
		in = schema.NewColumnIntrospector(featureColumns)
	}
	return &Model{
		Entry:          entry,
		regressor:      reg,
		featureColumns: append([]string(nil), featureColumns...),
		introspector:   in,
	}, nil
}

// Load reads and decodes both artifacts of entry, plus its vocabulary
// manifest when there is one.
func Load(ctx context.Context, ns storage.Namespace, entry Entry) (*Model, error) {
	data, err := storage.ReadAll(ctx, ns, entry.ModelName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.ModelName, err)
	}
	reg, err := model.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.ModelName, err)
	}

	data, err = storage.ReadAll(ctx, ns, entry.ColumnsName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.ColumnsName, err)
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("decode %s: %w", entry.ColumnsName, err)
	}

	var in schema.Introspector
	if entry.VocabularyName != "" {
		data, err = storage.ReadAll(ctx, ns, entry.VocabularyName)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.VocabularyName, err)
		}
		manifest, err := schema.DecodeManifest(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.VocabularyName, err)
		}
		in = manifest
	}

	return NewModel(entry, reg, columns, in)
}

func validateColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("feature column list is empty")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return fmt.Errorf("feature column list contains an empty name")
		}
		if seen[c] {
			return fmt.Errorf("feature column %q is listed twice", c)
		}
		seen[c] = true
	}
	return nil
}
