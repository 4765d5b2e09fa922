// Package schema recovers the categorical vocabulary a model was trained on
// from its one-hot encoded feature column names.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Separator joins a categorical field name and one of its values in an
// encoded column name.
const Separator = "_"

// Vocabulary maps a categorical field name to its allowed values, sorted
type Vocabulary map[string][]string

// Introspector yields the categorical vocabulary of one model
type Introspector interface {
	Vocabulary(fieldNames []string) Vocabulary
}

// CategoricalVocabulary collects, for each field, the distinct values v for
// which "{field}_{v}" appears in featureColumns. A column matching several
// fields belongs to the longest one, so "Coil_type_A" is claimed by
// "Coil_type" and not by "Coil". Fields without columns map to an empty
// slice.
func CategoricalVocabulary(featureColumns, fieldNames []string) Vocabulary {
	sets := make(map[string]map[string]struct{}, len(fieldNames))
	for _, name := range fieldNames {
		sets[name] = make(map[string]struct{})
	}

	for _, column := range featureColumns {
		field, value, ok := Claim(column, fieldNames)
		if !ok {
			continue
		}
		sets[field][value] = struct{}{}
	}

	vocab := make(Vocabulary, len(fieldNames))
	for name, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		vocab[name] = values
	}
	return vocab
}

// Claim returns the field and value encoded in column, if any field in
// fieldNames claims it.
func Claim(column string, fieldNames []string) (field, value string, ok bool) {
	for _, name := range fieldNames {
		prefix := name + Separator
		if len(column) <= len(prefix) || !strings.HasPrefix(column, prefix) {
			continue
		}
		if ok && len(name) <= len(field) {
			continue
		}
		field, value, ok = name, column[len(prefix):], true
	}
	return field, value, ok
}

// Unclaimed lists feature columns that are neither a numeric field nor an
// encoded value of a categorical field, in feature column order.
func Unclaimed(featureColumns, categorical, numeric []string) []string {
	known := make(map[string]bool, len(numeric))
	for _, name := range numeric {
		known[name] = true
	}

	var out []string
	for _, column := range featureColumns {
		if known[column] {
			continue
		}
		if _, _, ok := Claim(column, categorical); ok {
			continue
		}
		out = append(out, column)
	}
	return out
}

// ColumnIntrospector derives vocabulary from feature column names
type ColumnIntrospector struct {
	columns []string
}

// NewColumnIntrospector returns an introspector over a copy of columns
func NewColumnIntrospector(columns []string) *ColumnIntrospector {
	return &ColumnIntrospector{columns: append([]string(nil), columns...)}
}

func (c *ColumnIntrospector) Vocabulary(fieldNames []string) Vocabulary {
	return CategoricalVocabulary(c.columns, fieldNames)
}

// ManifestIntrospector serves vocabulary from an explicit manifest
type ManifestIntrospector struct {
	manifest Vocabulary
}

// DecodeManifest reads a JSON object of field name to value list
func DecodeManifest(r io.Reader) (*ManifestIntrospector, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode vocabulary manifest: %w", err)
	}

	manifest := make(Vocabulary, len(raw))
	for field, values := range raw {
		seen := make(map[string]bool, len(values))
		uniq := make([]string, 0, len(values))
		for _, v := range values {
			if v == "" {
				return nil, fmt.Errorf("vocabulary manifest: field %q has an empty value", field)
			}
			if seen[v] {
				continue
			}
			seen[v] = true
			uniq = append(uniq, v)
		}
		sort.Strings(uniq)
		manifest[field] = uniq
	}
	return &ManifestIntrospector{manifest: manifest}, nil
}

func (m *ManifestIntrospector) Vocabulary(fieldNames []string) Vocabulary {
	vocab := make(Vocabulary, len(fieldNames))
	for _, name := range fieldNames {
		vocab[name] = append([]string{}, m.manifest[name]...)
	}
	return vocab
}
