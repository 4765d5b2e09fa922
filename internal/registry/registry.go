// Package registry discovers paired model artifacts in a storage namespace
// and loads them on demand.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/logger"
	"github.com/kartoza/goodspeed/internal/storage"
)

var (
	// ErrNoModels means discovery found no usable artifact pair
	ErrNoModels = errors.New("no models available")

	// ErrUnknownModel means a label is not in the catalog
	ErrUnknownModel = errors.New("unknown model")
)

// Entry is one discovered artifact pair
type Entry struct {
	Label string `json:"label"`
	Key   string `json:"key"`

	ModelName      string `json:"modelName"`
	ColumnsName    string `json:"columnsName"`
	VocabularyName string `json:"vocabularyName,omitempty"`
}

// Catalog is the result of one discovery scan, in storage listing order
type Catalog struct {
	entries []Entry
	byLabel map[string]int
}

// Labels returns the entry labels in catalog order
func (c *Catalog) Labels() []string {
	labels := make([]string, len(c.entries))
	for i, e := range c.entries {
		labels[i] = e.Label
	}
	return labels
}

// Entries returns a copy of all entries
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Get looks up an entry by label
func (c *Catalog) Get(label string) (Entry, bool) {
	i, ok := c.byLabel[label]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Label derives a display label from an artifact key: separators become
// spaces and every word is title cased.
func Label(key string) string {
	return titleCase(strings.ReplaceAll(key, "_", " "))
}

// titleCase upper cases a cased letter that follows an uncased rune and
// lower cases every other cased letter, so "line3b" becomes "Line3B".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := isCased(r)
		switch {
		case cased && !prevCased:
			b.WriteRune(unicode.ToTitle(r))
		case cased:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}

// Discover lists ns and pairs every model artifact with its feature column
// artifact. Model artifacts without a column list are skipped. It returns
// ErrNoModels when nothing pairs up.
func Discover(ctx context.Context, ns storage.Namespace, cfg config.RegistryConfig) (*Catalog, error) {
	names, err := ns.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ns, err)
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	c := &Catalog{byLabel: make(map[string]int)}
	for _, name := range names {
		if !strings.HasPrefix(name, cfg.ModelPrefix) || !strings.HasSuffix(name, cfg.Suffix) {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(name, cfg.ModelPrefix), cfg.Suffix)
		if key == "" {
			continue
		}

		columns := cfg.ColumnsPrefix + key + cfg.Suffix
		if !present[columns] {
			logger.Debugf("skip %s: no %s", name, columns)
			continue
		}

		entry := Entry{
			Label:       Label(key),
			Key:         key,
			ModelName:   name,
			ColumnsName: columns,
		}
		if cfg.VocabularyPrefix != "" {
			if vocab := cfg.VocabularyPrefix + key + cfg.Suffix; present[vocab] {
				entry.VocabularyName = vocab
			}
		}

		if prev, ok := c.byLabel[entry.Label]; ok {
			logger.Warnf("skip %s: label %q already used by %s", name, entry.Label, c.entries[prev].ModelName)
			continue
		}
		c.byLabel[entry.Label] = len(c.entries)
		c.entries = append(c.entries, entry)
	}

	if len(c.entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoModels, ns)
	}
	logger.Infof("discovered %d models in %s", len(c.entries), ns)
	return c, nil
}
