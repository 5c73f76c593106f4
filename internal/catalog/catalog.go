// Package catalog loads the item catalog that queries are matched against.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

//go:embed default.yaml
var defaultCatalog []byte

type file struct {
	Items []domain.CatalogItem `yaml:"items"`
}

// Load reads a YAML catalog from path. An empty path loads the built-in catalog.
func Load(path string) ([]domain.CatalogItem, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	items, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return items, nil
}

// Default returns the built-in ten-item fashion catalog.
func Default() ([]domain.CatalogItem, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]domain.CatalogItem, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
	}
	if err := Validate(f.Items); err != nil {
		return nil, err
	}
	return f.Items, nil
}

// Validate requires at least one item, unique non-empty ids and non-empty descriptions.
func Validate(items []domain.CatalogItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", domain.ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return fmt.Errorf("%w: item %d has an empty id", domain.ErrInvalidCatalog, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidCatalog, id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(it.Description) == "" {
			return fmt.Errorf("%w: item %q has an empty description", domain.ErrInvalidCatalog, id)
		}
	}
	return nil
}

// Vibes returns the sorted set of tags used across items.
func Vibes(items []domain.CatalogItem) []string {
	set := make(map[string]struct{})
	for _, it := range items {
		for _, t := range it.Tags {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
