// SPDX-License-Identifier: MIT

// Package monetization attaches affiliate recommendations to signals under
// the product guardrails: nothing when conditions are normal, never more
// than one suggestion per signal, and always a muted disclosure line.
package monetization

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/daymark-app/daymark/internal/signal"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog wraps catalog validation failures.
var ErrInvalidCatalog = errors.New("invalid affiliate catalog")

// Product is one affiliate offer.
type Product struct {
	ID       string          `yaml:"id" json:"id"`
	Name     string          `yaml:"name" json:"name"`
	Merchant string          `yaml:"merchant" json:"merchant"`
	URL      string          `yaml:"url" json:"url"`
	Hazards  []signal.Hazard `yaml:"hazards" json:"hazards"`
	MinLevel signal.Level    `yaml:"minLevel" json:"min_level"`
	Active   bool            `yaml:"active" json:"active"`
}

// Validate checks a single product entry.
func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.URL, validation.Required, is.URL),
		validation.Field(&p.Hazards, validation.Required, validation.Each(validation.By(func(v any) error {
			if h, _ := v.(signal.Hazard); !h.Valid() {
				return validation.NewError("catalog.hazard_unknown", fmt.Sprintf("unknown hazard %q", v))
			}
			return nil
		}))),
		validation.Field(&p.MinLevel, validation.Required, validation.By(func(v any) error {
			l, _ := v.(signal.Level)
			if !l.Valid() || l == signal.LevelGreen {
				return validation.NewError("catalog.min_level_invalid", "minLevel must be AMBER or RED")
			}
			return nil
		})),
	)
}

// Addresses reports whether the product is relevant to hazard h.
func (p Product) Addresses(h signal.Hazard) bool {
	for _, ph := range p.Hazards {
		if ph == h {
			return true
		}
	}
	return false
}

// Catalog is an ordered list of products.
type Catalog struct {
	Products []Product `yaml:"products" json:"products"`
}

// Validate checks every product and rejects duplicate IDs.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Products))
	for i, p := range c.Products {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: product %d (%s): %v", ErrInvalidCatalog, i, p.ID, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate product id %q", ErrInvalidCatalog, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// ParseCatalog decodes and validates a YAML catalog. Unknown keys are rejected.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalog)
}
