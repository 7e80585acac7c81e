// SPDX-License-Identifier: MIT

// Package county provides Florida county metadata used by the risk model.
package county

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed counties.yaml
var embedded []byte

// ErrUnknownCounty is returned by Lookup for names not in the registry.
var ErrUnknownCounty = errors.New("unknown county")

// County is one county's static metadata.
type County struct {
	Name    string  `yaml:"name" json:"name"`
	FIPS    string  `yaml:"fips" json:"fips"`
	Density float64 `yaml:"density" json:"density"`
}

// Registry is a case-insensitive county index.
type Registry struct {
	byKey map[string]County
}

var (
	folder = cases.Fold()
	titler = cases.Title(language.AmericanEnglish)
)

func key(name string) string {
	k := folder.String(strings.TrimSpace(name))
	k = strings.TrimSuffix(k, " county")
	return strings.Join(strings.Fields(k), " ")
}

// Normalize returns the display form of a user supplied county name.
func Normalize(name string) string {
	return titler.String(strings.Join(strings.Fields(name), " "))
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Counties []County `yaml:"counties"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse counties: %w", err)
	}
	r := &Registry{byKey: make(map[string]County, len(doc.Counties))}
	for _, c := range doc.Counties {
		if c.Name == "" || c.Density < 0 {
			return nil, fmt.Errorf("parse counties: invalid entry %+v", c)
		}
		k := key(c.Name)
		if _, dup := r.byKey[k]; dup {
			return nil, fmt.Errorf("parse counties: duplicate %q", c.Name)
		}
		r.byKey[k] = c
	}
	return r, nil
}

// Load reads a registry from path, or the embedded Florida list when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read counties: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded Florida registry.
func Default() (*Registry, error) {
	return Parse(embedded)
}

// Lookup finds a county by name, ignoring case, surrounding space and a
// trailing "County".
func (r *Registry) Lookup(name string) (County, error) {
	if c, ok := r.byKey[key(name)]; ok {
		return c, nil
	}
	return County{}, fmt.Errorf("%w: %s", ErrUnknownCounty, Normalize(name))
}

// Names returns all county names sorted alphabetically.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byKey))
	for _, c := range r.byKey {
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return out
}
