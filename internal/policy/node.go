// SPDX-License-Identifier: MIT

package policy

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind is the type of a UI node.
type Kind string

const (
	KindPage           Kind = "page"
	KindCard           Kind = "card"
	KindSignalCard     Kind = "signal_card"
	KindRecommendation Kind = "recommendation"
	KindDisclosure     Kind = "disclosure"
	KindBanner         Kind = "banner"
	KindAd             Kind = "ad"
	KindText           Kind = "text"
)

// Node is one element of a rendered UI tree.
type Node struct {
	Kind     Kind    `json:"kind"`
	ID       string  `json:"id,omitempty"`
	Level    string  `json:"level,omitempty"`
	Style    string  `json:"style,omitempty"`
	Size     string  `json:"size,omitempty"`
	Text     string  `json:"text,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// ErrInvalidTree is returned when a document does not match the UI node schema.
var ErrInvalidTree = errors.New("invalid ui tree")

const schemaURL = "https://daymark.app/schemas/ui-node.json"

//go:embed node.schema.json
var nodeSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(nodeSchema)); err != nil {
			schemaErr = fmt.Errorf("add ui schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ParseTree validates data against the UI node schema and decodes it.
func ParseTree(data []byte) (*Node, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}

	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	return &root, nil
}
