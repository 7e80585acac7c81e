// SPDX-License-Identifier: MIT

package policy

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed monetization.md
var monetizationDoc []byte

// DocumentMeta is the YAML front matter of a policy document.
type DocumentMeta struct {
	Title   string `yaml:"title" json:"title"`
	Version string `yaml:"version" json:"version"`
	Updated string `yaml:"updated" json:"updated"`
}

// Document is a rendered policy document.
type Document struct {
	Meta     DocumentMeta
	Markdown []byte
	HTML     template.HTML
}

// RenderDocument splits front matter from src and renders the body with
// GitHub-flavoured markdown. Raw HTML in the source is not passed through.
func RenderDocument(src []byte) (Document, error) {
	var meta DocumentMeta
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return Document{}, fmt.Errorf("policy front matter: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return Document{}, fmt.Errorf("policy markdown: %w", err)
	}

	return Document{
		Meta:     meta,
		Markdown: body,
		// goldmark escapes raw HTML unless html.WithUnsafe is set.
		HTML: template.HTML(buf.String()), //nolint:gosec
	}, nil
}

// MonetizationPolicy renders the embedded monetization policy.
func MonetizationPolicy() (Document, error) {
	return RenderDocument(monetizationDoc)
}
