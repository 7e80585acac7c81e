// SPDX-License-Identifier: MIT

// Package policy holds the monetization guardrails: the published policy
// document and a linter that checks rendered UI trees against it.
package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule identifiers reported by Lint.
const (
	RuleNoBannerAds         = "no-banner-ads"
	RuleOneSuggestion       = "one-suggestion-per-signal"
	RuleNoProductWhenNormal = "no-product-when-normal"
	RuleDisclosureRequired  = "disclosure-required"
	RuleDisclosureMuted     = "disclosure-muted"
	RuleRecommendationScope = "recommendation-in-signal"
)

// Violation is one broken guardrail.
type Violation struct {
	Rule    string `json:"rule"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Lint walks the tree and reports every guardrail violation in document order.
func Lint(root *Node) []Violation {
	if root == nil {
		return nil
	}
	l := &linter{}
	l.walk(root, string(root.Kind), false)
	return l.out
}

type linter struct {
	out []Violation
}

func (l *linter) add(rule, path, format string, args ...any) {
	l.out = append(l.out, Violation{Rule: rule, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *linter) walk(n *Node, path string, inSignal bool) {
	switch n.Kind {
	case KindBanner, KindAd:
		l.add(RuleNoBannerAds, path, "%s elements are not allowed", n.Kind)
	case KindSignalCard:
		l.checkSignalCard(n, path)
		inSignal = true
	case KindRecommendation:
		if !inSignal {
			l.add(RuleRecommendationScope, path, "recommendation must be placed inside a signal card")
		}
		l.checkRecommendation(n, path)
	case KindDisclosure:
		if n.Style != "muted" || n.Size != "small" {
			l.add(RuleDisclosureMuted, path, "disclosure must be small and muted (got style=%q size=%q)", n.Style, n.Size)
		}
	}

	for i, c := range n.Children {
		if c == nil {
			continue
		}
		l.walk(c, childPath(path, c, i), inSignal)
	}
}

func (l *linter) checkSignalCard(n *Node, path string) {
	recs := countKind(n, KindRecommendation)
	if recs > 1 {
		l.add(RuleOneSuggestion, path, "signal card shows %d suggestions, at most one is allowed", recs)
	}
	if strings.EqualFold(n.Level, "GREEN") && recs > 0 {
		l.add(RuleNoProductWhenNormal, path, "signal conditions are normal, no product may appear")
	}
}

func (l *linter) checkRecommendation(n *Node, path string) {
	for _, c := range n.Children {
		if c != nil && c.Kind == KindDisclosure && strings.TrimSpace(c.Text) != "" {
			return
		}
	}
	l.add(RuleDisclosureRequired, path, "recommendation needs a disclosure line")
}

// countKind counts descendants of kind k below n, stopping at nested signal
// cards which are checked on their own.
func countKind(n *Node, k Kind) int {
	total := 0
	for _, c := range n.Children {
		if c == nil || c.Kind == KindSignalCard {
			continue
		}
		if c.Kind == k {
			total++
		}
		total += countKind(c, k)
	}
	return total
}

func childPath(parent string, c *Node, i int) string {
	seg := string(c.Kind) + "[" + strconv.Itoa(i) + "]"
	if c.ID != "" {
		seg = string(c.Kind) + "#" + c.ID
	}
	return parent + "/" + seg
}
