// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/metrics"
	"github.com/daymark-app/daymark/internal/monetization"
	"github.com/daymark-app/daymark/internal/policy"
	"github.com/daymark-app/daymark/internal/service"
	"github.com/daymark-app/daymark/internal/signal"
)

type homePage struct {
	County         string
	Unavailable    bool
	Signal         signal.Signal
	Recommendation *monetization.Recommendation
}

// cardTree describes the status page the way the guardrail linter sees it.
func cardTree(card service.SignalCard) *policy.Node {
	sc := &policy.Node{
		Kind:  policy.KindSignalCard,
		ID:    card.Signal.ID,
		Level: string(card.Signal.Level),
		Children: []*policy.Node{
			{Kind: policy.KindText, Text: "Status: " + string(card.Signal.Level)},
		},
	}
	if rec := card.Recommendation; rec != nil {
		sc.Children = append(sc.Children, &policy.Node{
			Kind: policy.KindRecommendation,
			ID:   rec.Product.ID,
			Children: []*policy.Node{
				{Kind: policy.KindText, Text: rec.Product.Name},
				{
					Kind:  policy.KindDisclosure,
					Style: rec.Disclosure.Style,
					Size:  rec.Disclosure.Size,
					Text:  rec.Disclosure.Text,
				},
			},
		})
	}
	return &policy.Node{
		Kind: policy.KindPage,
		Children: []*policy.Node{
			{Kind: policy.KindText, Text: "Daymark"},
			sc,
		},
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	page := homePage{County: s.DefaultCounty()}
	status := http.StatusOK

	card, err := s.svc.Assess(r.Context(), page.County, s.svc.Today())
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldCounty, page.County).Msg("status page without signal")
		page.Unavailable = true
		status = http.StatusServiceUnavailable
	} else {
		// The page never ships a layout the guardrails reject; the
		// suggestion is dropped instead.
		if vs := policy.Lint(cardTree(card)); len(vs) > 0 {
			for _, v := range vs {
				metrics.RecordLintViolation(v.Rule)
				logger.Error().Str(log.FieldRule, v.Rule).Str(log.FieldPath, v.Path).
					Str(log.FieldEvent, "policy.violation").Msg(v.Message)
			}
			card.Recommendation = nil
		}
		page.Signal = card.Signal
		page.Recommendation = card.Recommendation
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, "home.html", page); err != nil {
		logger.Error().Err(err).Msg("render home page")
	}
}
