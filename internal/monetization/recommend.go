// SPDX-License-Identifier: MIT

package monetization

import (
	"context"
	"errors"
	"sync"

	"github.com/daymark-app/daymark/internal/signal"
)

// DefaultDisclosure is shown under every recommendation unless configured otherwise.
const DefaultDisclosure = "Daymark may earn a commission from purchases made through this link."

// Disclosure presentation. Disclosures are always small and muted.
const (
	DisclosureStyleMuted = "muted"
	DisclosureSizeSmall  = "small"
)

// ErrNoSignalID is returned when a signal cannot be tracked in the ledger.
var ErrNoSignalID = errors.New("signal has no id")

// Disclosure is the affiliate earnings notice attached to a recommendation.
type Disclosure struct {
	Text  string `json:"text"`
	Style string `json:"style"`
	Size  string `json:"size"`
}

// Recommendation is the single product suggestion attached to a signal.
type Recommendation struct {
	SignalID   string     `json:"signal_id"`
	Product    Product    `json:"product"`
	Disclosure Disclosure `json:"disclosure"`
}

// Ledger remembers which product a signal was given, so a signal can never
// collect a second, different suggestion.
type Ledger interface {
	Get(ctx context.Context, signalID string) (productID string, ok bool, err error)
	// Put stores productID unless the signal already has one, and returns
	// the product stored for the signal either way.
	Put(ctx context.Context, signalID, productID string) (winner string, err error)
}

// Recommender selects recommendations from a catalog.
type Recommender struct {
	mu         sync.RWMutex
	catalog    Catalog
	disclosure string
	ledger     Ledger
}

// NewRecommender builds a recommender. A nil ledger uses an in-memory one.
func NewRecommender(catalog Catalog, disclosure string, ledger Ledger) *Recommender {
	if disclosure == "" {
		disclosure = DefaultDisclosure
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Recommender{catalog: catalog, disclosure: disclosure, ledger: ledger}
}

// SetCatalog swaps the catalog, e.g. after a config reload.
func (r *Recommender) SetCatalog(c Catalog) {
	r.mu.Lock()
	r.catalog = c
	r.mu.Unlock()
}

// SetDisclosure changes the disclosure text; empty restores the default.
func (r *Recommender) SetDisclosure(text string) {
	if text == "" {
		text = DefaultDisclosure
	}
	r.mu.Lock()
	r.disclosure = text
	r.mu.Unlock()
}

// Catalog returns the active catalog.
func (r *Recommender) Catalog() Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Select returns the first active product eligible for s, without touching
// the ledger. Normal conditions never select anything.
func (r *Recommender) Select(s signal.Signal) (Product, bool) {
	if !s.Elevated() {
		return Product{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.catalog.Products {
		if !p.Active || !p.Addresses(s.Driver) {
			continue
		}
		if p.MinLevel.Rank() <= s.Level.Rank() {
			return p, true
		}
	}
	return Product{}, false
}

// Recommend returns at most one recommendation for s. It returns (nil, nil)
// when conditions are normal or nothing in the catalog fits.
func (r *Recommender) Recommend(ctx context.Context, s signal.Signal) (*Recommendation, error) {
	if !s.Elevated() {
		return nil, nil
	}
	if s.ID == "" {
		return nil, ErrNoSignalID
	}

	if id, ok, err := r.ledger.Get(ctx, s.ID); err != nil {
		return nil, err
	} else if ok {
		return r.stored(s, id), nil
	}

	p, ok := r.Select(s)
	if !ok {
		return nil, nil
	}
	winner, err := r.ledger.Put(ctx, s.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if winner != p.ID {
		// Another replica recorded a product first.
		return r.stored(s, winner), nil
	}
	return r.wrap(s, p), nil
}

// stored wraps the product the ledger holds for s. A product that left the
// catalog leaves the signal with no suggestion rather than a different one.
func (r *Recommender) stored(s signal.Signal, id string) *Recommendation {
	p, ok := r.product(id)
	if !ok {
		return nil
	}
	return r.wrap(s, p)
}

func (r *Recommender) product(id string) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.catalog.Products {
		if p.ID == id && p.Active {
			return p, true
		}
	}
	return Product{}, false
}

func (r *Recommender) wrap(s signal.Signal, p Product) *Recommendation {
	r.mu.RLock()
	text := r.disclosure
	r.mu.RUnlock()
	return &Recommendation{
		SignalID: s.ID,
		Product:  p,
		Disclosure: Disclosure{
			Text:  text,
			Style: DisclosureStyleMuted,
			Size:  DisclosureSizeSmall,
		},
	}
}
