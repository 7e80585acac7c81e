// SPDX-License-Identifier: MIT

package monetization

import (
	"context"
	"sync"
)

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]string)}
}

func (l *MemoryLedger) Get(_ context.Context, signalID string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.entries[signalID]
	return id, ok, nil
}

// Put records the first product for a signal and returns whichever product
// is stored after the call.
func (l *MemoryLedger) Put(_ context.Context, signalID, productID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.entries[signalID]; ok {
		return id, nil
	}
	l.entries[signalID] = productID
	return productID, nil
}

// Len returns the number of tracked signals.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
