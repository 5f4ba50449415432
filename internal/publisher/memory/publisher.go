// Package memory implements an in-memory publisher for development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Publisher records published payloads instead of sending them anywhere.
type Publisher struct {
	mu       sync.Mutex
	messages [][]byte
}

// New creates an in-memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish marshals the payload and stores it, returning a synthetic ID.
func (p *Publisher) Publish(_ context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, data)
	return fmt.Sprintf("mem-%d", len(p.messages)), nil
}

// Messages returns copies of all published payloads.
func (p *Publisher) Messages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.messages))
	for i, m := range p.messages {
		out[i] = append([]byte(nil), m...)
	}
	return out
}
