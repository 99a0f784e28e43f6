package gateway

import (
	"errors"
	"strings"
	"sync"
)

// Balancer hands out replica base URLs in round-robin order.
type Balancer struct {
	mu    sync.Mutex
	urls  []string
	index int
}

// NewBalancer returns a Balancer over urls. At least one URL is required.
func NewBalancer(urls []string) (*Balancer, error) {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return nil, errors.New("balancer needs at least one replica URL")
	}
	return &Balancer{urls: clean}, nil
}

// Next returns the next replica.
func (b *Balancer) Next() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.urls[b.index]
	b.index = (b.index + 1) % len(b.urls)
	return u
}

// Len returns the number of replicas.
func (b *Balancer) Len() int {
	return len(b.urls)
}
