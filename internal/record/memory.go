package record

import "context"

// Memory is an in-process record host.
type Memory struct {
	*staged
}

// NewMemory creates a store seeded with a copy of initial.
func NewMemory(initial Record, opts Options) *Memory {
	return &Memory{staged: newStaged(initial, opts, nil)}
}

// Replace swaps the whole record, as when the host rebinds the card to new
// data. Staged writes are kept.
func (m *Memory) Replace(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := rec.Clone()
	evict(next, m.capacity)
	m.data = next
	if m.closed {
		return
	}
	m.hub.Publish(next)
}

// ApplyField is Apply for a single field.
func (m *Memory) ApplyField(ctx context.Context, key, value string) error {
	return m.Apply(ctx, Record{key: value})
}

// Close stops notifications. Further Sync calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.close()
	return nil
}

var _ Store = (*Memory)(nil)
