package record

import (
	"context"
	"sync"

	"chatroom/internal/logger"
)

// Options configures a record store.
type Options struct {
	// Capacity bounds the number of keys kept; 0 means unbounded. Once the
	// record grows past it the oldest keys are dropped.
	Capacity int
	Log      *logger.LogEntry
}

// commitFunc persists one flush. writes holds the pending fields, evicted
// the keys dropped to honor capacity.
type commitFunc func(ctx context.Context, writes Record, evicted []string) error

// staged implements the Set/Sync/Subscribe protocol shared by the stores:
// Set stages a write, Sync applies all staged writes, then subscribers get
// the new snapshot.
type staged struct {
	mu       sync.Mutex
	data     Record
	pending  Record
	capacity int
	closed   bool
	hub      *Hub
	commit   commitFunc
	log      *logger.LogEntry
}

func newStaged(initial Record, opts Options, commit commitFunc) *staged {
	log := opts.Log
	if log == nil {
		log = logger.Named("record")
	}
	data := initial.Clone()
	evict(data, opts.Capacity)
	return &staged{
		data:     data,
		pending:  Record{},
		capacity: opts.Capacity,
		hub:      NewHub(),
		commit:   commit,
		log:      log,
	}
}

func (s *staged) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *staged) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.WithField("key", key).Warn("set on closed store ignored")
		return
	}
	s.pending[key] = value
}

func (s *staged) Sync(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	snapshot, err := s.applyLocked(ctx, s.pending)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending = Record{}
	s.hub.Publish(snapshot)
	s.mu.Unlock()
	return nil
}

// Apply writes fields directly, bypassing the staging area. It models a
// mutation made by another writer of the same record.
func (s *staged) Apply(ctx context.Context, fields Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	defer s.mu.Unlock()
	snapshot, err := s.applyLocked(ctx, fields)
	if err != nil {
		return err
	}
	s.hub.Publish(snapshot)
	return nil
}

// applyLocked merges writes into a copy of data, persists through commit
// and swaps the copy in on success. Callers hold s.mu and publish before
// releasing it, so subscribers see snapshots in commit order.
func (s *staged) applyLocked(ctx context.Context, writes Record) (Record, error) {
	next := s.data.Clone()
	for k, v := range writes {
		next[k] = v
	}
	evicted := evict(next, s.capacity)
	if s.commit != nil {
		if err := s.commit(ctx, writes, evicted); err != nil {
			return nil, err
		}
	}
	s.data = next
	if len(evicted) > 0 {
		s.log.WithField("count", len(evicted)).Debug("evicted oldest keys")
	}
	return next.Clone(), nil
}

func (s *staged) Subscribe() (<-chan Record, func()) {
	return s.hub.Subscribe()
}

// Pending returns the number of staged writes not yet synced.
func (s *staged) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *staged) close() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return true
}
