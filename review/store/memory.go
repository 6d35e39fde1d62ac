// Package store provides review.TxStore implementations.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/warp/review-loader/review"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory review.TxStore. Surrogate ids start at 1 and are
// handed out in insertion order.
type Memory struct {
	mu    sync.Mutex
	state memoryState

	// FailInsertReview, when set, is returned by InsertReview for matching ids.
	FailInsertReview func(reviewID string) error
}

type memoryState struct {
	versions    map[review.VersionKey]int64
	users       map[string]int64
	reviews     []review.Review
	runs        []review.RunRecord
	nextVersion int64
	nextUser    int64
}

func NewMemory() *Memory {
	return &Memory{state: memoryState{
		versions:    make(map[review.VersionKey]int64),
		users:       make(map[string]int64),
		nextVersion: 1,
		nextUser:    1,
	}}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + restore on error.
func (m *Memory) WithTx(ctx context.Context, fn func(review.Batch) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memoryBatch{parent: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// AppVersions returns all stored versions, by id.
func (m *Memory) AppVersions() []review.AppVersion {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]review.AppVersion, 0, len(m.state.versions))
	for k, id := range m.state.versions {
		out = append(out, review.AppVersion{ID: id, VersionKey: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Users returns all stored users, by id.
func (m *Memory) Users() []review.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]review.User, 0, len(m.state.users))
	for name, id := range m.state.users {
		out = append(out, review.User{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reviews returns all stored facts in insertion order.
func (m *Memory) Reviews() []review.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]review.Review(nil), m.state.reviews...)
}

// Runs returns all committed run records.
func (m *Memory) Runs() []review.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]review.RunRecord(nil), m.state.runs...)
}

func (s memoryState) clone() memoryState {
	c := s
	c.versions = make(map[review.VersionKey]int64, len(s.versions))
	for k, v := range s.versions {
		c.versions[k] = v
	}
	c.users = make(map[string]int64, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.reviews = append([]review.Review(nil), s.reviews...)
	c.runs = append([]review.RunRecord(nil), s.runs...)
	return c
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

type memoryBatch struct {
	parent *Memory
}

func (b *memoryBatch) state() *memoryState { return &b.parent.state }

func (b *memoryBatch) FindAppVersion(_ context.Context, key review.VersionKey) (int64, bool, error) {
	id, ok := b.state().versions[key]
	return id, ok, nil
}

func (b *memoryBatch) InsertAppVersion(_ context.Context, key review.VersionKey) (int64, error) {
	s := b.state()
	if _, ok := s.versions[key]; ok {
		return 0, errors.New("UNIQUE constraint failed: app_versions")
	}
	id := s.nextVersion
	s.nextVersion++
	s.versions[key] = id
	return id, nil
}

func (b *memoryBatch) FindUser(_ context.Context, name string) (int64, bool, error) {
	id, ok := b.state().users[name]
	return id, ok, nil
}

func (b *memoryBatch) InsertUser(_ context.Context, name string) (int64, error) {
	s := b.state()
	if _, ok := s.users[name]; ok {
		return 0, errors.New("UNIQUE constraint failed: users.user_name")
	}
	id := s.nextUser
	s.nextUser++
	s.users[name] = id
	return id, nil
}

func (b *memoryBatch) InsertReview(_ context.Context, r review.Review) error {
	if b.parent.FailInsertReview != nil {
		if err := b.parent.FailInsertReview(r.ReviewID); err != nil {
			return err
		}
	}
	s := b.state()
	s.reviews = append(s.reviews, r)
	return nil
}

func (b *memoryBatch) ReviewExists(_ context.Context, reviewID string) (bool, error) {
	for _, r := range b.state().reviews {
		if r.ReviewID == reviewID {
			return true, nil
		}
	}
	return false, nil
}

// Row simulates a savepoint: the state, id counters included, is restored
// if fn fails.
func (b *memoryBatch) Row(_ context.Context, fn func(review.Store) error) error {
	s := b.state()
	snapshot := s.clone()
	if err := fn(b); err != nil {
		*s = snapshot
		return err
	}
	return nil
}

func (b *memoryBatch) RecordRun(_ context.Context, run review.RunRecord) error {
	b.state().runs = append(b.state().runs, run)
	return nil
}
