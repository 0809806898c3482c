package profile

import "sync"

// Store is the pluggable profile store the engine reads and mutates. Mutate
// runs its callback with exclusive access to one profile, creating the profile
// on first use; Get and Snapshot return deep copies so callers never observe a
// profile mid-mutation.
type Store interface {
	Get(userID string) (*UserProfile, bool)
	Mutate(userID string, fn func(*UserProfile)) error
	Snapshot() []*UserProfile
	Len() int
}

// MemoryStore keeps all profiles in process memory behind a single RWMutex.
// The original engine assumed a single-threaded runtime and mutated a shared
// map freely; on a multi-threaded runtime the lock is required for
// correctness, not an optimization.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*UserProfile)}
}

// Get returns a copy of the profile, or false if the user has none.
func (s *MemoryStore) Get(userID string) (*UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Mutate runs fn against the user's profile under the write lock, creating
// the profile if this is the user's first event.
func (s *MemoryStore) Mutate(userID string, fn func(*UserProfile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = NewUserProfile(userID)
		s.profiles[userID] = p
	}
	fn(p)
	return nil
}

// Snapshot returns copies of every stored profile.
func (s *MemoryStore) Snapshot() []*UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	return out
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
