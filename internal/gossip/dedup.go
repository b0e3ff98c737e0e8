package gossip

import (
	"sync"

	"github.com/google/uuid"
)

// seenCap bounds the dedup cache so a long-running daemon doesn't grow
// it without limit; once full, the oldest half is dropped. This only
// affects how aggressively duplicate floods are suppressed, never
// correctness: the store's strict-inequality check is the real
// deduplicator per spec.md §9.
const seenCap = 4096

// seenSet is the optional (client_id, client_time) dedup strengthening
// spec.md §9 permits: "An implementer MAY strengthen this with a
// (client_id, client_time) seen-set, but the externally observable
// behaviour must not change." It tags each first-seen pair with a
// UUID so repeated floods of the same update can be recognized and
// skipped before they're even handed to the propagator, without
// altering what a client or peer ever observes on the wire.
type seenSet struct {
	mu   sync.Mutex
	tags map[string]uuid.UUID
	order []string
}

func newSeenSet() *seenSet {
	return &seenSet{tags: make(map[string]uuid.UUID)}
}

// observe returns true if key was already seen. Otherwise it mints a
// fresh UUID tag for key and returns false.
func (s *seenSet) observe(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[key]; ok {
		return true
	}

	if len(s.order) >= seenCap {
		half := len(s.order) / 2
		for _, k := range s.order[:half] {
			delete(s.tags, k)
		}
		s.order = s.order[half:]
	}

	s.tags[key] = uuid.New()
	s.order = append(s.order, key)
	return false
}
