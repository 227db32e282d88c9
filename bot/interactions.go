package bot

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// interactionTokenTTL is how long an interaction token stays valid for follow-ups and edits
const interactionTokenTTL = 15 * time.Minute

type pendingInteraction struct {
	interaction *discordgo.Interaction
	receivedAt  time.Time
}

// interactionStore keeps interactions until they are acknowledged.
// The dispatcher only knows the interaction id; responding needs the token.
type interactionStore struct {
	mu      sync.Mutex
	pending map[string]pendingInteraction
	now     func() time.Time
}

func newInteractionStore() *interactionStore {
	return &interactionStore{
		pending: make(map[string]pendingInteraction),
		now:     time.Now,
	}
}

func (s *interactionStore) put(i *discordgo.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[i.ID] = pendingInteraction{interaction: i, receivedAt: s.now()}
}

// take removes and returns the interaction; an expired one is treated as missing
func (s *interactionStore) take(id string) (*discordgo.Interaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[id]
	if !ok {
		return nil, false
	}
	delete(s.pending, id)
	if s.now().Sub(p.receivedAt) > interactionTokenTTL {
		return nil, false
	}
	return p.interaction, true
}

// prune drops interactions that were never acknowledged
func (s *interactionStore) prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-interactionTokenTTL)
	for id, p := range s.pending {
		if p.receivedAt.Before(cutoff) {
			delete(s.pending, id)
			removed++
		}
	}
	return removed
}
