package state

import (
	"errors"
	"sync"
	"time"

	"pharmadb-backend/internal/models"

	"github.com/google/uuid"
)

// Tabs the UI switches between
const (
	TabDatabase = models.TableDrugProducts
	TabRules    = models.TableAssociationRules
)

var ErrNoSession = errors.New("no such session")

// SearchState is the free-text search and current page of one tab
type SearchState struct {
	Term string `json:"term"`
	Page int    `json:"page"`
}

func NewSearchState() SearchState {
	return SearchState{Page: 1}
}

// SetTerm changes the term; a different term always goes back to page 1.
func (s SearchState) SetTerm(term string) SearchState {
	if term != s.Term {
		s.Term = term
		s.Page = 1
	}
	return s
}

// Prev moves back one page unless already on page 1
func (s SearchState) Prev() SearchState {
	if s.Page > 1 {
		s.Page--
	}
	return s
}

// Next moves forward one page unless already on the last page
func (s SearchState) Next(totalPages int) SearchState {
	if s.Page < totalPages {
		s.Page++
	}
	return s
}

// Selection is the product whose details are shown
type Selection struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

// SessionState is everything one user's interaction sequence can change.
// It is a value: event handlers receive a copy and return the new state.
type SessionState struct {
	ID          string                    `json:"id"`
	ActiveTab   string                    `json:"active_tab,omitempty"`
	Search      map[string]SearchState    `json:"search"`
	Selection   *Selection                `json:"selection,omitempty"`
	ShowDetails bool                      `json:"show_details"`
	RuleFilters []models.ColumnFilterSpec `json:"rule_filters"`
	EdgeLabel   string                    `json:"edge_label"`
}

func NewSessionState(id string) SessionState {
	return SessionState{
		ID:          id,
		ActiveTab:   TabDatabase,
		Search:      make(map[string]SearchState),
		RuleFilters: []models.ColumnFilterSpec{},
		EdgeLabel:   models.MetricLift,
	}
}

// SearchFor returns the search state of a tab, page 1 if never touched
func (s SessionState) SearchFor(tab string) SearchState {
	if ss, ok := s.Search[tab]; ok {
		return ss
	}
	return NewSearchState()
}

// Clone deep-copies the mutable parts so the copy can be changed freely
func (s SessionState) Clone() SessionState {
	out := s
	out.Search = make(map[string]SearchState, len(s.Search))
	for k, v := range s.Search {
		out.Search[k] = v
	}
	if s.Selection != nil {
		sel := *s.Selection
		out.Selection = &sel
	}
	out.RuleFilters = make([]models.ColumnFilterSpec, len(s.RuleFilters))
	copy(out.RuleFilters, s.RuleFilters)
	return out
}

type session struct {
	mu       sync.Mutex
	state    SessionState
	lastSeen time.Time
}

// Store owns session lifecycles: created on first access, replaced on each
// event, removed on Delete or after ttl without activity.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session with a fresh id
func (s *Store) Create() SessionState {
	id := uuid.New().String()
	return s.GetOrCreate(id)
}

// GetOrCreate returns the session's state, creating it on first access
func (s *Store) GetOrCreate(id string) SessionState {
	sess := s.lookup(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return sess.state.Clone()
}

// Apply runs fn on the current state and stores what it returns. Calls for
// the same session are serialised. On error the state is left unchanged.
func (s *Store) Apply(id string, fn func(SessionState) (SessionState, error)) (SessionState, error) {
	sess := s.lookup(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	next, err := fn(sess.state.Clone())
	sess.lastSeen = s.now()
	if err != nil {
		return sess.state.Clone(), err
	}
	sess.state = next
	return next.Clone(), nil
}

// Delete ends a session
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNoSession
	}
	delete(s.sessions, id)
	return nil
}

// Sweep drops sessions idle for longer than the ttl and reports how many
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) lookup(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = &session{state: NewSessionState(id), lastSeen: s.now()}
	s.sessions[id] = sess
	return sess
}
