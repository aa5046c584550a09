package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pharmadb-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchState(t *testing.T) {
	s := NewSearchState()
	assert.Equal(t, 1, s.Page)

	s = s.Prev()
	assert.Equal(t, 1, s.Page)

	s = s.Next(3).Next(3).Next(3)
	assert.Equal(t, 3, s.Page)

	s = s.SetTerm("")
	assert.Equal(t, 3, s.Page, "unchanged term keeps the page")

	s = s.SetTerm("aspirin")
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, "aspirin", s.Term)

	// zero pages: nothing to move to
	assert.Equal(t, 1, NewSearchState().Next(0).Page)
}

func TestSessionState_Clone(t *testing.T) {
	s := NewSessionState("a")
	s.Search[TabDatabase] = SearchState{Term: "x", Page: 2}
	s.Selection = &Selection{ProductID: "1"}
	s.RuleFilters = append(s.RuleFilters, models.ColumnFilterSpec{Column: "lift"})

	c := s.Clone()
	c.Search[TabDatabase] = SearchState{Term: "y", Page: 1}
	c.Selection.ProductID = "2"
	c.RuleFilters[0].Column = "support"

	assert.Equal(t, "x", s.Search[TabDatabase].Term)
	assert.Equal(t, "1", s.Selection.ProductID)
	assert.Equal(t, "lift", s.RuleFilters[0].Column)
}

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(0)

	a := store.GetOrCreate("a")
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, TabDatabase, a.ActiveTab)
	assert.Equal(t, models.MetricLift, a.EdgeLabel)

	store.GetOrCreate("a")
	assert.Equal(t, 1, store.Len())

	created := store.Create()
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 2, store.Len())
}

func TestStore_Apply(t *testing.T) {
	store := NewStore(0)

	st, err := store.Apply("a", func(s SessionState) (SessionState, error) {
		s.ActiveTab = TabRules
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, TabRules, st.ActiveTab)

	boom := errors.New("boom")
	st, err = store.Apply("a", func(s SessionState) (SessionState, error) {
		s.ActiveTab = "broken"
		return s, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, TabRules, st.ActiveTab)
	assert.Equal(t, TabRules, store.GetOrCreate("a").ActiveTab)
}

func TestStore_ApplySerialisesPerSession(t *testing.T) {
	store := NewStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Apply("a", func(s SessionState) (SessionState, error) {
				s.Search[TabDatabase] = s.SearchFor(TabDatabase).Next(1000)
				return s, nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 51, store.GetOrCreate("a").SearchFor(TabDatabase).Page)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(0)
	store.GetOrCreate("a")

	require.NoError(t, store.Delete("a"))
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, store.Delete("a"), ErrNoSession)
}

func TestStore_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	store.GetOrCreate("old")
	now = now.Add(20 * time.Minute)
	store.GetOrCreate("fresh")
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	// a returning user starts over
	st := store.GetOrCreate("old")
	assert.Equal(t, 1, st.SearchFor(TabDatabase).Page)
	assert.Equal(t, 2, store.Len())
}

func TestStore_SweepDisabled(t *testing.T) {
	store := NewStore(0)
	store.GetOrCreate("a")
	store.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Len())
}
