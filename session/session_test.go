package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileUpdateThenGetRoundTrips(t *testing.T) {
	s := New()
	s.FileUpdate("a.symi", []byte("(120) C4,D4,\n"))

	events := s.GetEvents("a.symi")
	require.NotEmpty(t, events)
	toks := s.GetTokens("a.symi")
	require.NotEmpty(t, toks)
}

func TestUnknownFileIDReturnsNil(t *testing.T) {
	s := New()
	assert.Nil(t, s.GetEvents("never-opened.symi"))
	assert.Nil(t, s.GetTokens("never-opened.symi"))
	assert.Nil(t, s.GetDiagnostics("never-opened.symi"))
}

func TestFileCloseDropsEntry(t *testing.T) {
	s := New()
	s.FileUpdate("a.symi", []byte("C4,\n"))
	require.NotEmpty(t, s.GetEvents("a.symi"))

	s.FileClose("a.symi")
	assert.Nil(t, s.GetEvents("a.symi"))
}

func TestLastWriterWinsUnderConcurrentUpdates(t *testing.T) {
	s := New()
	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			src := fmt.Sprintf("(%d) C4,\n", 60+i)
			s.FileUpdate("a.symi", []byte(src))
		}()
	}
	wg.Wait()

	// Some update won; the entry is internally consistent (non-nil,
	// matching hash/tokens/events from a single FileUpdate call) even
	// though we can't predict which one.
	events := s.GetEvents("a.symi")
	assert.NotEmpty(t, events)
}

func TestDistinctFileIDsDoNotBlockEachOther(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.FileUpdate("a.symi", []byte("C4,\n"))
	}()
	go func() {
		defer wg.Done()
		s.FileUpdate("b.symi", []byte("D4,\n"))
	}()
	wg.Wait()

	assert.NotEmpty(t, s.GetEvents("a.symi"))
	assert.NotEmpty(t, s.GetEvents("b.symi"))
}
