package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
	if got := len(s.GetAll()); got != 0 {
		t.Errorf("new store has %d agents, want 0", got)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("new store Count() = %d, want 0", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore()
	a, ok := s.Get(Handle(42))
	if ok {
		t.Error("Get for missing handle returned ok=true")
	}
	if a != nil {
		t.Error("Get for missing handle returned non-nil agent")
	}
}

func TestAddAndGet(t *testing.T) {
	s := NewStore()
	h := s.Add(Agent{ID: "agent-1", RemoteAddr: "10.0.0.1:5000"})

	a, ok := s.Get(h)
	if !ok {
		t.Fatal("Get returned ok=false after Add")
	}
	if a.ID != "agent-1" || a.RemoteAddr != "10.0.0.1:5000" {
		t.Errorf("Get returned unexpected agent: %+v", a)
	}
}

func TestCollidingIDsKeptApart(t *testing.T) {
	s := NewStore()
	h1 := s.Add(Agent{ID: "agent-7"})
	h2 := s.Add(Agent{ID: "agent-7"})

	if h1 == h2 {
		t.Fatal("Add returned the same handle twice")
	}
	if got := s.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	s.Remove(h1)
	if _, ok := s.Get(h2); !ok {
		t.Error("removing one agent removed its namesake")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	h := s.Add(Agent{ID: "original"})

	got, _ := s.Get(h)
	got.ID = "mutated"

	got2, _ := s.Get(h)
	if got2.ID != "original" {
		t.Error("Get did not return a copy; mutation leaked into store")
	}
}

func TestRecord(t *testing.T) {
	s := NewStore()
	h := s.Add(Agent{ID: "agent-1"})
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s.Record(h, "anger", 0.85, at)
	s.Record(h, "joy", 0.9, at.Add(time.Second))

	a, _ := s.Get(h)
	if a.Messages != 2 {
		t.Errorf("Messages = %d, want 2", a.Messages)
	}
	if a.LastEmotion != "joy" || a.LastScore != 0.9 {
		t.Errorf("last = %s/%v, want joy/0.9", a.LastEmotion, a.LastScore)
	}
	if !a.LastActivityAt.Equal(at.Add(time.Second)) {
		t.Errorf("LastActivityAt = %v", a.LastActivityAt)
	}

	// Recording against a removed handle is ignored.
	s.Remove(h)
	s.Record(h, "fear", 0.7, at)
	if s.Count() != 0 {
		t.Error("Record resurrected a removed agent")
	}
}

func TestGetAllOrderedByConnection(t *testing.T) {
	s := NewStore()
	base := time.Now()
	s.Add(Agent{ID: "c", ConnectedAt: base.Add(2 * time.Second)})
	s.Add(Agent{ID: "a", ConnectedAt: base})
	s.Add(Agent{ID: "b", ConnectedAt: base.Add(time.Second)})

	all := s.GetAll()
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ID != want {
			t.Errorf("GetAll()[%d] = %s, want %s", i, all[i].ID, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := s.Add(Agent{ID: fmt.Sprintf("agent-%d", i)})
			s.Record(h, "joy", 0.5, time.Now())
			_ = s.GetAll()
			if i%2 == 0 {
				s.Remove(h)
			}
		}(i)
	}
	wg.Wait()

	if got := s.Count(); got != 25 {
		t.Errorf("Count() = %d, want 25", got)
	}
}
