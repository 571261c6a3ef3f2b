package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/minhtri/stockalert/internal/models"
)

func newAlert(symbol string, target float64) *models.Alert {
	return &models.Alert{Symbol: symbol, TargetPrice: target}
}

func TestCreateAndList_CreationOrder(t *testing.T) {
	s := New()
	s.Create(1, newAlert("VNM", 80000))
	s.Create(1, newAlert("FPT", 120000))
	s.Create(1, newAlert("HPG", 30000))
	s.Create(2, newAlert("VNM", 90000))

	list := s.List(1)
	if len(list) != 3 {
		t.Fatalf("got %d alerts, want 3", len(list))
	}
	for i, want := range []string{"VNM", "FPT", "HPG"} {
		if list[i].Symbol != want {
			t.Errorf("position %d: got %s, want %s", i, list[i].Symbol, want)
		}
	}
	if len(s.List(2)) != 1 {
		t.Errorf("owner 2 should have exactly one alert")
	}
	if len(s.List(3)) != 0 {
		t.Errorf("unknown owner must list empty, not error")
	}
}

func TestCreate_AssignsID(t *testing.T) {
	s := New()
	a := newAlert("VNM", 80000)
	id := s.Create(1, a)
	if id == "" || a.ID != id {
		t.Errorf("Create must assign and return an ID, got %q", id)
	}
	if a.CreatedAt.IsZero() {
		t.Error("Create must stamp CreatedAt")
	}
}

func TestList_ReturnsCopies(t *testing.T) {
	s := New()
	s.Create(1, newAlert("VNM", 80000))

	list := s.List(1)
	list[0].TargetPrice = 1

	if s.List(1)[0].TargetPrice != 80000 {
		t.Error("mutating a listed alert must not affect the store")
	}
}

func TestDeleteAt(t *testing.T) {
	s := New()
	s.Create(1, newAlert("VNM", 80000))
	s.Create(1, newAlert("FPT", 120000))

	removed, err := s.DeleteAt(1, 0)
	if err != nil {
		t.Fatalf("DeleteAt: %v", err)
	}
	if removed.Symbol != "VNM" {
		t.Errorf("removed %s, want VNM", removed.Symbol)
	}

	list := s.List(1)
	if len(list) != 1 || list[0].Symbol != "FPT" {
		t.Errorf("unexpected remainder: %+v", list)
	}
}

func TestDeleteAt_OutOfRange(t *testing.T) {
	s := New()
	s.Create(1, newAlert("VNM", 80000))
	s.Create(1, newAlert("FPT", 120000))

	// Position 5 with only 2 alerts present.
	if _, err := s.DeleteAt(1, 4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if _, err := s.DeleteAt(1, -1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if len(s.List(1)) != 2 {
		t.Error("a rejected delete must leave the store unchanged")
	}
}

func TestDeleteAt_MatchesListPosition(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Create(1, newAlert(fmt.Sprintf("SYM%d", i), 1000))
	}

	list := s.List(1)
	want := list[2].Symbol
	removed, err := s.DeleteAt(1, 2)
	if err != nil {
		t.Fatalf("DeleteAt: %v", err)
	}
	if removed.Symbol != want {
		t.Errorf("DeleteAt(2) removed %s, but List reported %s at that position", removed.Symbol, want)
	}
}

func TestSnapshot_IsPointInTime(t *testing.T) {
	s := New()
	s.Create(1, newAlert("VNM", 80000))

	snap := s.Snapshot()
	s.Create(1, newAlert("FPT", 120000))
	snap[1][0].TargetPrice = 1

	if len(snap[1]) != 1 {
		t.Error("snapshot must not see later creates")
	}
	if s.List(1)[0].TargetPrice != 80000 {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestApply(t *testing.T) {
	s := New()
	a := newAlert("VNM", 80000)
	id := s.Create(1, a)

	if ok := s.Apply(1, id, func(a *models.Alert) { a.LastKnownPrice = 76000 }); !ok {
		t.Fatal("Apply should find the alert")
	}
	if s.List(1)[0].LastKnownPrice != 76000 {
		t.Error("Apply mutation not visible")
	}

	if ok := s.Apply(1, "missing", func(a *models.Alert) {}); ok {
		t.Error("Apply on a removed alert must report false")
	}
}

func TestRemove(t *testing.T) {
	s := New()
	id := s.Create(1, newAlert("VNM", 80000))

	if !s.Remove(1, id) {
		t.Fatal("Remove should find the alert")
	}
	if s.Remove(1, id) {
		t.Error("double Remove must report false")
	}
	if s.Len() != 0 {
		t.Errorf("store should be empty, has %d", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for owner := int64(1); owner <= 4; owner++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			var ids []string
			for i := 0; i < 50; i++ {
				ids = append(ids, s.Create(owner, newAlert("VNM", float64(i+1))))
			}
			for _, id := range ids[:25] {
				s.Remove(owner, id)
			}
		}(owner)
	}
	// Scheduler-style reader alongside the writers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			for owner, alerts := range s.Snapshot() {
				for _, a := range alerts {
					s.Apply(owner, a.ID, func(a *models.Alert) { a.LastKnownPrice++ })
				}
			}
		}
	}()
	wg.Wait()

	if s.Len() != 4*25 {
		t.Errorf("got %d alerts, want %d", s.Len(), 4*25)
	}
}
