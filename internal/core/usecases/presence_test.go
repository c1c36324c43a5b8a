package usecases_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/usecases"
)

func TestPresenceTracker_LocalFirstThenRegistrationOrder(t *testing.T) {
	p := usecases.NewPresenceTracker()

	// Register teammates before the local participant on purpose.
	if err := p.RegisterTeammate(domain.Participant{ID: "u3", Name: "Sarah", Location: &domain.GeoPoint{Lat: 10, Lon: 10}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RegisterTeammate(domain.Participant{ID: "u2", Name: "Alex", Location: &domain.GeoPoint{Lat: -10, Lon: -10}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RegisterLocal(domain.Participant{ID: "u1", Name: "Me", Location: &domain.GeoPoint{Lat: 0, Lon: 0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := p.ListParticipants()
	want := []string{"u1", "u3", "u2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d participants, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if !got[0].Local || got[1].Local {
		t.Error("expected only the first participant to be local")
	}
}

func TestPresenceTracker_UpsertPosition(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterTeammate(domain.Participant{ID: "u2", Name: "Alex"})
	p.ConsumeDirty()

	if err := p.UpsertPosition("u2", domain.GeoPoint{Lat: 22.231, Lon: 114.241}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := p.Get("u2")
	loc, ok := got.Position()
	if !ok || loc.Lat != 22.231 {
		t.Errorf("expected updated location, got %+v", got.Location)
	}
	if !p.ConsumeDirty() {
		t.Error("expected dirty after upsert")
	}
	if p.ConsumeDirty() {
		t.Error("expected dirty flag cleared")
	}
}

func TestPresenceTracker_UpsertUnknown(t *testing.T) {
	p := usecases.NewPresenceTracker()
	err := p.UpsertPosition("ghost", domain.GeoPoint{Lat: 1, Lon: 1})
	if !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
}

func TestPresenceTracker_UpsertOutOfRange(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterLocal(domain.Participant{ID: "u1", Name: "Me"})
	err := p.UpsertPosition("u1", domain.GeoPoint{Lat: 91, Lon: 0})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPresenceTracker_Duplicates(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterLocal(domain.Participant{ID: "u1", Name: "Me"})

	if err := p.RegisterTeammate(domain.Participant{ID: "u1", Name: "Again"}); !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Errorf("expected ErrDuplicateParticipant for id, got %v", err)
	}
	if err := p.RegisterLocal(domain.Participant{ID: "u9", Name: "Other"}); !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Errorf("expected ErrDuplicateParticipant for second local, got %v", err)
	}
	if err := p.RegisterTeammate(domain.Participant{ID: " "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank id, got %v", err)
	}
}

func TestPresenceTracker_SetStatus(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterTeammate(domain.Participant{ID: "u3", Name: "Sarah"})

	if err := p.SetStatus("u3", domain.StatusLyingFlat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := p.Get("u3")
	if got.Status != domain.StatusLyingFlat {
		t.Errorf("expected Lying Flat, got %s", got.Status)
	}
	if err := p.SetStatus("u3", "Sprinting"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPresenceTracker_DefaultStatus(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterTeammate(domain.Participant{ID: "u2", Name: "Alex"})
	got, _ := p.Get("u2")
	if got.Status != domain.StatusHiking {
		t.Errorf("expected Hiking, got %s", got.Status)
	}
}

func TestPresenceTracker_Markers(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterLocal(domain.Participant{ID: "u1", Name: "Me", Location: &domain.GeoPoint{Lat: 22.23, Lon: 114.24}})
	_ = p.RegisterTeammate(domain.Participant{ID: "u2", Name: "Alex", Location: &domain.GeoPoint{Lat: 22.231, Lon: 114.241}})
	_ = p.RegisterTeammate(domain.Participant{ID: "u3", Name: "Sarah"}) // no location yet

	markers := p.Markers()
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].Spec.Category != domain.CategoryUser || markers[0].RefID != "u1" {
		t.Errorf("expected user marker first, got %+v", markers[0])
	}
	if markers[1].Spec.Category != domain.CategoryTeammate || markers[1].Title != "Alex" {
		t.Errorf("expected Alex teammate marker, got %+v", markers[1])
	}
	if markers[0].Spec.ZIndex <= markers[1].Spec.ZIndex {
		t.Error("expected local marker drawn above teammates")
	}
}

func TestPresenceTracker_GetReturnsCopy(t *testing.T) {
	p := usecases.NewPresenceTracker()
	_ = p.RegisterLocal(domain.Participant{ID: "u1", Name: "Me", Location: &domain.GeoPoint{Lat: 1, Lon: 1}})

	got, _ := p.Get("u1")
	got.Location.Lat = 50

	again, _ := p.Get("u1")
	if again.Location.Lat != 1 {
		t.Errorf("expected stored location unchanged, got %f", again.Location.Lat)
	}
}
