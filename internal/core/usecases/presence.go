package usecases

import (
	"fmt"
	"strings"
	"sync"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// PresenceTracker holds the local participant and teammates of one session.
type PresenceTracker struct {
	mu      sync.RWMutex
	localID string
	order   []string // teammates, registration order
	byID    map[string]domain.Participant
	dirty   bool
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{byID: make(map[string]domain.Participant)}
}

// RegisterLocal registers the hiker using this session. Only one is allowed.
func (p *PresenceTracker) RegisterLocal(part domain.Participant) error {
	part.Local = true
	return p.register(part)
}

// RegisterTeammate appends a teammate after those already registered.
func (p *PresenceTracker) RegisterTeammate(part domain.Participant) error {
	part.Local = false
	return p.register(part)
}

func (p *PresenceTracker) register(part domain.Participant) error {
	part.ID = strings.TrimSpace(part.ID)
	if part.ID == "" {
		return fmt.Errorf("%w: participant id is required", domain.ErrInvalidInput)
	}
	if part.Status == "" {
		part.Status = domain.StatusHiking
	} else if _, err := domain.ParseParticipantStatus(string(part.Status)); err != nil {
		return err
	}
	if part.Location != nil {
		if err := validateLocation(*part.Location); err != nil {
			return err
		}
		loc := *part.Location
		part.Location = &loc
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byID[part.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateParticipant, part.ID)
	}
	if part.Local {
		if p.localID != "" {
			return fmt.Errorf("%w: local participant already registered", domain.ErrDuplicateParticipant)
		}
		p.localID = part.ID
	} else {
		p.order = append(p.order, part.ID)
	}
	p.byID[part.ID] = part
	p.dirty = true
	return nil
}

// UpsertPosition sets a registered participant's location and marks presence dirty.
func (p *PresenceTracker) UpsertPosition(id string, loc domain.GeoPoint) error {
	if err := validateLocation(loc); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	part, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownParticipant, id)
	}
	part.Location = &loc
	p.byID[id] = part
	p.dirty = true
	return nil
}

// SetStatus updates a participant's self-reported status.
func (p *PresenceTracker) SetStatus(id string, status domain.ParticipantStatus) error {
	if _, err := domain.ParseParticipantStatus(string(status)); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	part, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownParticipant, id)
	}
	part.Status = status
	p.byID[id] = part
	p.dirty = true
	return nil
}

// Get returns a copy of participant id.
func (p *PresenceTracker) Get(id string) (domain.Participant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	part, ok := p.byID[id]
	if ok {
		part = cloneParticipant(part)
	}
	return part, ok
}

// Local returns the local participant, if registered.
func (p *PresenceTracker) Local() (domain.Participant, bool) {
	p.mu.RLock()
	id := p.localID
	p.mu.RUnlock()
	if id == "" {
		return domain.Participant{}, false
	}
	return p.Get(id)
}

// ListParticipants returns the local participant first, then teammates in
// registration order.
func (p *PresenceTracker) ListParticipants() []domain.Participant {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.Participant, 0, len(p.byID))
	if p.localID != "" {
		out = append(out, cloneParticipant(p.byID[p.localID]))
	}
	for _, id := range p.order {
		out = append(out, cloneParticipant(p.byID[id]))
	}
	return out
}

// Markers places a marker for every participant with a known location,
// in ListParticipants order.
func (p *PresenceTracker) Markers() []domain.PlacedMarker {
	parts := p.ListParticipants()
	out := make([]domain.PlacedMarker, 0, len(parts))
	for _, part := range parts {
		loc, ok := part.Position()
		if !ok {
			continue
		}
		cat := domain.CategoryTeammate
		if part.Local {
			cat = domain.CategoryUser
		}
		spec, _ := MarkerFor(cat)
		out = append(out, domain.PlacedMarker{Spec: spec, Location: loc, Title: part.Name, RefID: part.ID})
	}
	return out
}

// ConsumeDirty reports whether presence changed since the last call and clears the flag.
func (p *PresenceTracker) ConsumeDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dirty
	p.dirty = false
	return d
}

func cloneParticipant(part domain.Participant) domain.Participant {
	if part.Location != nil {
		loc := *part.Location
		part.Location = &loc
	}
	return part
}

func validateLocation(loc domain.GeoPoint) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
		return fmt.Errorf("%w: location (%f, %f) out of range", domain.ErrInvalidInput, loc.Lat, loc.Lon)
	}
	return nil
}
