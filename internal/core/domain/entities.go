package domain

import (
	"fmt"
	"time"
)

// MarkerCategory selects how a point is drawn on the map.
// POIs use start/peak/toilet/smoking; participants use user/teammate.
type MarkerCategory string

const (
	CategoryStart    MarkerCategory = "start"
	CategoryPeak     MarkerCategory = "peak"
	CategoryToilet   MarkerCategory = "toilet"
	CategorySmoking  MarkerCategory = "smoking"
	CategoryUser     MarkerCategory = "user"
	CategoryTeammate MarkerCategory = "teammate"
)

// IsPOI reports whether c is one of the point-of-interest categories.
func (c MarkerCategory) IsPOI() bool {
	switch c {
	case CategoryStart, CategoryPeak, CategoryToilet, CategorySmoking:
		return true
	}
	return false
}

// PointOfInterest is a fixed, named feature along a trail.
type PointOfInterest struct {
	Name     string         `json:"name"`
	Location GeoPoint       `json:"location"`
	Category MarkerCategory `json:"category"`
}

// Trail is the configuration data for one hike: its path and POI catalog.
type Trail struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Region      string            `json:"region"`
	StartPoint  string            `json:"start_point"`
	Path        RoutePath         `json:"-"`
	POIs        []PointOfInterest `json:"pois"`
	DefaultView GeoPoint          `json:"default_view"`
}

// ParticipantStatus is the self-reported state of a hiker.
type ParticipantStatus string

const (
	StatusHiking    ParticipantStatus = "Hiking"
	StatusPlanning  ParticipantStatus = "Planning"
	StatusResting   ParticipantStatus = "Resting"
	StatusLyingFlat ParticipantStatus = "Lying Flat"
	StatusHappy     ParticipantStatus = "Happy"
)

// ParseParticipantStatus validates a status string.
func ParseParticipantStatus(s string) (ParticipantStatus, error) {
	switch st := ParticipantStatus(s); st {
	case StatusHiking, StatusPlanning, StatusResting, StatusLyingFlat, StatusHappy:
		return st, nil
	}
	return "", fmt.Errorf("%w: status %q", ErrInvalidInput, s)
}

// Participant is the local hiker or a teammate.
type Participant struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Avatar   string            `json:"avatar,omitempty"`
	Status   ParticipantStatus `json:"status"`
	Location *GeoPoint         `json:"location,omitempty"`
	Local    bool              `json:"local"`
}

// Position returns the participant location, if known.
func (p Participant) Position() (GeoPoint, bool) {
	if p.Location == nil {
		return GeoPoint{}, false
	}
	return *p.Location, true
}

// PositionUpdate is one reading from the location/telemetry feed.
type PositionUpdate struct {
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	Location      GeoPoint  `json:"location"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Channel is one of the independent message streams of a session.
type Channel string

const (
	ChannelAdvisory Channel = "advisory"
	ChannelTeam     Channel = "team"
)

// ParseChannel validates a channel discriminator.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelAdvisory, ChannelTeam:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// SenderKind identifies who authored a message.
type SenderKind string

const (
	SenderUser      SenderKind = "user"
	SenderAssistant SenderKind = "assistant"
	SenderTeammate  SenderKind = "teammate"
	SenderSystem    SenderKind = "system"
)

// Message is one immutable entry in a channel log.
type Message struct {
	ID         int64      `json:"id"`
	Channel    Channel    `json:"channel"`
	Sender     SenderKind `json:"sender"`
	SenderID   string     `json:"sender_id,omitempty"`
	SenderName string     `json:"sender_name,omitempty"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	MapResult  bool       `json:"map_result,omitempty"`
}

// ChannelStatus is the request state of a channel.
type ChannelStatus string

const (
	ChannelIdle    ChannelStatus = "idle"
	ChannelPending ChannelStatus = "pending"
	ChannelFailed  ChannelStatus = "failed"
)

// ChannelState is the observable state of a channel. Status is Idle or Pending;
// LastOutcome records how the most recent request ended (Failed is per request,
// it never locks the channel).
type ChannelState struct {
	Channel     Channel       `json:"channel"`
	Status      ChannelStatus `json:"status"`
	LastOutcome ChannelStatus `json:"last_outcome,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MarkerSpec describes how a marker is drawn.
type MarkerSpec struct {
	Category    MarkerCategory `json:"category"`
	Color       string         `json:"color"`
	BorderColor string         `json:"border_color"`
	Glyph       string         `json:"glyph,omitempty"`
	Size        int            `json:"size"`
	ZIndex      int            `json:"z_index"`
	Label       bool           `json:"label,omitempty"`
}

// PlacedMarker is a MarkerSpec anchored at a coordinate.
type PlacedMarker struct {
	Spec     MarkerSpec `json:"spec"`
	Location GeoPoint   `json:"location"`
	Title    string     `json:"title"`
	RefID    string     `json:"ref_id,omitempty"`
}

// PolylineStyle describes how the route path is stroked.
type PolylineStyle struct {
	Color    string  `json:"color"`
	Weight   int     `json:"weight"`
	Opacity  float64 `json:"opacity"`
	LineJoin string  `json:"line_join"`
}

// Scene is everything a map surface needs to draw one frame.
type Scene struct {
	SessionID string         `json:"session_id"`
	Viewport  Viewport       `json:"viewport"`
	Path      []GeoPoint     `json:"path"`
	Style     PolylineStyle  `json:"style"`
	Markers   []PlacedMarker `json:"markers"`
}
