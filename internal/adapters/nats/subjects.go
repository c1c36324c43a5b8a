package natsadapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Subject layout:
//
//	hike.session.<session>.{message,state,presence,scene}   outbound session events
//	hike.telemetry.<session>.<participant>                  inbound positions
//	hike.team.<session>.inbound                             inbound teammate chat
const (
	sessionPrefix   = "hike.session."
	telemetryPrefix = "hike.telemetry."
	teamPrefix      = "hike.team."
)

// Event types carried in Envelope.Type.
const (
	EventMessage  = "message"
	EventState    = "state"
	EventPresence = "presence"
	EventScene    = "scene"
)

// Envelope wraps every outbound session event.
type Envelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	At        time.Time       `json:"at"`
	Data      json.RawMessage `json:"data"`
}

// SessionSubject is the subject for one event type of a session.
func SessionSubject(sessionID, event string) string {
	return sessionPrefix + token(sessionID) + "." + event
}

// SessionWildcard matches every event of a session.
func SessionWildcard(sessionID string) string {
	return sessionPrefix + token(sessionID) + ".>"
}

// EventFromSubject returns the event type of a session subject, or "" when
// subject is not one.
func EventFromSubject(subject string) string {
	if !strings.HasPrefix(subject, sessionPrefix) {
		return ""
	}
	i := strings.LastIndexByte(subject, '.')
	if i < len(sessionPrefix) {
		return ""
	}
	return subject[i+1:]
}

// TelemetrySubject is where a participant's positions are published.
func TelemetrySubject(sessionID, participantID string) string {
	return telemetryPrefix + token(sessionID) + "." + token(participantID)
}

// TelemetryWildcard matches every participant position of a session.
func TelemetryWildcard(sessionID string) string {
	return telemetryPrefix + token(sessionID) + ".*"
}

// TeamInboundSubject carries teammate chat authored outside the service.
func TeamInboundSubject(sessionID string) string {
	return teamPrefix + token(sessionID) + ".inbound"
}

func encodeEnvelope(event, sessionID string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event, err)
	}
	return json.Marshal(Envelope{Type: event, SessionID: sessionID, At: time.Now().UTC(), Data: data})
}

// token keeps ids from injecting subject separators or wildcards.
func token(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
