package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hikepal/internal/adapters/mapsurface"
	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/usecases"
)

// participantInput is the wire form of a participant in a start request.
type participantInput struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Avatar   string           `json:"avatar,omitempty"`
	Status   string           `json:"status,omitempty"`
	Location *domain.GeoPoint `json:"location,omitempty"`
}

func (p participantInput) participant() domain.Participant {
	return domain.Participant{
		ID:       strings.TrimSpace(p.ID),
		Name:     p.Name,
		Avatar:   p.Avatar,
		Status:   domain.ParticipantStatus(p.Status),
		Location: p.Location,
	}
}

type startSessionRequest struct {
	Trail     string             `json:"trail"`
	Local     *participantInput  `json:"local,omitempty"`
	Teammates []participantInput `json:"teammates,omitempty"`
}

type sendMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type sendMessageResponse struct {
	Message domain.Message  `json:"message"`
	Pending bool            `json:"pending"`
	Reply   *domain.Message `json:"reply,omitempty"`
}

type messagesResponse struct {
	Channel  domain.Channel   `json:"channel"`
	Messages []domain.Message `json:"messages"`
	LatestID int64            `json:"latest_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// locationRequest uses pointers so a missing coordinate is not read as 0.
type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// trailResponse exposes the route path, which domain.Trail keeps off the wire.
type trailResponse struct {
	domain.Trail
	Path []domain.GeoPoint `json:"path"`
}

// sessionSummary is one entry of the session list.
type sessionSummary struct {
	ID        string `json:"id"`
	Trail     string `json:"trail"`
	StartedAt string `json:"started_at"`
}

// StartSessionHandler opens a companion session.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid JSON body")
			}
		}

		in := usecases.StartInput{Trail: req.Trail}
		if req.Local != nil {
			local := req.Local.participant()
			in.Local = &local
		}
		if req.Teammates != nil {
			in.Teammates = make([]domain.Participant, 0, len(req.Teammates))
			for _, tm := range req.Teammates {
				in.Teammates = append(in.Teammates, tm.participant())
			}
		}

		sess, err := deps.Sessions.Start(c.UserContext(), in)
		if err != nil {
			return mapError(c, err)
		}

		c.Set("Location", "/v1/sessions/"+sess.ID())
		return c.Status(fiber.StatusCreated).JSON(sess.Snapshot())
	}
}

// ListSessionsHandler returns a page of live sessions.
func ListSessionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions := deps.Sessions.List()
		out := make([]sessionSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, sessionSummary{
				ID:        s.ID(),
				Trail:     s.Trail().Slug,
				StartedAt: s.StartedAt().UTC().Format(time.RFC3339),
			})
		}
		return c.JSON(paginate(c, out, 50, 200))
	}
}

// GetSessionHandler returns a session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(sess.Snapshot())
	}
}

// EndSessionHandler closes a session and releases its map surface.
func EndSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.End(c.Params("id")); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SendMessageHandler appends a message to a channel. Advisory replies arrive
// asynchronously unless the caller asks to wait=true.
func SendMessageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}

		var req sendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		ch, err := domain.ParseChannel(req.Channel)
		if err != nil {
			return mapError(c, err)
		}

		res, err := sess.Send(ch, req.Text)
		if err != nil {
			return mapError(c, err)
		}

		resp := sendMessageResponse{Message: res.Message, Pending: res.Pending != nil}
		if res.Pending != nil && c.QueryBool("wait", false) {
			result, err := res.Pending.Wait(c.UserContext())
			if err != nil {
				return c.Status(fiber.StatusAccepted).JSON(resp)
			}
			resp.Pending = false
			if result.Outcome != usecases.OutcomeCancelled {
				reply := result.Reply
				resp.Reply = &reply
			}
			return c.JSON(resp)
		}
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}
}

// ListMessagesHandler returns the tail of a channel log.
func ListMessagesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}

		ch, err := domain.ParseChannel(c.Query("channel", string(domain.ChannelAdvisory)))
		if err != nil {
			return mapError(c, err)
		}
		n := c.QueryInt("n", 50)
		if n < 0 {
			return errBadRequest(c, "n must be non-negative")
		}
		if n > 500 {
			n = 500
		}

		msgs, latest, err := sess.Messages(ch, n)
		if err != nil {
			return mapError(c, err)
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(messagesResponse{Channel: ch, Messages: msgs, LatestID: latest})
	}
}

// ChannelStateHandler returns the request state of one channel.
func ChannelStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		ch, err := domain.ParseChannel(c.Params("channel"))
		if err != nil {
			return mapError(c, err)
		}
		st, err := sess.ChannelState(ch)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(st)
	}
}

// ParticipantsHandler lists the local participant first, then teammates.
func ParticipantsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(fiber.Map{"data": sess.Participants()})
	}
}

// UpdateLocationHandler applies a location reading for one participant.
func UpdateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}

		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}
		loc := domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
		if err := sess.UpdatePosition(c.UserContext(), c.Params("pid"), loc, usecases.SourceAPI); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UpdateStatusHandler changes a participant's status.
func UpdateStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}

		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		status, err := domain.ParseParticipantStatus(req.Status)
		if err != nil {
			return mapError(c, err)
		}
		if err := sess.SetStatus(c.UserContext(), c.Params("pid"), status); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ViewportHandler returns the padded map viewport of the session's trail.
func ViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(sess.Viewport())
	}
}

// SceneHandler returns the current map scene as a GeoJSON FeatureCollection.
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		c.Set("Content-Type", "application/geo+json")
		data, err := mapsurface.FeatureCollection(sess.Scene()).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.Send(data)
	}
}

// MarkerHandler returns the presentation spec of a marker category.
func MarkerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		spec, err := usecases.MarkerFor(domain.MarkerCategory(c.Params("category")))
		if err != nil {
			return mapError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(spec)
	}
}

// ListTrailsHandler returns a page of the trail catalog.
func ListTrailsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trails, err := deps.Sessions.Trails(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		out := make([]trailResponse, 0, len(trails))
		for _, t := range trails {
			out = append(out, newTrailResponse(t))
		}
		return c.JSON(paginate(c, out, 50, 200))
	}
}

func newTrailResponse(t domain.Trail) trailResponse {
	return trailResponse{Trail: t, Path: t.Path.Points()}
}
