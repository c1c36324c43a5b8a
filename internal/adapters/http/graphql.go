package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/usecases"
)

// channelEntry flattens Snapshot.Channels for GraphQL, which has no map type.
type channelEntry struct {
	Channel  domain.Channel      `json:"channel"`
	State    domain.ChannelState `json:"state"`
	LatestID int64               `json:"latest_id"`
	Count    int                 `json:"count"`
}

// buildSchema creates the read-only GraphQL schema over live sessions.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"bounds":        &graphql.Field{Type: boundsType},
			"padded_bounds": &graphql.Field{Type: boundsType},
			"center":        &graphql.Field{Type: geoPointType},
			"zoom":          &graphql.Field{Type: graphql.Int},
			"fallback":      &graphql.Field{Type: graphql.Boolean},
		},
	})

	participantType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Participant",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"avatar":   &graphql.Field{Type: graphql.String},
			"status":   &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"local":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	messageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Message",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"channel":     &graphql.Field{Type: graphql.String},
			"sender":      &graphql.Field{Type: graphql.String},
			"sender_id":   &graphql.Field{Type: graphql.String},
			"sender_name": &graphql.Field{Type: graphql.String},
			"text":        &graphql.Field{Type: graphql.String},
			"timestamp":   &graphql.Field{Type: graphql.DateTime},
			"map_result":  &graphql.Field{Type: graphql.Boolean},
		},
	})

	channelStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ChannelState",
		Fields: graphql.Fields{
			"channel":      &graphql.Field{Type: graphql.String},
			"status":       &graphql.Field{Type: graphql.String},
			"last_outcome": &graphql.Field{Type: graphql.String},
			"updated_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	channelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Channel",
		Fields: graphql.Fields{
			"channel":   &graphql.Field{Type: graphql.String},
			"state":     &graphql.Field{Type: channelStateType},
			"latest_id": &graphql.Field{Type: graphql.Int},
			"count":     &graphql.Field{Type: graphql.Int},
		},
	})

	trailType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trail",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"region":      &graphql.Field{Type: graphql.String},
			"start_point": &graphql.Field{Type: graphql.String},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"trail":        &graphql.Field{Type: trailType},
			"started_at":   &graphql.Field{Type: graphql.DateTime},
			"participants": &graphql.Field{Type: graphql.NewList(participantType)},
			"viewport":     &graphql.Field{Type: viewportType},
			"channels": &graphql.Field{
				Type: graphql.NewList(channelType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap := p.Source.(usecases.Snapshot)
					out := make([]channelEntry, 0, len(snap.Channels))
					for _, ch := range []domain.Channel{domain.ChannelAdvisory, domain.ChannelTeam} {
						if v, ok := snap.Channels[ch]; ok {
							out = append(out, channelEntry{Channel: ch, State: v.State, LatestID: v.LatestID, Count: v.Count})
						}
					}
					return out, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Snapshot of a live session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := deps.Sessions.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return sess.Snapshot(), nil
				},
			},
			"messages": &graphql.Field{
				Type:        graphql.NewList(messageType),
				Description: "Last n messages of a session channel",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"channel": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.ChannelAdvisory)},
					"n":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := deps.Sessions.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					ch, err := domain.ParseChannel(p.Args["channel"].(string))
					if err != nil {
						return nil, err
					}
					msgs, _, err := sess.Messages(ch, p.Args["n"].(int))
					return msgs, err
				},
			},
			"participants": &graphql.Field{
				Type:        graphql.NewList(participantType),
				Description: "Participants of a session, local first",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := deps.Sessions.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					return sess.Participants(), nil
				},
			},
			"viewport": &graphql.Field{
				Type:        viewportType,
				Description: "Padded map viewport of a session",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := deps.Sessions.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					return sess.Viewport(), nil
				},
			},
			"trails": &graphql.Field{
				Type:        graphql.NewList(trailType),
				Description: "Trail catalog",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Trails(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
