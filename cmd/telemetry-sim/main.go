// Command telemetry-sim publishes simulated hiker positions for a session so
// the presence pipeline can be exercised without devices.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	flag "github.com/spf13/pflag"

	natsadapter "github.com/samirrijal/hikepal/internal/adapters/nats"
	"github.com/samirrijal/hikepal/internal/adapters/postgres"
	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
	"github.com/samirrijal/hikepal/internal/core/usecases"
	"github.com/samirrijal/hikepal/internal/pkg/config"
	"github.com/samirrijal/hikepal/internal/pkg/logging"
)

func main() {
	var (
		sessionID    = flag.StringP("session", "s", "", "session id to publish into (required)")
		participants = flag.StringSlice("participants", []string{"u1", "u2", "u3"}, "participant ids to move")
		interval     = flag.Duration("interval", 2*time.Second, "time between position ticks")
		speed        = flag.Float64("speed", 8, "meters walked per tick")
		spacing      = flag.Float64("spacing", 40, "meters between consecutive hikers")
		trailSlug    = flag.String("trail", usecases.DragonsBackSlug, "trail to walk")
		chatter      = flag.String("chatter", "", "participant id that occasionally posts to the team channel")
		chatterEvery = flag.Int("chatter-every", 15, "ticks between chatter messages")
		ticks        = flag.Int("ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	)
	flag.Parse()

	logging.SetupFromEnv()

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "--session is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("hikepal-telemetry-sim")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trail, err := loadTrail(ctx, cfg, *trailSlug)
	if err != nil {
		log.Fatalf("load trail: %v", err)
	}

	conn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats connect: %v", err)
	}
	defer conn.Drain()

	js, err := conn.JetStream()
	if err != nil {
		log.Fatalf("jetstream: %v", err)
	}
	if err := natsadapter.EnsureStreams(js); err != nil {
		log.Fatalf("ensure streams: %v", err)
	}

	w := newWalker(trail.Path, *participants, *speed, *spacing)
	slog.Info("simulating hikers",
		"session_id", *sessionID,
		"trail", trail.Slug,
		"participants", *participants,
		"length_m", int(w.length),
		"interval", *interval,
	)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			slog.Info("telemetry-sim stopped", "ticks", n-1)
			return
		case <-ticker.C:
		}

		now := time.Now().UTC()
		for id, p := range w.step() {
			payload := natsadapter.TelemetryPayload{
				ParticipantID: id,
				Lat:           p.Lat,
				Lon:           p.Lon,
				RecordedAt:    now.Format(time.RFC3339),
			}
			if err := publish(ctx, js, natsadapter.TelemetrySubject(*sessionID, id), payload); err != nil {
				slog.Warn("publish position failed", "participant_id", id, "error", err)
			}
		}

		if *chatter != "" && *chatterEvery > 0 && n%*chatterEvery == 0 {
			payload := natsadapter.TeamPayload{ParticipantID: *chatter, Text: chatterLine(n / *chatterEvery)}
			if err := publish(ctx, js, natsadapter.TeamInboundSubject(*sessionID), payload); err != nil {
				slog.Warn("publish team message failed", "participant_id", *chatter, "error", err)
			}
		}

		slog.Debug("tick published", "tick", n, "participants", len(*participants))
		if *ticks > 0 && n >= *ticks {
			slog.Info("telemetry-sim finished", "ticks", n)
			return
		}
	}
}

func loadTrail(ctx context.Context, cfg *config.Config, slug string) (*domain.Trail, error) {
	var repo ports.TrailRepository = usecases.NewStaticTrails()
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
		if err != nil {
			slog.Warn("database unavailable, using built-in trails", "error", err)
		} else {
			defer db.Close()
			repo = postgres.NewTrailRepo(db.Pool)
		}
	}
	return repo.GetBySlug(ctx, slug)
}

func publish(ctx context.Context, js nats.JetStreamContext, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = js.Publish(subject, data, nats.Context(ctx))
	return err
}

var chatterLines = []string{
	"Making good time, see you at the peak",
	"Stopping for water for a minute",
	"Great view from here!",
	"Anyone need sunscreen?",
}

func chatterLine(i int) string {
	return chatterLines[i%len(chatterLines)]
}
