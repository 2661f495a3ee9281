package filter

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/kvstore"
)

// replayTTL is the window within which a repeated engineEventId is a no-op.
const replayTTL = 600 * time.Second

// ReplayGuard is the idempotency check at pipeline entry. The key is the
// engine event id itself.
type ReplayGuard struct {
	kv  kvstore.Store
	log zerolog.Logger
}

func NewReplayGuard(kv kvstore.Store, log zerolog.Logger) *ReplayGuard {
	return &ReplayGuard{kv: kv, log: log}
}

// Seen reports whether the event id was already processed inside the replay
// window. A store error counts as "not seen" so a flaky coordination store
// cannot block ingestion.
func (g *ReplayGuard) Seen(ctx context.Context, engineEventID string) bool {
	exists, err := g.kv.Exists(ctx, engineEventID)
	if err != nil {
		g.log.Warn().Err(err).
			Str("engine_event_id", engineEventID).
			Msg("replay probe failed, treating as not a replay")
		return false
	}
	return exists
}

// Arm records the event id so repeats within the window are rejected. Called
// at every terminal branch of the pipeline.
func (g *ReplayGuard) Arm(ctx context.Context, engineEventID string) {
	if err := g.kv.SetEX(ctx, engineEventID, engineEventID, replayTTL); err != nil {
		g.log.Warn().Err(err).
			Str("engine_event_id", engineEventID).
			Msg("failed to arm replay guard")
	}
}
