package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/kvstore"
)

const coolingKeyPrefix = "FILTER_EVENT_TYPE:"

// CoolingConfig is the operator-controlled surface of the cooling-down
// filter: a global switch plus the event types it applies to.
type CoolingConfig struct {
	Enabled    bool
	EventTypes []string
}

// ParseCoolingEventTypes splits the configured comma-separated event-type
// list, dropping empty entries.
func ParseCoolingEventTypes(s string) []string {
	var types []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, part)
		}
	}
	return types
}

// CoolingFilter suppresses repeat events of a type for the duration the
// event's own echoed configuration asks for. State lives in the coordination
// store as "{coolingSecond}@{eventTimeMillis}" of the last accepted event.
type CoolingFilter struct {
	cfg CoolingConfig
	kv  kvstore.Store
	log zerolog.Logger
	now func() time.Time
}

func NewCoolingFilter(cfg CoolingConfig, kv kvstore.Store, log zerolog.Logger) *CoolingFilter {
	return &CoolingFilter{cfg: cfg, kv: kv, log: log, now: time.Now}
}

// Suppress decides whether the report falls inside a cooling-down window.
// When it does not, a fresh marker is recorded and the event passes.
func (f *CoolingFilter) Suppress(ctx context.Context, rpt *event.Report) bool {
	if !f.cfg.Enabled || rpt.EventType == "" {
		return false
	}
	if !containsString(f.cfg.EventTypes, rpt.EventType) {
		return false
	}
	coolingSecond := rpt.AlgParam().Get("coolingSecond").Int()
	if coolingSecond <= 0 {
		return false
	}

	key := fmt.Sprintf("%s_%s_%s", coolingKeyPrefix, rpt.TaskCode, rpt.EventType)
	if stored, err := f.kv.Get(ctx, key); err == nil {
		if storedCooling, storedMillis, ok := parseCoolingMarker(stored); ok {
			// Equal durations suppress for the marker's whole lifetime,
			// regardless of the event-time window.
			if storedCooling == coolingSecond {
				return true
			}
			if rpt.EventTime >= storedMillis &&
				rpt.EventTime <= storedMillis+storedCooling*1000 {
				return true
			}
		}
	}

	f.record(ctx, key, coolingSecond, rpt)
	return false
}

func (f *CoolingFilter) record(ctx context.Context, key string, coolingSecond int64, rpt *event.Report) {
	expiry := rpt.EventTimeUTC().Add(time.Duration(coolingSecond) * time.Second).Sub(f.now())
	if expiry < time.Second {
		expiry = time.Second
	}
	value := fmt.Sprintf("%d@%d", coolingSecond, rpt.EventTime)
	if err := f.kv.SetEX(ctx, key, value, expiry); err != nil {
		f.log.Warn().Err(err).
			Str("key", key).
			Str("engine_event_id", rpt.EngineEventID).
			Msg("failed to record cooling marker")
	}
}

// parseCoolingMarker splits "{coolingSecond}@{eventTimeMillis}". A malformed
// value reads as absent.
func parseCoolingMarker(s string) (coolingSecond, eventMillis int64, ok bool) {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return 0, 0, false
	}
	coolingSecond, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	eventMillis, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return coolingSecond, eventMillis, true
}
