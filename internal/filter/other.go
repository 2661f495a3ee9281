package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"event-ingest-service/internal/domain/event"
)

const posKeyPrefix = "POS_KEY:"

func (c *Chain) evalOther(ctx context.Context, rpt *event.Report, cfg *OtherConfig) (string, bool) {
	if c.samePosition(ctx, rpt, cfg.IgnoreSamePosEvents) {
		return event.ReasonSamePosition, true
	}
	if ignoreAll(rpt, cfg.IgnoreAllEvents) {
		return event.ReasonIgnoreAll, true
	}
	if ignorePart(rpt, cfg.IgnorePartEvents) {
		return event.ReasonIgnorePart, true
	}
	return "", false
}

func ignoreAll(rpt *event.Report, rule *EnabledTypesRule) bool {
	if rule == nil || !rule.Enable || rpt.EventType == "" {
		return false
	}
	return containsString(rule.EventTypes, rpt.EventType)
}

func ignorePart(rpt *event.Report, rule *PartEventsRule) bool {
	if rule == nil || !rule.Enable || rule.EventResult == "" || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	result := rpt.ExtraField("eventResult.result")
	if !result.Exists() {
		return false
	}
	return result.String() == rule.EventResult
}

// samePosition vetoes an event of the same type at a near-identical location
// within the configured cooldown. Flow-type detections carry a 4-number
// bounding box in extraData.position; everything else carries two points
// under snapshot[0].pts.
func (c *Chain) samePosition(ctx context.Context, rpt *event.Report, rule *SamePositionRule) bool {
	if rule == nil || !rule.Enable || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	if rule.CoolingSeconds <= 0 || rule.PosOverlapPercent <= 0 || len(rpt.ExtraData) == 0 {
		return false
	}

	key := fmt.Sprintf("%s%s:%s:", posKeyPrefix, rpt.TaskCode, rpt.EventType)

	position := rpt.ExtraField("position")
	if position.IsArray() {
		box, ok := cornersFromJSON(position.Raw)
		if !ok {
			return false
		}
		return c.dedupBox(ctx, key, position.Raw, rule, func(stored string) (float64, bool) {
			base, ok := cornersFromJSON(stored)
			if !ok {
				return 0, false
			}
			return IOU(box, base), true
		})
	}

	pts := rpt.SnapshotField("0.pts")
	if !pts.IsArray() {
		return false
	}
	box, ok := pointsFromJSON(pts.Raw)
	if !ok {
		return false
	}
	return c.dedupBox(ctx, key, pts.Raw, rule, func(stored string) (float64, bool) {
		base, ok := pointsFromJSON(stored)
		if !ok {
			return 0, false
		}
		return IOU(box, base), true
	})
}

// dedupBox compares the current geometry against the stored reference. A
// missing or malformed reference re-seeds the marker and passes; an
// overlap above the threshold vetoes without touching the marker.
func (c *Chain) dedupBox(ctx context.Context, key, raw string, rule *SamePositionRule, overlap func(stored string) (float64, bool)) bool {
	if stored, err := c.kv.Get(ctx, key); err == nil {
		if rate, ok := overlap(stored); ok && rate > rule.PosOverlapPercent {
			return true
		}
	}
	if err := c.kv.SetEX(ctx, key, raw, secondsDuration(rule.CoolingSeconds)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to record position dedup marker")
	}
	return false
}

// cornersFromJSON parses a 4-number [x1,y1,x2,y2] JSON array.
func cornersFromJSON(raw string) (Box, bool) {
	var v []float64
	if err := json.Unmarshal([]byte(raw), &v); err != nil || len(v) < 4 {
		return Box{}, false
	}
	return boxFromCorners(v), true
}

// pointsFromJSON parses a [[x1,y1],[x2,y2]] JSON array.
func pointsFromJSON(raw string) (Box, bool) {
	var pts [][]float64
	if err := json.Unmarshal([]byte(raw), &pts); err != nil {
		return Box{}, false
	}
	if len(pts) < 2 || len(pts[0]) < 2 || len(pts[1]) < 2 {
		return Box{}, false
	}
	return boxFromPoints(pts), true
}

func secondsDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
