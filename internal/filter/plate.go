package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/kvstore"
)

const plateKeyPrefix = "PLATE_KEY:"

// Plate colors accepted by the only-yellow-plate rule.
var yellowPlateColors = []string{"s_yellow", "d_yellow"}

// Chain runs the ordered rule filter stages against one report: the plate
// stage first, then the "other" stage. The first veto wins and its reason
// tag is reported.
type Chain struct {
	kv  kvstore.Store
	log zerolog.Logger
}

func NewChain(kv kvstore.Store, log zerolog.Logger) *Chain {
	return &Chain{kv: kv, log: log}
}

// Evaluate returns the veto reason and true when any rule rejects the
// report. Nil configs mean the corresponding stage is skipped entirely.
func (c *Chain) Evaluate(ctx context.Context, rpt *event.Report, plate *PlateConfig, other *OtherConfig) (string, bool) {
	if plate != nil {
		if reason, vetoed := c.evalPlate(ctx, rpt, plate); vetoed {
			return reason, true
		}
	}
	if other != nil {
		if reason, vetoed := c.evalOther(ctx, rpt, other); vetoed {
			return reason, true
		}
	}
	return "", false
}

func (c *Chain) evalPlate(ctx context.Context, rpt *event.Report, cfg *PlateConfig) (string, bool) {
	if !onlyYellowPlate(rpt, cfg.OnlyYellowPlate) {
		return event.ReasonYellowPlate, true
	}
	if ignoreNoPlate(rpt, cfg.IgnoreNoPlateEvents) {
		return event.ReasonNoPlate, true
	}
	if ignoreBlurryPlate(rpt, cfg.IgnoreBlurryPlateEvents) {
		return event.ReasonBlurryPlate, true
	}
	if onlyPlateTypes(rpt, cfg.OnlyPlateTypes) {
		return event.ReasonPlateColor, true
	}
	if nonMotorPlateTypes(rpt, cfg.NonMotorPlateTypesFilter) {
		return event.ReasonPlateColor, true
	}
	if specialText(rpt, cfg.PlateSpecialTextFilter) {
		return event.ReasonSpecialPlate, true
	}
	if shortPlate(rpt, cfg.ShortPlateFilter) {
		return event.ReasonShortPlate, true
	}
	if c.samePlate(ctx, rpt, cfg.IgnoreSamePlateEvents) {
		return event.ReasonSamePlate, true
	}
	return "", false
}

// onlyYellowPlate returns false to veto. Unlike every other rule this one
// fails closed: once the rule is active for the event type, a missing plate
// color rejects the event.
func onlyYellowPlate(rpt *event.Report, rule *OnlyYellowPlateRule) bool {
	if rule == nil || !rule.Enable || len(rule.EventTypes) == 0 || rpt.EventType == "" {
		return true
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return true
	}
	if rpt.PlateColor == "" {
		return false
	}
	return containsString(yellowPlateColors, rpt.PlateColor)
}

func ignoreNoPlate(rpt *event.Report, rule *EnabledTypesRule) bool {
	if rule == nil || !rule.Enable || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	return rpt.PlateNumber == ""
}

func ignoreBlurryPlate(rpt *event.Report, rule *BlurryPlateRule) bool {
	if rule == nil || !rule.Enable || rule.BlurryLevel <= 0 || rpt.EventType == "" {
		return false
	}
	score := rpt.ExtraField("plateNumberScore")
	if !score.Exists() {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	return score.Float() < rule.BlurryLevel
}

func onlyPlateTypes(rpt *event.Report, rule *PlateTypesRule) bool {
	if rule == nil || !rule.Enable || len(rule.PlateColor) == 0 {
		return false
	}
	if rpt.PlateColor == "" || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	return !containsString(rule.PlateColor, rpt.PlateColor)
}

func nonMotorPlateTypes(rpt *event.Report, rules []NonMotorPlateTypesRule) bool {
	if len(rules) == 0 || rpt.EventType == "" || len(rpt.ExtraData) == 0 {
		return false
	}
	label := rpt.ExtraField(`summary.plate/type.label`).String()
	if label == "" {
		label = "nullValue"
	}
	for _, rule := range rules {
		if len(rule.PlateColor) == 0 || len(rule.EventTypes) == 0 {
			continue
		}
		if containsString(rule.EventTypes, rpt.EventType) && !containsString(rule.PlateColor, label) {
			return true
		}
	}
	return false
}

func specialText(rpt *event.Report, rule *SpecialTextRule) bool {
	if rule == nil || len(rule.SpecialTexts) == 0 {
		return false
	}
	if rpt.PlateNumber == "" || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	for _, text := range rule.SpecialTexts {
		if text != "" && strings.Contains(rpt.PlateNumber, text) {
			return true
		}
	}
	return false
}

func shortPlate(rpt *event.Report, rule *EnabledTypesRule) bool {
	if rule == nil || !rule.Enable || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}
	return rpt.PlateNumber != "" && len([]rune(rpt.PlateNumber)) < 7
}

// samePlate vetoes a plate already seen for the same task and event type
// within the configured cooldown. The first sighting seeds the marker and
// passes.
func (c *Chain) samePlate(ctx context.Context, rpt *event.Report, rule *SamePlateRule) bool {
	if rule == nil || !rule.Enable || rule.CoolingSeconds <= 0 {
		return false
	}
	if rpt.PlateNumber == "" || rpt.EventType == "" {
		return false
	}
	if !containsString(rule.EventTypes, rpt.EventType) {
		return false
	}

	key := fmt.Sprintf("%s%s:%s:%s", plateKeyPrefix, rpt.TaskCode, rpt.EventType, rpt.PlateNumber)
	if value, err := c.kv.Get(ctx, key); err == nil && value == rpt.PlateNumber {
		return true
	}
	if err := c.kv.SetEX(ctx, key, rpt.PlateNumber, secondsDuration(rule.CoolingSeconds)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to record plate dedup marker")
	}
	return false
}
