// Package review decides whether an accepted event goes to human
// adjudication or is auto-marked as machine-handled.
package review

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/kvstore"
)

// globalSwitchKey holds "1" when review is globally enabled. Read as
// advisory; a store error counts as disabled.
const globalSwitchKey = "Global_Review"

type Outcome int

const (
	Disable Outcome = iota
	Enable
)

func (o Outcome) String() string {
	if o == Enable {
		return "enable"
	}
	return "disable"
}

// Decider evaluates the personnel-review decision for one report against its
// algorithm definition.
type Decider struct {
	kv  kvstore.Store
	log zerolog.Logger
}

func NewDecider(kv kvstore.Store, log zerolog.Logger) *Decider {
	return &Decider{kv: kv, log: log}
}

// Decide walks the decision order: explicit isOpenDQ flag on the selected
// violation first (with its optional time window), then the global switch
// combined with the algorithm-level toggle.
func (d *Decider) Decide(ctx context.Context, rpt *event.Report, reviewSwitch int) Outcome {
	if len(rpt.ExtraData) == 0 {
		return Disable
	}
	algParam := rpt.AlgParam()
	if !algParam.Exists() {
		return Disable
	}

	if isOpenDQ := algParam.Get("isOpenDQ"); isOpenDQ.Exists() {
		if isOpenDQ.Int() == 0 {
			return Disable
		}
		// The window check needs the event timestamp; a report without one
		// cannot be placed inside any window.
		if rpt.EventTime == 0 {
			return Disable
		}
		return checkTimeWindow(rpt.EventTimeUTC(), algParam.Get("openDqTime"))
	}

	value, err := d.kv.Get(ctx, globalSwitchKey)
	if err != nil || value != "1" {
		return Disable
	}
	if reviewSwitch != 1 {
		return Disable
	}
	return Enable
}

// checkTimeWindow requires the event date inside [openDqStartDate,
// openDqEndDate] and its time-of-day inside [openDqStartTime, openDqEndTime]
// (defaults 00:00-23:59). No configured window means enabled.
func checkTimeWindow(eventTime time.Time, window gjson.Result) Outcome {
	if !window.Exists() {
		return Enable
	}

	startDateStr := window.Get("openDqStartDate").String()
	endDateStr := window.Get("openDqEndDate").String()
	if startDateStr != "" && endDateStr != "" {
		startDate, errStart := time.Parse("2006-01-02", startDateStr)
		endDate, errEnd := time.Parse("2006-01-02", endDateStr)
		if errStart == nil && errEnd == nil {
			day := eventTime.Truncate(24 * time.Hour)
			if day.Before(startDate) || day.After(endDate) {
				return Disable
			}
		}
	}

	startTimeStr := window.Get("openDqStartTime").String()
	if startTimeStr == "" {
		startTimeStr = "00:00"
	}
	endTimeStr := window.Get("openDqEndTime").String()
	if endTimeStr == "" {
		endTimeStr = "23:59"
	}
	startTime, errStart := time.Parse("15:04", startTimeStr)
	endTime, errEnd := time.Parse("15:04", endTimeStr)
	if errStart == nil && errEnd == nil {
		minuteOfDay := eventTime.Hour()*60 + eventTime.Minute()
		startMin := startTime.Hour()*60 + startTime.Minute()
		endMin := endTime.Hour()*60 + endTime.Minute()
		if minuteOfDay < startMin || minuteOfDay > endMin {
			return Disable
		}
	}

	return Enable
}
