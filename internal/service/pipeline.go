package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/filter"
	"event-ingest-service/internal/metrics"
	"event-ingest-service/internal/repository"
	"event-ingest-service/internal/review"
)

// EventStore persists canonical event records. Satisfied by
// repository.EventRepository.
type EventStore interface {
	CreateEvent(ctx context.Context, e *repository.Event) error
}

// ReferenceData is the cached reference-data surface the pipeline consults.
// Satisfied by refcache.Service.
type ReferenceData interface {
	FindTaskByCode(ctx context.Context, code string) (*repository.Task, error)
	FindAlgorithmByCode(ctx context.Context, code string) (*repository.Algorithm, error)
	BaseConfigsByProject(ctx context.Context, projectID int64) ([]repository.BaseConfig, error)
	FilterChainConfigs(ctx context.Context, projectID int64) (*filter.PlateConfig, *filter.OtherConfig, error)
}

// Pusher issues the downstream notifications. Satisfied by notify.Notifier.
type Pusher interface {
	PushFiltered(rpt *event.Report)
	PushReview(rec *event.ReviewPush)
}

// Pipeline sequences the event decision checks against one report and owns
// the derivation of the persisted record.
type Pipeline struct {
	refs     ReferenceData
	events   EventStore
	replay   *filter.ReplayGuard
	cooling  *filter.CoolingFilter
	chain    *filter.Chain
	reviewer *review.Decider
	notifier Pusher
	log      zerolog.Logger
	now      func() time.Time
}

func NewPipeline(
	refs ReferenceData,
	events EventStore,
	replay *filter.ReplayGuard,
	cooling *filter.CoolingFilter,
	chain *filter.Chain,
	reviewer *review.Decider,
	notifier Pusher,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		refs:     refs,
		events:   events,
		replay:   replay,
		cooling:  cooling,
		chain:    chain,
		reviewer: reviewer,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Process runs one report through the full decision pipeline and returns a
// human-readable status message. A non-nil error is a hard failure the
// transport layer maps to an internal error envelope.
func (p *Pipeline) Process(ctx context.Context, rpt *event.Report) (string, error) {
	metrics.EventsReceived.Inc()
	timer := prometheus.NewTimer(metrics.ProcessingDuration)
	defer timer.ObserveDuration()

	log := p.log.With().Str("engine_event_id", rpt.EngineEventID).Logger()
	log.Info().Str("task_code", rpt.TaskCode).Str("event_type", rpt.EventType).Msg("box report received")

	if rpt.Source == "" {
		return p.status(rpt, "validation failed: Invalid source"), nil
	}
	if rpt.EngineEventID == "" {
		return p.status(rpt, "validation failed: Invalid engineEventId"), nil
	}

	if p.replay.Seen(ctx, rpt.EngineEventID) {
		metrics.EventsDuplicate.Inc()
		return p.status(rpt, "event already processed"), nil
	}

	task, err := p.refs.FindTaskByCode(ctx, rpt.TaskCode)
	if err != nil {
		return "", fmt.Errorf("task lookup failed: %w", err)
	}
	if task == nil {
		return "", fmt.Errorf("no running task found for code %q", rpt.TaskCode)
	}
	if task.ProjectID != nil {
		rpt.ProjectID = *task.ProjectID
	}
	rpt.ProjectName = task.ProjectName

	if p.cooling.Suppress(ctx, rpt) {
		log.Info().Msg("event suppressed by cooling-down filter")
		metrics.EventsFiltered.WithLabelValues("coolingDown").Inc()
		rpt.Marking = event.MarkingFiltered
		p.replay.Arm(ctx, rpt.EngineEventID)
		return p.status(rpt, "event filtered by cooling-down"), nil
	}

	// Base configs only gate; absence or a lookup error is tolerated.
	if _, err := p.refs.BaseConfigsByProject(ctx, rpt.ProjectID); err != nil {
		log.Warn().Err(err).Msg("base config lookup failed, continuing")
	}

	plateCfg, otherCfg, err := p.refs.FilterChainConfigs(ctx, rpt.ProjectID)
	if err != nil {
		log.Warn().Err(err).Msg("filter config lookup failed, continuing without rule chain")
	}

	if reason, vetoed := p.chain.Evaluate(ctx, rpt, plateCfg, otherCfg); vetoed {
		log.Info().Str("reason", reason).Msg("event vetoed by rule filter chain")
		metrics.EventsFiltered.WithLabelValues(reason).Inc()

		rpt.Marking = event.MarkingFiltered
		record := p.eventFromReport(rpt, task)
		record.FilteredType = &reason
		if err := p.events.CreateEvent(ctx, record); err != nil {
			return "", fmt.Errorf("failed to persist filtered event: %w", err)
		}
		metrics.EventsPersisted.WithLabelValues(event.MarkingFiltered).Inc()

		p.notifier.PushFiltered(rpt)
		p.replay.Arm(ctx, rpt.EngineEventID)
		return p.status(rpt, "event filtered: "+reason), nil
	}

	if rpt.Marking == event.MarkingUnknown {
		record := p.eventFromReport(rpt, task)
		if err := p.events.CreateEvent(ctx, record); err != nil {
			return "", fmt.Errorf("failed to persist unknown event: %w", err)
		}
		metrics.EventsPersisted.WithLabelValues(event.MarkingUnknown).Inc()

		p.notifier.PushFiltered(rpt)
		p.replay.Arm(ctx, rpt.EngineEventID)
		return p.status(rpt, "unknown event saved"), nil
	}

	if rpt.EventType == "" {
		return p.status(rpt, "validation failed: Invalid eventType"), nil
	}

	algorithm, err := p.refs.FindAlgorithmByCode(ctx, rpt.EventType)
	if err != nil {
		return "", fmt.Errorf("algorithm lookup failed: %w", err)
	}
	if algorithm == nil {
		return p.status(rpt, "no algorithm found for event type, skipping review check"), nil
	}

	outcome := p.reviewer.Decide(ctx, rpt, algorithm.ReviewSwitch)

	record := p.eventFromReport(rpt, task)
	now := p.now()
	if outcome == review.Enable {
		record.Marking = event.MarkingInit
		record.MarkingTime = &now
	} else {
		record.Marking = event.MarkingEvent
		record.MarkingTime = &now
		record.Extra = stampMarkingMetadata(record.Extra, now)
	}

	if err := p.events.CreateEvent(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist event: %w", err)
	}
	metrics.EventsPersisted.WithLabelValues(record.Marking).Inc()

	if outcome == review.Enable {
		metrics.EventsReviewQueued.Inc()
		p.notifier.PushReview(p.buildReviewPush(rpt, record, algorithm))
	}

	p.replay.Arm(ctx, rpt.EngineEventID)
	return p.status(rpt, "event processed successfully"), nil
}

func (p *Pipeline) status(rpt *event.Report, msg string) string {
	return fmt.Sprintf("box report %s: %s", rpt.EngineEventID, msg)
}

// eventFromReport derives the canonical persisted record. The id is the
// client-supplied one when present, else epoch milliseconds at persist time.
func (p *Pipeline) eventFromReport(rpt *event.Report, task *repository.Task) *repository.Event {
	now := p.now()
	id := rpt.ID
	if id == 0 {
		id = now.UnixMilli()
	}

	record := &repository.Event{
		ID:                       id,
		TaskCode:                 rpt.TaskCode,
		TaskName:                 task.Name,
		SceneID:                  task.SceneID,
		Source:                   rpt.Source,
		ProjectID:                rpt.ProjectID,
		ProjectName:              rpt.ProjectName,
		EventType:                rpt.EventType,
		EventTypeName:            rpt.EventTypeName,
		Marking:                  rpt.Marking,
		EngineEventID:            rpt.EngineEventID,
		VehicleType:              rpt.VehicleType,
		PlateNumber:              rpt.PlateNumber,
		PlateColor:               rpt.PlateColor,
		SpecialCarType:           rpt.SpecialCarType,
		EngineVersion:            rpt.EngineVersion,
		Snapshot:                 []byte(rpt.Snapshot),
		SnapshotURICompress:      rpt.SnapshotURICompress,
		SnapshotURIRawCompress:   rpt.SnapshotURIRawCompress,
		SnapshotURICoverCompress: rpt.SnapshotURICoverCompress,
		ExtraData:                []byte(rpt.ExtraData),
		CameraCode:               rpt.CameraCode,
		EvidenceStatus:           rpt.EvidenceStatus,
		EvidenceURL:              rpt.EvidenceURL,
		OriginalViolationIndex:   rpt.OriginalViolationIndex,
		Extra:                    []byte(rpt.Extra),
		CreateTime:               now,
		UpdateTime:               now,
	}
	if rpt.EventTime != 0 {
		t := rpt.EventTimeUTC()
		record.EventTime = &t
	}
	if rpt.EndTime != 0 {
		t := time.UnixMilli(rpt.EndTime).UTC()
		record.EndTime = &t
	}
	return record
}

// stampMarkingMetadata merges the machine-handled marking block into extra.
func stampMarkingMetadata(extra []byte, now time.Time) []byte {
	doc := map[string]json.RawMessage{}
	if len(extra) > 0 {
		// A malformed extra document is replaced rather than propagated.
		_ = json.Unmarshal(extra, &doc)
	}
	marking, _ := json.Marshal(map[string]any{
		"MarkEventCount": 1,
		"MarkingBy":      0,
		"MarkingTime":    now.UTC().Format("2006-01-02 15:04:05"),
	})
	doc["marking"] = marking
	merged, _ := json.Marshal(doc)
	return merged
}

// buildReviewPush projects the persisted event into the review-queue
// payload, pulling position/taskSnapshot out of extraData and the violation
// parameters plus draw/editable config from the algorithm definition.
func (p *Pipeline) buildReviewPush(rpt *event.Report, record *repository.Event, algorithm *repository.Algorithm) *event.ReviewPush {
	push := &event.ReviewPush{
		ID:                       record.ID,
		TaskCode:                 rpt.TaskCode,
		Source:                   rpt.Source,
		EventType:                rpt.EventType,
		EventTime:                rpt.EventTime,
		EndTime:                  rpt.EndTime,
		Marking:                  record.Marking,
		EngineEventID:            rpt.EngineEventID,
		VehicleType:              rpt.VehicleType,
		PlateNumber:              rpt.PlateNumber,
		PlateColor:               rpt.PlateColor,
		SpecialCarType:           rpt.SpecialCarType,
		EngineVersion:            rpt.EngineVersion,
		Snapshot:                 rpt.Snapshot,
		SnapshotURICompress:      rpt.SnapshotURICompress,
		SnapshotURIRawCompress:   rpt.SnapshotURIRawCompress,
		SnapshotURICoverCompress: rpt.SnapshotURICoverCompress,
		ExtraData:                rpt.ExtraData,
		CameraCode:               rpt.CameraCode,
		EvidenceStatus:           rpt.EvidenceStatus,
		EvidenceURL:              rpt.EvidenceURL,
		OriginalViolationIndex:   rpt.OriginalViolationIndex,
		Extra:                    rpt.Extra,
		ProjectID:                rpt.ProjectID,
		ProjectName:              rpt.ProjectName,
		CompanyID:                rpt.CompanyID,
		CompanyName:              rpt.CompanyName,
	}

	if len(rpt.ExtraData) == 0 {
		return push
	}

	if position := rpt.ExtraField("position"); position.IsArray() && len(position.Array()) > 0 {
		push.Position = json.RawMessage(position.Raw)
	}
	if snapshot := rpt.ExtraField("taskSnapshot"); snapshot.Exists() {
		push.TaskSnapshot = snapshot.String()
	}

	originalConfig := map[string]json.RawMessage{}
	if algList := rpt.AlgList(); algList.IsArray() {
		for _, entry := range algList.Array() {
			if entry.Get("eventType").String() != rpt.EventType {
				continue
			}
			if algParam := entry.Get("algParam"); algParam.Exists() {
				violations, _ := json.Marshal([]json.RawMessage{json.RawMessage(algParam.Raw)})
				originalConfig["violations"] = violations
			}
			break
		}
	}
	if algorithm.DrawType != "" {
		drawType, _ := json.Marshal(algorithm.DrawType)
		originalConfig["drawType"] = drawType
	}
	if raw, err := json.Marshal(originalConfig); err == nil {
		push.OriginalConfig = raw
	}

	if editable := gjson.GetBytes(algorithm.EditableConfig, "config"); editable.IsArray() {
		push.Editable = json.RawMessage(editable.Raw)
	}

	return push
}
