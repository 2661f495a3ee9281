package event

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Marking values stamped on a persisted event. A record gets exactly one of
// these and the pipeline never changes it afterwards.
const (
	MarkingFiltered = "filtered"
	MarkingUnknown  = "unknown"
	MarkingInit     = "init"
	MarkingEvent    = "event"
)

// Machine-readable reasons recorded in filtered_type when a rule vetoes an
// event.
const (
	ReasonYellowPlate  = "yellowPlate"
	ReasonNoPlate      = "noPlate"
	ReasonBlurryPlate  = "blurryPlate"
	ReasonPlateColor   = "plateColorFiltered"
	ReasonSpecialPlate = "specialPlateFilter"
	ReasonShortPlate   = "shortPlateFilter"
	ReasonSamePlate    = "samePlate"
	ReasonSamePosition = "samePosition"
	ReasonIgnoreAll    = "ignoreAllEvents"
	ReasonIgnorePart   = "ignorePartEvents"
)

// Report is the inbound record a box POSTs to the ingestion endpoint.
// Times are epoch milliseconds as sent by the devices. ProjectID/ProjectName
// and the company fields arrive empty and are filled in during enrichment
// from the cached task.
type Report struct {
	ID                       int64           `json:"id,omitempty"`
	TaskCode                 string          `json:"taskCode"`
	Source                   string          `json:"source"`
	EventType                string          `json:"eventType"`
	EventTypeName            string          `json:"eventTypeName,omitempty"`
	EventTime                int64           `json:"eventTime"`
	EndTime                  int64           `json:"endTime,omitempty"`
	Marking                  string          `json:"marking,omitempty"`
	EngineEventID            string          `json:"engineEventId"`
	VehicleType              string          `json:"vehicleType,omitempty"`
	PlateNumber              string          `json:"plateNumber,omitempty"`
	PlateColor               string          `json:"plateColor,omitempty"`
	SpecialCarType           string          `json:"specialCarType,omitempty"`
	EngineVersion            string          `json:"engineVersion,omitempty"`
	Snapshot                 json.RawMessage `json:"snapshot,omitempty"`
	SnapshotURICompress      string          `json:"snapshotUriCompress,omitempty"`
	SnapshotURIRawCompress   string          `json:"snapshotUriRawCompress,omitempty"`
	SnapshotURICoverCompress string          `json:"snapshotUriCoverCompress,omitempty"`
	ExtraData                json.RawMessage `json:"extraData,omitempty"`
	CameraCode               string          `json:"cameraCode,omitempty"`
	EvidenceStatus           string          `json:"evidenceStatus,omitempty"`
	EvidenceURL              string          `json:"evidenceUrl,omitempty"`
	OriginalViolationIndex   int             `json:"originalViolationIndex,omitempty"`
	Extra                    json.RawMessage `json:"extra,omitempty"`
	ProjectID                int64           `json:"projectId,omitempty"`
	ProjectName              string          `json:"projectName,omitempty"`
	CompanyID                int64           `json:"companyId,omitempty"`
	CompanyName              string          `json:"companyName,omitempty"`
}

// EventTimeUTC converts the device epoch-millisecond timestamp. Zero means
// the box did not send one.
func (r *Report) EventTimeUTC() time.Time {
	return time.UnixMilli(r.EventTime).UTC()
}

// ExtraField resolves a gjson path inside extraData. Missing levels yield a
// non-existent result, never a panic.
func (r *Report) ExtraField(path string) gjson.Result {
	return gjson.GetBytes(r.ExtraData, path)
}

// SnapshotField resolves a gjson path inside the snapshot document.
func (r *Report) SnapshotField(path string) gjson.Result {
	return gjson.GetBytes(r.Snapshot, path)
}

// AlgList returns extraData.originalConfig.algList.
func (r *Report) AlgList() gjson.Result {
	return r.ExtraField("originalConfig.algList")
}

// AlgParam returns the algParam block of the violation the report points at
// via originalViolationIndex. The zero result means out of range or absent.
func (r *Report) AlgParam() gjson.Result {
	list := r.AlgList()
	if !list.IsArray() {
		return gjson.Result{}
	}
	entries := list.Array()
	idx := r.OriginalViolationIndex
	if idx < 0 || idx >= len(entries) {
		return gjson.Result{}
	}
	return entries[idx].Get("algParam")
}

// ReviewPush is the projection sent to the review-queue service when a
// persisted event requires human adjudication. ID is the persisted record id.
type ReviewPush struct {
	ID                       int64           `json:"id"`
	TaskCode                 string          `json:"taskCode"`
	Source                   string          `json:"source"`
	EventType                string          `json:"eventType"`
	EventTime                int64           `json:"eventTime"`
	EndTime                  int64           `json:"endTime,omitempty"`
	Marking                  string          `json:"marking"`
	EngineEventID            string          `json:"engineEventId"`
	VehicleType              string          `json:"vehicleType,omitempty"`
	PlateNumber              string          `json:"plateNumber,omitempty"`
	PlateColor               string          `json:"plateColor,omitempty"`
	SpecialCarType           string          `json:"specialCarType,omitempty"`
	EngineVersion            string          `json:"engineVersion,omitempty"`
	Snapshot                 json.RawMessage `json:"snapshot,omitempty"`
	SnapshotURICompress      string          `json:"snapshotUriCompress,omitempty"`
	SnapshotURIRawCompress   string          `json:"snapshotUriRawCompress,omitempty"`
	SnapshotURICoverCompress string          `json:"snapshotUriCoverCompress,omitempty"`
	ExtraData                json.RawMessage `json:"extraData,omitempty"`
	CameraCode               string          `json:"cameraCode,omitempty"`
	EvidenceStatus           string          `json:"evidenceStatus,omitempty"`
	EvidenceURL              string          `json:"evidenceUrl,omitempty"`
	OriginalViolationIndex   int             `json:"originalViolationIndex"`
	Extra                    json.RawMessage `json:"extra,omitempty"`
	ProjectID                int64           `json:"projectId"`
	ProjectName              string          `json:"projectName,omitempty"`
	CompanyID                int64           `json:"companyId,omitempty"`
	CompanyName              string          `json:"companyName,omitempty"`

	Position       json.RawMessage `json:"position,omitempty"`
	TaskSnapshot   string          `json:"taskSnapshot,omitempty"`
	OriginalConfig json.RawMessage `json:"originalConfig,omitempty"`
	Editable       json.RawMessage `json:"editable,omitempty"`
}
