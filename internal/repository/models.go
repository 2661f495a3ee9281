package repository

import (
	"time"

	"gorm.io/datatypes"
)

// Event is the canonical persisted record for one accepted, filtered or
// unknown report. IDs are assigned by the pipeline (client id or epoch
// milliseconds), not by the database.
type Event struct {
	ID                       int64          `gorm:"primaryKey" json:"id"`
	TaskCode                 string         `gorm:"not null" json:"taskCode"`
	TaskName                 string         `json:"taskName,omitempty"`
	SceneID                  *int64         `json:"sceneId,omitempty"`
	Source                   string         `gorm:"not null" json:"source"`
	ProjectID                int64          `json:"projectId"`
	ProjectName              string         `json:"projectName,omitempty"`
	CompanyID                *int64         `json:"companyId,omitempty"`
	CompanyName              *string        `json:"companyName,omitempty"`
	EventType                string         `json:"eventType,omitempty"`
	EventTypeName            string         `json:"eventTypeName,omitempty"`
	EventTime                *time.Time     `json:"eventTime,omitempty"`
	EndTime                  *time.Time     `json:"endTime,omitempty"`
	Marking                  string         `json:"marking,omitempty"`
	EngineEventID            string         `gorm:"not null" json:"engineEventId"`
	VehicleType              string         `json:"vehicleType,omitempty"`
	PlateNumber              string         `json:"plateNumber,omitempty"`
	PlateColor               string         `json:"plateColor,omitempty"`
	SpecialCarType           string         `json:"specialCarType,omitempty"`
	EngineVersion            string         `json:"engineVersion,omitempty"`
	Snapshot                 datatypes.JSON `json:"snapshot,omitempty"`
	SnapshotURICompress      string         `gorm:"column:snapshot_uri_compress" json:"snapshotUriCompress,omitempty"`
	SnapshotURIRawCompress   string         `gorm:"column:snapshot_uri_raw_compress" json:"snapshotUriRawCompress,omitempty"`
	SnapshotURICoverCompress string         `gorm:"column:snapshot_uri_cover_compress" json:"snapshotUriCoverCompress,omitempty"`
	ExtraData                datatypes.JSON `json:"extraData,omitempty"`
	CameraCode               string         `json:"cameraCode,omitempty"`
	EvidenceStatus           string         `json:"evidenceStatus,omitempty"`
	EvidenceURL              string         `gorm:"column:evidence_url" json:"evidenceUrl,omitempty"`
	OriginalViolationIndex   int            `json:"originalViolationIndex"`
	Extra                    datatypes.JSON `json:"extra,omitempty"`
	FilteredType             *string        `json:"filteredType,omitempty"`
	MarkingTime              *time.Time     `json:"markingTime,omitempty"`
	MarkingCount             *int           `json:"markingCount,omitempty"`
	DiscardID                *int64         `json:"discardId,omitempty"`
	CarInEvent               *int64         `json:"carInEvent,omitempty"`
	CreateTime               time.Time      `json:"createTime"`
	UpdateTime               time.Time      `json:"updateTime"`
	CreateBy                 *int64         `json:"createBy,omitempty"`
	UpdateBy                 *int64         `json:"updateBy,omitempty"`
	IsDel                    int            `gorm:"default:0" json:"-"`
}

func (Event) TableName() string { return "events" }

// Task is a reference entity keyed by code. Only tasks with status "running"
// participate in the pipeline; the cache layer enforces that at query time.
type Task struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"not null;uniqueIndex" json:"code"`
	Name        string         `json:"name,omitempty"`
	CameraCode  string         `json:"cameraCode,omitempty"`
	CameraName  string         `json:"cameraName,omitempty"`
	Snapshot    string         `json:"snapshot,omitempty"`
	BoxID       *int64         `json:"boxId,omitempty"`
	BoxSN       string         `gorm:"column:box_sn" json:"boxSn,omitempty"`
	Region      string         `json:"region,omitempty"`
	SceneID     *int64         `json:"sceneId,omitempty"`
	Status      string         `json:"status,omitempty"`
	ProjectID   *int64         `json:"projectId,omitempty"`
	ProjectName string         `json:"projectName,omitempty"`
	Extra       datatypes.JSON `json:"extra,omitempty"`
	CreateTime  time.Time      `json:"createTime"`
	UpdateTime  time.Time      `json:"updateTime"`
	IsDel       int            `gorm:"default:0" json:"-"`
}

func (Task) TableName() string { return "task" }

// Algorithm describes one detection algorithm, keyed by code (which matches
// the report eventType). ReviewSwitch is the per-algorithm review toggle the
// personnel check falls back to when the report carries no explicit flag.
type Algorithm struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	Code           string         `gorm:"not null;uniqueIndex" json:"code"`
	PCode          string         `gorm:"column:pcode" json:"pcode,omitempty"`
	EnName         string         `gorm:"column:enname" json:"enname,omitempty"`
	CnName         string         `gorm:"column:cnname" json:"cnname,omitempty"`
	Status         *int           `json:"status,omitempty"`
	DrawConfig     datatypes.JSON `json:"drawConfig,omitempty"`
	EditableConfig datatypes.JSON `json:"editableConfig,omitempty"`
	Label          string         `json:"label,omitempty"`
	DrawType       string         `json:"drawType,omitempty"`
	Description    string         `json:"description,omitempty"`
	ReviewSwitch   int            `json:"reviewSwitch"`
	IsLargeModel   *int           `json:"isLargeModel,omitempty"`
	LargeModelConf datatypes.JSON `json:"largeModelConf,omitempty"`
	CreateTime     time.Time      `json:"createTime"`
	UpdateTime     time.Time      `json:"updateTime"`
	IsDel          int            `gorm:"default:0" json:"-"`
}

func (Algorithm) TableName() string { return "algorithm" }

// BaseConfig is per-project base configuration. The pipeline only fetches it
// as a gate; absence is tolerated.
type BaseConfig struct {
	ID         int64          `gorm:"primaryKey" json:"id"`
	CompanyID  *int64         `json:"companyId,omitempty"`
	ProjectID  *int64         `json:"projectId,omitempty"`
	Code       string         `json:"code,omitempty"`
	Config     datatypes.JSON `json:"config,omitempty"`
	CreateTime time.Time      `json:"createTime"`
	UpdateTime time.Time      `json:"updateTime"`
	IsDel      int            `gorm:"default:0" json:"-"`
}

func (BaseConfig) TableName() string { return "base_config" }

// EventFilterConfig holds one JSON rule-config document per settingGroup
// ("plate" or "other") per project.
type EventFilterConfig struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	ProjectID    *int64         `json:"projectId,omitempty"`
	SettingGroup string         `json:"settingGroup,omitempty"`
	GroupName    string         `json:"groupName,omitempty"`
	Config       datatypes.JSON `json:"config,omitempty"`
	Sort         *int           `json:"sort,omitempty"`
	CreateTime   time.Time      `json:"createTime"`
	UpdateTime   time.Time      `json:"updateTime"`
	IsDel        int            `gorm:"default:0" json:"-"`
}

func (EventFilterConfig) TableName() string { return "event_filter_config" }
