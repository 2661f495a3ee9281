// Package filter implements the stateful event checks: the replay guard, the
// cooling-down filter and the two-stage rule chain with its coordination-store
// backed dedup markers.
package filter

import "encoding/json"

// Setting groups under which rule configs are stored.
const (
	GroupPlate = "plate"
	GroupOther = "other"
)

// PlateConfig is the typed form of the "plate" settingGroup document. Every
// sub-structure is optional; an absent rule does not veto, with the single
// exception of OnlyYellowPlate which rejects when its required inputs are
// missing while the rule is active.
type PlateConfig struct {
	OnlyYellowPlate          *OnlyYellowPlateRule     `json:"onlyYellowPlate,omitempty"`
	IgnoreNoPlateEvents      *EnabledTypesRule        `json:"ignoreNoPlateEvents,omitempty"`
	IgnoreBlurryPlateEvents  *BlurryPlateRule         `json:"ignoreBlurryPlateEvents,omitempty"`
	OnlyPlateTypes           *PlateTypesRule          `json:"onlyPlateTypes,omitempty"`
	NonMotorPlateTypesFilter []NonMotorPlateTypesRule `json:"nonMotorPlateTypesFilter,omitempty"`
	PlateSpecialTextFilter   *SpecialTextRule         `json:"plateSpecialTextFilter,omitempty"`
	ShortPlateFilter         *EnabledTypesRule        `json:"shortPlateFilter,omitempty"`
	IgnoreSamePlateEvents    *SamePlateRule           `json:"ignoreSamePlateEvents,omitempty"`
}

// OtherConfig is the typed form of the "other" settingGroup document.
type OtherConfig struct {
	IgnoreSamePosEvents *SamePositionRule `json:"ignoreSamePosEvents,omitempty"`
	IgnoreAllEvents     *EnabledTypesRule `json:"ignoreAllEvents,omitempty"`
	IgnorePartEvents    *PartEventsRule   `json:"ignorePartEvents,omitempty"`
}

type OnlyYellowPlateRule struct {
	Enable     bool     `json:"enable"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

type EnabledTypesRule struct {
	Enable     bool     `json:"enable"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

type BlurryPlateRule struct {
	Enable      bool     `json:"enable"`
	BlurryLevel float64  `json:"blurryLevel"`
	EventTypes  []string `json:"eventTypes,omitempty"`
}

type PlateTypesRule struct {
	Enable     bool     `json:"enable"`
	PlateColor []string `json:"plateColor,omitempty"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

// NonMotorPlateTypesRule is one allow-list entry; the rule supports several
// independent entries, each with its own event-type scope.
type NonMotorPlateTypesRule struct {
	PlateColor []string `json:"plateColor,omitempty"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

type SpecialTextRule struct {
	SpecialTexts []string `json:"specialTexts,omitempty"`
	EventTypes   []string `json:"eventTypes,omitempty"`
}

type SamePlateRule struct {
	Enable         bool     `json:"enable"`
	CoolingSeconds int64    `json:"coolingSeconds"`
	EventTypes     []string `json:"eventTypes,omitempty"`
}

// SamePositionRule is inert without a positive posOverlapPercent; a missing
// threshold disables the rule rather than vetoing on any overlap.
type SamePositionRule struct {
	Enable            bool     `json:"enable"`
	CoolingSeconds    int64    `json:"coolingSeconds"`
	PosOverlapPercent float64  `json:"posOverlapPercent"`
	EventTypes        []string `json:"eventTypes,omitempty"`
}

type PartEventsRule struct {
	Enable      bool     `json:"enable"`
	EventResult string   `json:"eventResult"`
	EventTypes  []string `json:"eventTypes,omitempty"`
}

// ParsePlateConfig decodes a raw plate-group document.
func ParsePlateConfig(raw []byte) (*PlateConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var cfg PlateConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseOtherConfig decodes a raw other-group document.
func ParseOtherConfig(raw []byte) (*OtherConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var cfg OtherConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
