package filter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/kvstore"
)

func newChain() (*Chain, *kvstore.MemoryStore) {
	store := kvstore.NewMemoryStore()
	return NewChain(store, zerolog.Nop()), store
}

func TestOnlyYellowPlate(t *testing.T) {
	rule := &OnlyYellowPlateRule{Enable: true, EventTypes: []string{"7001"}}

	cases := []struct {
		name       string
		rule       *OnlyYellowPlateRule
		eventType  string
		plateColor string
		veto       bool
	}{
		{"rule absent", nil, "7001", "blue", false},
		{"rule disabled", &OnlyYellowPlateRule{EventTypes: []string{"7001"}}, "7001", "blue", false},
		{"event type not scoped", rule, "7002", "blue", false},
		{"single yellow passes", rule, "7001", "s_yellow", false},
		{"double yellow passes", rule, "7001", "d_yellow", false},
		{"blue plate vetoed", rule, "7001", "blue", true},
		// This rule alone fails closed on missing input.
		{"missing plate color vetoed", rule, "7001", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rpt := &event.Report{EventType: tc.eventType, PlateColor: tc.plateColor}
			if got := !onlyYellowPlate(rpt, tc.rule); got != tc.veto {
				t.Fatalf("veto = %v, want %v", got, tc.veto)
			}
		})
	}
}

func TestPlateRuleDefaults(t *testing.T) {
	chain, _ := newChain()
	ctx := context.Background()

	// Every plate rule except only-yellow-plate defaults to "do not veto"
	// when config or input is missing.
	rpt := &event.Report{EventType: "7001", EngineEventID: "e1"}
	if reason, vetoed := chain.Evaluate(ctx, rpt, &PlateConfig{}, nil); vetoed {
		t.Fatalf("empty config must not veto, got %q", reason)
	}
}

func TestIgnoreNoPlate(t *testing.T) {
	rule := &EnabledTypesRule{Enable: true, EventTypes: []string{"7001"}}

	if !ignoreNoPlate(&event.Report{EventType: "7001"}, rule) {
		t.Fatal("missing plate number must veto")
	}
	if ignoreNoPlate(&event.Report{EventType: "7001", PlateNumber: "AB12345"}, rule) {
		t.Fatal("present plate number must pass")
	}
	if ignoreNoPlate(&event.Report{EventType: "7002"}, rule) {
		t.Fatal("unscoped event type must pass")
	}
}

func TestIgnoreBlurryPlate(t *testing.T) {
	rule := &BlurryPlateRule{Enable: true, BlurryLevel: 0.8, EventTypes: []string{"7001"}}

	withScore := func(score float64) *event.Report {
		extra, _ := json.Marshal(map[string]any{"plateNumberScore": score})
		return &event.Report{EventType: "7001", ExtraData: extra}
	}

	if !ignoreBlurryPlate(withScore(0.5), rule) {
		t.Fatal("score below threshold must veto")
	}
	if ignoreBlurryPlate(withScore(0.8), rule) {
		t.Fatal("score at threshold must pass")
	}
	if ignoreBlurryPlate(&event.Report{EventType: "7001"}, rule) {
		t.Fatal("missing score must pass")
	}
	zero := &BlurryPlateRule{Enable: true, BlurryLevel: 0, EventTypes: []string{"7001"}}
	if ignoreBlurryPlate(withScore(0.1), zero) {
		t.Fatal("zero threshold disables the rule")
	}
}

func TestOnlyPlateTypes(t *testing.T) {
	rule := &PlateTypesRule{Enable: true, PlateColor: []string{"blue", "green"}, EventTypes: []string{"7001"}}

	if !onlyPlateTypes(&event.Report{EventType: "7001", PlateColor: "red"}, rule) {
		t.Fatal("color outside allow-list must veto")
	}
	if onlyPlateTypes(&event.Report{EventType: "7001", PlateColor: "blue"}, rule) {
		t.Fatal("allowed color must pass")
	}
	if onlyPlateTypes(&event.Report{EventType: "7001"}, rule) {
		t.Fatal("missing color must pass")
	}
}

func TestNonMotorPlateTypes(t *testing.T) {
	rules := []NonMotorPlateTypesRule{
		{PlateColor: []string{"bicycle"}, EventTypes: []string{"7001"}},
		{PlateColor: []string{"tricycle"}, EventTypes: []string{"7002"}},
	}

	withLabel := func(eventType, label string) *event.Report {
		extra, _ := json.Marshal(map[string]any{
			"summary": map[string]any{"plate/type": map[string]any{"label": label}},
		})
		return &event.Report{EventType: eventType, ExtraData: extra}
	}

	if !nonMotorPlateTypes(withLabel("7001", "car"), rules) {
		t.Fatal("label outside allow-list must veto")
	}
	if nonMotorPlateTypes(withLabel("7001", "bicycle"), rules) {
		t.Fatal("allowed label must pass")
	}
	// Each entry has an independent scope.
	if nonMotorPlateTypes(withLabel("7002", "tricycle"), rules) {
		t.Fatal("second entry allows tricycle for 7002")
	}
	if !nonMotorPlateTypes(withLabel("7002", "bicycle"), rules) {
		t.Fatal("second entry rejects bicycle for 7002")
	}
	if nonMotorPlateTypes(withLabel("7003", "car"), rules) {
		t.Fatal("unscoped event type must pass")
	}
	// Missing label compares as the sentinel value.
	extra, _ := json.Marshal(map[string]any{})
	rpt := &event.Report{EventType: "7001", ExtraData: extra}
	if !nonMotorPlateTypes(rpt, rules) {
		t.Fatal("missing label must veto when the sentinel is not allowed")
	}
}

func TestSpecialText(t *testing.T) {
	rule := &SpecialTextRule{SpecialTexts: []string{"测", "XX"}, EventTypes: []string{"7001"}}

	if !specialText(&event.Report{EventType: "7001", PlateNumber: "京A测1234"}, rule) {
		t.Fatal("forbidden substring must veto")
	}
	if specialText(&event.Report{EventType: "7001", PlateNumber: "京A12345"}, rule) {
		t.Fatal("clean plate must pass")
	}
	if specialText(&event.Report{EventType: "7002", PlateNumber: "XX12345"}, rule) {
		t.Fatal("unscoped event type must pass")
	}
}

func TestShortPlate(t *testing.T) {
	rule := &EnabledTypesRule{Enable: true, EventTypes: []string{"7001"}}

	if !shortPlate(&event.Report{EventType: "7001", PlateNumber: "AB123"}, rule) {
		t.Fatal("short plate must veto")
	}
	if shortPlate(&event.Report{EventType: "7001", PlateNumber: "AB12345"}, rule) {
		t.Fatal("7-character plate must pass")
	}
	if shortPlate(&event.Report{EventType: "7001"}, rule) {
		t.Fatal("missing plate must pass")
	}
}

func TestSamePlateDedup(t *testing.T) {
	chain, store := newChain()
	ctx := context.Background()
	rule := &SamePlateRule{Enable: true, CoolingSeconds: 300, EventTypes: []string{"7001"}}

	rpt := &event.Report{TaskCode: "task-1", EventType: "7001", PlateNumber: "AB12345"}

	if chain.samePlate(ctx, rpt, rule) {
		t.Fatal("first sighting must pass")
	}
	if value, err := store.Get(ctx, "PLATE_KEY:task-1:7001:AB12345"); err != nil || value != "AB12345" {
		t.Fatalf("expected seeded marker, got %q err %v", value, err)
	}
	if !chain.samePlate(ctx, rpt, rule) {
		t.Fatal("repeat sighting within cooldown must veto")
	}

	other := &event.Report{TaskCode: "task-1", EventType: "7001", PlateNumber: "CD67890"}
	if chain.samePlate(ctx, other, rule) {
		t.Fatal("different plate must pass")
	}
}

func TestPlateStageOrder(t *testing.T) {
	chain, _ := newChain()
	ctx := context.Background()

	// Both the no-plate rule and the short-plate rule would fire; the
	// earlier rule's reason must be reported.
	cfg := &PlateConfig{
		IgnoreNoPlateEvents: &EnabledTypesRule{Enable: true, EventTypes: []string{"7001"}},
		ShortPlateFilter:    &EnabledTypesRule{Enable: true, EventTypes: []string{"7001"}},
	}
	rpt := &event.Report{EventType: "7001", EngineEventID: "e1"}

	reason, vetoed := chain.Evaluate(ctx, rpt, cfg, nil)
	if !vetoed || reason != event.ReasonNoPlate {
		t.Fatalf("got (%q, %v), want (%q, true)", reason, vetoed, event.ReasonNoPlate)
	}
}
