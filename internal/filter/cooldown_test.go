package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/kvstore"
)

func coolingReport(taskCode, eventType string, eventTime time.Time, coolingSecond int64) *event.Report {
	extra := fmt.Sprintf(`{"originalConfig":{"algList":[{"eventType":%q,"algParam":{"coolingSecond":%d}}]}}`, eventType, coolingSecond)
	return &event.Report{
		TaskCode:      taskCode,
		EventType:     eventType,
		EngineEventID: "evt-1",
		EventTime:     eventTime.UnixMilli(),
		ExtraData:     json.RawMessage(extra),
	}
}

func newCoolingFixture(t *testing.T, enabled bool, eventTypes ...string) (*CoolingFilter, *kvstore.MemoryStore, *time.Time) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := &now
	store.SetClock(func() time.Time { return *clock })

	f := NewCoolingFilter(CoolingConfig{Enabled: enabled, EventTypes: eventTypes}, store, zerolog.Nop())
	f.now = func() time.Time { return *clock }
	return f, store, clock
}

func TestCoolingFilterInactive(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		f    func(t *testing.T) *CoolingFilter
		rpt  *event.Report
	}{
		{
			name: "global switch off",
			f: func(t *testing.T) *CoolingFilter {
				f, _, _ := newCoolingFixture(t, false, "7021")
				return f
			},
			rpt: coolingReport("task-1", "7021", t0, 60),
		},
		{
			name: "event type not listed",
			f: func(t *testing.T) *CoolingFilter {
				f, _, _ := newCoolingFixture(t, true, "7022")
				return f
			},
			rpt: coolingReport("task-1", "7021", t0, 60),
		},
		{
			name: "no cooling second in echoed config",
			f: func(t *testing.T) *CoolingFilter {
				f, _, _ := newCoolingFixture(t, true, "7021")
				return f
			},
			rpt: &event.Report{TaskCode: "task-1", EventType: "7021", EventTime: t0.UnixMilli()},
		},
		{
			name: "zero cooling second",
			f: func(t *testing.T) *CoolingFilter {
				f, _, _ := newCoolingFixture(t, true, "7021")
				return f
			},
			rpt: coolingReport("task-1", "7021", t0, 0),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.f(t).Suppress(ctx, tc.rpt) {
				t.Fatal("expected event to pass")
			}
		})
	}
}

func TestCoolingFilterWindow(t *testing.T) {
	ctx := context.Background()
	f, store, clock := newCoolingFixture(t, true, "7021")
	t0 := *clock

	// First event always passes and seeds the marker.
	if f.Suppress(ctx, coolingReport("task-1", "7021", t0, 60)) {
		t.Fatal("first event must pass")
	}
	key := "FILTER_EVENT_TYPE:_task-1_7021"
	marker, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("expected marker recorded: %v", err)
	}
	want := fmt.Sprintf("60@%d", t0.UnixMilli())
	if marker != want {
		t.Fatalf("marker = %q, want %q", marker, want)
	}

	// 59s later: inside the window, suppressed.
	*clock = t0.Add(59 * time.Second)
	if !f.Suppress(ctx, coolingReport("task-1", "7021", t0.Add(59*time.Second), 60)) {
		t.Fatal("event at t0+59s must be suppressed")
	}

	// 61s later the marker TTL has lapsed: passes and re-seeds.
	*clock = t0.Add(61 * time.Second)
	if f.Suppress(ctx, coolingReport("task-1", "7021", t0.Add(61*time.Second), 60)) {
		t.Fatal("event at t0+61s must pass")
	}
	marker, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("expected fresh marker: %v", err)
	}
	want = fmt.Sprintf("60@%d", t0.Add(61*time.Second).UnixMilli())
	if marker != want {
		t.Fatalf("fresh marker = %q, want %q", marker, want)
	}
}

// An unexpired marker with the same duration suppresses even when the event
// time is outside the cooldown window. Deliberately pinned: the marker
// normally expires with the window, but a longer-lived marker (clock skew,
// manual writes) keeps suppressing as long as the durations match.
func TestCoolingFilterSameDurationOutsideWindow(t *testing.T) {
	ctx := context.Background()
	f, store, clock := newCoolingFixture(t, true, "7021")
	t0 := *clock

	if err := store.SetEX(ctx, "FILTER_EVENT_TYPE:_task-1_7021",
		fmt.Sprintf("60@%d", t0.UnixMilli()), time.Hour); err != nil {
		t.Fatal(err)
	}

	*clock = t0.Add(30 * time.Minute)
	if !f.Suppress(ctx, coolingReport("task-1", "7021", t0.Add(30*time.Minute), 60)) {
		t.Fatal("same stored duration must suppress even outside the window")
	}
}

func TestCoolingFilterDifferentDuration(t *testing.T) {
	ctx := context.Background()
	f, store, clock := newCoolingFixture(t, true, "7021")
	t0 := *clock

	if err := store.SetEX(ctx, "FILTER_EVENT_TYPE:_task-1_7021",
		fmt.Sprintf("60@%d", t0.UnixMilli()), time.Hour); err != nil {
		t.Fatal(err)
	}

	// Different duration, inside the stored window: suppressed.
	*clock = t0.Add(30 * time.Second)
	if !f.Suppress(ctx, coolingReport("task-1", "7021", t0.Add(30*time.Second), 90)) {
		t.Fatal("event inside stored window must be suppressed")
	}

	// Different duration, outside the stored window: passes, marker renewed.
	*clock = t0.Add(2 * time.Minute)
	if f.Suppress(ctx, coolingReport("task-1", "7021", t0.Add(2*time.Minute), 90)) {
		t.Fatal("event outside stored window must pass")
	}
	marker, _ := store.Get(ctx, "FILTER_EVENT_TYPE:_task-1_7021")
	want := fmt.Sprintf("90@%d", t0.Add(2*time.Minute).UnixMilli())
	if marker != want {
		t.Fatalf("marker = %q, want %q", marker, want)
	}
}

func TestCoolingFilterMalformedMarker(t *testing.T) {
	ctx := context.Background()
	f, store, clock := newCoolingFixture(t, true, "7021")
	t0 := *clock

	if err := store.SetEX(ctx, "FILTER_EVENT_TYPE:_task-1_7021", "garbage", time.Hour); err != nil {
		t.Fatal(err)
	}

	if f.Suppress(ctx, coolingReport("task-1", "7021", t0, 60)) {
		t.Fatal("malformed marker must read as absent")
	}
	marker, _ := store.Get(ctx, "FILTER_EVENT_TYPE:_task-1_7021")
	want := fmt.Sprintf("60@%d", t0.UnixMilli())
	if marker != want {
		t.Fatalf("marker = %q, want %q", marker, want)
	}
}

func TestParseCoolingEventTypes(t *testing.T) {
	got := ParseCoolingEventTypes(" 7021, 7022 ,,7023")
	want := []string{"7021", "7022", "7023"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
