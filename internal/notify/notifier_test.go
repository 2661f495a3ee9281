package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
)

type capture struct {
	mu     sync.Mutex
	paths  []string
	bodies [][]byte
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func TestPushFiltered(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler())
	defer srv.Close()

	n := New(srv.URL, srv.URL, 4, zerolog.Nop())
	n.PushFiltered(&event.Report{EngineEventID: "evt-1", TaskCode: "task-1"})
	n.Flush()

	if len(got.paths) != 1 {
		t.Fatalf("expected one request, got %d", len(got.paths))
	}
	want := "/v1/message/center/mq/produce/topic/PLATFORM_CUSTOMER_META_EVENTS_FILTERED"
	if got.paths[0] != want {
		t.Fatalf("path = %q, want %q", got.paths[0], want)
	}

	var rpt event.Report
	if err := json.Unmarshal(got.bodies[0], &rpt); err != nil {
		t.Fatal(err)
	}
	if rpt.EngineEventID != "evt-1" {
		t.Fatalf("unexpected payload: %+v", rpt)
	}
}

func TestPushReview(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler())
	defer srv.Close()

	n := New(srv.URL, srv.URL, 4, zerolog.Nop())
	n.PushReview(&event.ReviewPush{ID: 4242, EngineEventID: "evt-1", Marking: "init"})
	n.Flush()

	if len(got.paths) != 1 {
		t.Fatalf("expected one request, got %d", len(got.paths))
	}
	if got.paths[0] != "/v1/dq-service/event/add" {
		t.Fatalf("path = %q", got.paths[0])
	}

	var rec event.ReviewPush
	if err := json.Unmarshal(got.bodies[0], &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != 4242 || rec.Marking != "init" {
		t.Fatalf("unexpected payload: %+v", rec)
	}
}

func TestFlushWaitsForAllDispatches(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler())
	defer srv.Close()

	n := New(srv.URL, srv.URL, 2, zerolog.Nop())
	for i := 0; i < 10; i++ {
		n.PushFiltered(&event.Report{EngineEventID: "evt"})
	}
	n.Flush()

	got.mu.Lock()
	defer got.mu.Unlock()
	if len(got.paths) != 10 {
		t.Fatalf("expected 10 requests after Flush, got %d", len(got.paths))
	}
}

func TestUnreachableTargetTolerated(t *testing.T) {
	// A dead endpoint must not panic or block the caller.
	n := New("http://127.0.0.1:1", "http://127.0.0.1:1", 2, zerolog.Nop())
	n.PushFiltered(&event.Report{EngineEventID: "evt-1"})
	n.PushReview(&event.ReviewPush{ID: 1})
	n.Flush()
}
