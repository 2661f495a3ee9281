// Package notify issues the two downstream notifications: the message-relay
// topic for filtered events and the review-queue service for events needing
// human adjudication. Both are fire-and-forget; failures are logged and
// never retried or surfaced to the box.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
)

const filteredTopic = "PLATFORM_CUSTOMER_META_EVENTS_FILTERED"

type Notifier struct {
	client           *http.Client
	messageCenterURL string
	dqServiceURL     string
	log              zerolog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// New builds a Notifier. maxInFlight bounds concurrent outbound requests;
// values below 1 fall back to 8.
func New(messageCenterURL, dqServiceURL string, maxInFlight int, log zerolog.Logger) *Notifier {
	if maxInFlight < 1 {
		maxInFlight = 8
	}
	return &Notifier{
		client:           &http.Client{Timeout: 10 * time.Second},
		messageCenterURL: messageCenterURL,
		dqServiceURL:     dqServiceURL,
		log:              log,
		sem:              make(chan struct{}, maxInFlight),
	}
}

// PushFiltered forwards a filtered or unknown report to the message relay.
func (n *Notifier) PushFiltered(rpt *event.Report) {
	url := fmt.Sprintf("%s/v1/message/center/mq/produce/topic/%s", n.messageCenterURL, filteredTopic)
	n.dispatch(url, rpt, n.log.With().
		Str("target", "message-relay").
		Str("engine_event_id", rpt.EngineEventID).
		Logger())
}

// PushReview sends the review projection to the review-queue service.
func (n *Notifier) PushReview(rec *event.ReviewPush) {
	url := fmt.Sprintf("%s/v1/dq-service/event/add", n.dqServiceURL)
	n.dispatch(url, rec, n.log.With().
		Str("target", "review-queue").
		Int64("event_id", rec.ID).
		Logger())
}

// dispatch POSTs the payload on a detached goroutine, bounded by the
// in-flight semaphore. The caller has already committed the persisted
// record; nothing here can roll it back.
func (n *Notifier) dispatch(url string, payload any, log zerolog.Logger) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to serialize notification payload")
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.sem <- struct{}{}
		defer func() { <-n.sem }()

		resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("notification request failed")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Info().Str("url", url).Msg("notification delivered")
		} else {
			log.Error().Str("url", url).Int("status", resp.StatusCode).Msg("notification rejected")
		}
	}()
}

// Flush waits for all in-flight notifications. Used on shutdown and in
// tests.
func (n *Notifier) Flush() {
	n.wg.Wait()
}
