// Package refcache is the read-through cache over the four reference
// datasets. Snapshots live in the coordination store as JSON arrays with a
// 180-second TTL; refill is single-flight per kind per process.
package refcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"event-ingest-service/internal/filter"
	"event-ingest-service/internal/kvstore"
	"event-ingest-service/internal/repository"
)

const (
	cacheTTL = 180 * time.Second

	keyRunningTasks       = "all_running_tasks"
	keyAlgorithms         = "all_algorithms"
	keyBaseConfigs        = "all_base_configs"
	keyEventFilterConfigs = "all_event_filter_configs"
)

// Queries is the backing-store surface the cache refills from. Satisfied by
// repository.ReferenceRepository.
type Queries interface {
	ListRunningTasks(ctx context.Context) ([]repository.Task, error)
	ListAlgorithms(ctx context.Context) ([]repository.Algorithm, error)
	ListBaseConfigs(ctx context.Context) ([]repository.BaseConfig, error)
	ListEventFilterConfigs(ctx context.Context) ([]repository.EventFilterConfig, error)
}

// Service owns one refill mutex per reference kind. Derived lookups are pure
// in-memory filters over the cached set, never separate queries.
type Service struct {
	queries Queries
	kv      kvstore.Store
	log     zerolog.Logger

	taskMu      sync.Mutex
	algorithmMu sync.Mutex
	baseMu      sync.Mutex
	filterMu    sync.Mutex
}

func NewService(queries Queries, kv kvstore.Store, log zerolog.Logger) *Service {
	return &Service{queries: queries, kv: kv, log: log}
}

// RunningTasks returns all tasks with status "running".
func (s *Service) RunningTasks(ctx context.Context) ([]repository.Task, error) {
	return loadCached(ctx, s, &s.taskMu, keyRunningTasks, s.queries.ListRunningTasks)
}

// Algorithms returns all algorithm definitions.
func (s *Service) Algorithms(ctx context.Context) ([]repository.Algorithm, error) {
	return loadCached(ctx, s, &s.algorithmMu, keyAlgorithms, s.queries.ListAlgorithms)
}

// BaseConfigs returns all base configs.
func (s *Service) BaseConfigs(ctx context.Context) ([]repository.BaseConfig, error) {
	return loadCached(ctx, s, &s.baseMu, keyBaseConfigs, s.queries.ListBaseConfigs)
}

// EventFilterConfigs returns all event-filter configs.
func (s *Service) EventFilterConfigs(ctx context.Context) ([]repository.EventFilterConfig, error) {
	return loadCached(ctx, s, &s.filterMu, keyEventFilterConfigs, s.queries.ListEventFilterConfigs)
}

// FindTaskByCode returns the running task with the given code, or nil.
func (s *Service) FindTaskByCode(ctx context.Context, code string) (*repository.Task, error) {
	tasks, err := s.RunningTasks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Code == code {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

// FindAlgorithmByCode returns the algorithm whose code matches, or nil.
func (s *Service) FindAlgorithmByCode(ctx context.Context, code string) (*repository.Algorithm, error) {
	algorithms, err := s.Algorithms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range algorithms {
		if algorithms[i].Code == code {
			return &algorithms[i], nil
		}
	}
	return nil, nil
}

// BaseConfigsByProject filters the cached base configs by project.
func (s *Service) BaseConfigsByProject(ctx context.Context, projectID int64) ([]repository.BaseConfig, error) {
	configs, err := s.BaseConfigs(ctx)
	if err != nil {
		return nil, err
	}
	var out []repository.BaseConfig
	for _, c := range configs {
		if c.ProjectID != nil && *c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

// FilterChainConfigs returns the typed plate and other rule configs for a
// project. A malformed group document is logged and treated as absent, so a
// bad config row can never veto or error an event on its own.
func (s *Service) FilterChainConfigs(ctx context.Context, projectID int64) (*filter.PlateConfig, *filter.OtherConfig, error) {
	configs, err := s.EventFilterConfigs(ctx)
	if err != nil {
		return nil, nil, err
	}

	var plate *filter.PlateConfig
	var other *filter.OtherConfig
	for _, c := range configs {
		if c.ProjectID != nil && *c.ProjectID != projectID {
			continue
		}
		switch c.SettingGroup {
		case filter.GroupPlate:
			if plate == nil {
				plate, err = filter.ParsePlateConfig(c.Config)
				if err != nil {
					s.log.Warn().Err(err).Int64("config_id", c.ID).Msg("malformed plate filter config, skipping")
					plate = nil
				}
			}
		case filter.GroupOther:
			if other == nil {
				other, err = filter.ParseOtherConfig(c.Config)
				if err != nil {
					s.log.Warn().Err(err).Int64("config_id", c.ID).Msg("malformed other filter config, skipping")
					other = nil
				}
			}
		}
	}
	return plate, other, nil
}

// loadCached is the read-through path: cached snapshot, else single-flight
// refill under the per-kind mutex with a re-check inside the lock. A refill
// query failure is a hard error; a cache write failure is not, the freshly
// queried data still serves the call.
func loadCached[T any](ctx context.Context, s *Service, mu *sync.Mutex, key string, query func(context.Context) ([]T, error)) ([]T, error) {
	if items, ok := readCached[T](ctx, s.kv, key); ok {
		return items, nil
	}

	mu.Lock()
	defer mu.Unlock()

	if items, ok := readCached[T](ctx, s.kv, key); ok {
		return items, nil
	}

	items, err := query(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		if err := s.kv.SetEX(ctx, key, string(data), cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to write reference cache")
		}
	}
	return items, nil
}

func readCached[T any](ctx context.Context, kv kvstore.Store, key string) ([]T, bool) {
	value, err := kv.Get(ctx, key)
	if err != nil || value == "" {
		return nil, false
	}
	var items []T
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, false
	}
	return items, true
}
