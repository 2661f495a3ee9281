package repository

import (
	"context"

	"gorm.io/gorm"
)

// ReferenceRepository reads the four reference datasets the cache layer
// snapshots. These queries only run on a cold cache.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) ListRunningTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_del = 0", "running").
		Find(&tasks).Error
	return tasks, err
}

func (r *ReferenceRepository) ListAlgorithms(ctx context.Context) ([]Algorithm, error) {
	var algorithms []Algorithm
	err := r.db.WithContext(ctx).Where("is_del = 0").Find(&algorithms).Error
	return algorithms, err
}

func (r *ReferenceRepository) ListBaseConfigs(ctx context.Context) ([]BaseConfig, error) {
	var configs []BaseConfig
	err := r.db.WithContext(ctx).Where("is_del = 0").Find(&configs).Error
	return configs, err
}

func (r *ReferenceRepository) ListEventFilterConfigs(ctx context.Context) ([]EventFilterConfig, error) {
	var configs []EventFilterConfig
	err := r.db.WithContext(ctx).Where("is_del = 0").Find(&configs).Error
	return configs, err
}
