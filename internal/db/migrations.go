package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id                          BIGINT PRIMARY KEY,
		task_code                   TEXT NOT NULL,
		task_name                   TEXT,
		scene_id                    BIGINT,
		source                      TEXT NOT NULL,
		project_id                  BIGINT,
		project_name                TEXT,
		company_id                  BIGINT,
		company_name                TEXT,
		event_type                  TEXT,
		event_type_name             TEXT,
		event_time                  TIMESTAMPTZ,
		end_time                    TIMESTAMPTZ,
		marking                     TEXT,
		engine_event_id             TEXT NOT NULL,
		vehicle_type                TEXT,
		plate_number                TEXT,
		plate_color                 TEXT,
		special_car_type            TEXT,
		engine_version              TEXT,
		snapshot                    JSONB,
		snapshot_uri_compress       TEXT,
		snapshot_uri_raw_compress   TEXT,
		snapshot_uri_cover_compress TEXT,
		extra_data                  JSONB,
		camera_code                 TEXT,
		evidence_status             TEXT,
		evidence_url                TEXT,
		original_violation_index    INT,
		extra                       JSONB,
		filtered_type               TEXT,
		marking_time                TIMESTAMPTZ,
		marking_count               INT,
		discard_id                  BIGINT,
		car_in_event                BIGINT,
		create_time                 TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_time                 TIMESTAMPTZ NOT NULL DEFAULT now(),
		create_by                   BIGINT,
		update_by                   BIGINT,
		is_del                      INT NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_engine_event_id ON events(engine_event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_events_event_time ON events(event_time);`,
	`CREATE INDEX IF NOT EXISTS idx_events_plate_number ON events(plate_number);`,
	`CREATE TABLE IF NOT EXISTS task (
		id           BIGSERIAL PRIMARY KEY,
		code         TEXT NOT NULL,
		name         TEXT,
		camera_code  TEXT,
		camera_name  TEXT,
		snapshot     TEXT,
		box_id       BIGINT,
		box_sn       TEXT,
		region       TEXT,
		scene_id     BIGINT,
		status       TEXT,
		project_id   BIGINT,
		project_name TEXT,
		extra        JSONB,
		create_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_del       INT NOT NULL DEFAULT 0
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_task_code ON task(code);`,
	`CREATE INDEX IF NOT EXISTS idx_task_status ON task(status);`,
	`CREATE TABLE IF NOT EXISTS algorithm (
		id               BIGSERIAL PRIMARY KEY,
		code             TEXT NOT NULL,
		pcode            TEXT,
		enname           TEXT,
		cnname           TEXT,
		status           INT,
		draw_config      JSONB,
		editable_config  JSONB,
		label            TEXT,
		draw_type        TEXT,
		description      TEXT,
		review_switch    INT NOT NULL DEFAULT 0,
		is_large_model   INT,
		large_model_conf JSONB,
		create_time      TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_time      TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_del           INT NOT NULL DEFAULT 0
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_algorithm_code ON algorithm(code);`,
	`CREATE TABLE IF NOT EXISTS base_config (
		id          BIGSERIAL PRIMARY KEY,
		company_id  BIGINT,
		project_id  BIGINT,
		code        TEXT,
		config      JSONB,
		create_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_del      INT NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_base_config_project_id ON base_config(project_id);`,
	`CREATE TABLE IF NOT EXISTS event_filter_config (
		id            BIGSERIAL PRIMARY KEY,
		project_id    BIGINT,
		setting_group TEXT,
		group_name    TEXT,
		config        JSONB,
		sort          INT,
		create_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_del        INT NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_event_filter_config_project_id ON event_filter_config(project_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
