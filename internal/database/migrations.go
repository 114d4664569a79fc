package database

import (
	"database/sql"
	"fmt"
)

// MigrationV1ToV2 migrates the database from schema version 1 to version 2
// This adds temporal decay columns, entities tables, and memory tiers
func MigrationV1ToV2(db *sql.DB) error {
	log.Info("running migration v1 to v2")

	// Start transaction
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Add new columns to memories table
	alterStatements := []string{
		"ALTER TABLE memories ADD COLUMN last_accessed DATETIME DEFAULT CURRENT_TIMESTAMP;",
		"ALTER TABLE memories ADD COLUMN access_count INTEGER DEFAULT 1;",
		"ALTER TABLE memories ADD COLUMN strength REAL DEFAULT 1.0;",
		"ALTER TABLE memories ADD COLUMN decay_score REAL DEFAULT 1.0;",
		"ALTER TABLE memories ADD COLUMN tier_id INTEGER DEFAULT 1;",
	}

	for _, stmt := range alterStatements {
		if _, err := tx.Exec(stmt); err != nil {
			// Column may already exist, log and continue
			log.Debug("alter statement skipped (may already exist)", "stmt", stmt, "error", err)
		}
	}

	// 2. Create new indexes for decay columns
	indexStatements := []string{
		"CREATE INDEX IF NOT EXISTS idx_memories_decay_score ON memories(decay_score);",
		"CREATE INDEX IF NOT EXISTS idx_memories_tier_id ON memories(tier_id);",
		"CREATE INDEX IF NOT EXISTS idx_memories_last_accessed ON memories(last_accessed);",
	}

	for _, stmt := range indexStatements {
		if _, err := tx.Exec(stmt); err != nil {
			log.Warn("failed to create index", "stmt", stmt, "error", err)
		}
	}

	// 3. Create entities table
	entitiesSQL := `
		CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			canonical_name TEXT NOT NULL UNIQUE,
			entity_type TEXT NOT NULL CHECK (
				entity_type IN ('person', 'place', 'organization', 'concept', 'event', 'thing', 'other')
			),
			embedding BLOB,
			mention_count INTEGER DEFAULT 1,
			first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
		CREATE INDEX IF NOT EXISTS idx_entities_mention_count ON entities(mention_count);
		CREATE INDEX IF NOT EXISTS idx_entities_canonical ON entities(canonical_name);
	`
	if _, err := tx.Exec(entitiesSQL); err != nil {
		log.Warn("failed to create entities table", "error", err)
	}

	// 4. Create memory_entities junction table
	memoryEntitiesSQL := `
		CREATE TABLE IF NOT EXISTS memory_entities (
			memory_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			mention_text TEXT,
			confidence REAL DEFAULT 1.0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (memory_id, entity_id),
			FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE,
			FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_memory_entities_memory ON memory_entities(memory_id);
		CREATE INDEX IF NOT EXISTS idx_memory_entities_entity ON memory_entities(entity_id);
	`
	if _, err := tx.Exec(memoryEntitiesSQL); err != nil {
		log.Warn("failed to create memory_entities table", "error", err)
	}

	// 5. Create memory_tiers table
	tiersSQL := `
		CREATE TABLE IF NOT EXISTS memory_tiers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			min_decay_score REAL DEFAULT 0.0,
			max_decay_score REAL DEFAULT 1.0,
			retention_days INTEGER
		);
		INSERT OR IGNORE INTO memory_tiers (id, name, description, min_decay_score, max_decay_score, retention_days) VALUES
			(1, 'hot', 'Frequently accessed, high relevance', 0.7, 1.0, NULL),
			(2, 'warm', 'Moderate access, good relevance', 0.3, 0.7, NULL),
			(3, 'cold', 'Infrequent access, lower relevance', 0.05, 0.3, 90),
			(4, 'archived', 'Very low relevance, candidate for deletion', 0.0, 0.05, 30);
	`
	if _, err := tx.Exec(tiersSQL); err != nil {
		log.Warn("failed to create memory_tiers table", "error", err)
	}

	// 6. Initialize last_accessed from created_at for existing memories
	if _, err := tx.Exec(`
		UPDATE memories
		SET last_accessed = created_at
		WHERE last_accessed IS NULL
	`); err != nil {
		log.Warn("failed to initialize last_accessed", "error", err)
	}

	// 7. Update schema version
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO schema_version (version, applied_at)
		VALUES (2, CURRENT_TIMESTAMP)
	`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info("migration v1 to v2 completed successfully")
	return nil
}

// MigrationV2ToV3 migrates the database from schema version 2 to version 3.
// This adds the cognitive-memory-engine core: FSRS + importance-tier
// columns on memories, the natural key (spec_folder, file_path, anchor_id),
// the corrections ledger, the conflict log, and the session layer's
// crash-recoverable checkpoint and per-session dedup tables. It also adds
// the cc_sessions/cc_messages/cc_tool_calls chat-ingestion tables and the
// data_sources/data_source_sync_history external-ingestion registry that
// the rest of the store already assumes exist.
func MigrationV2ToV3(db *sql.DB) error {
	log.Info("running migration v2 to v3")

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	alterStatements := []string{
		"ALTER TABLE memories ADD COLUMN spec_folder TEXT;",
		"ALTER TABLE memories ADD COLUMN file_path TEXT;",
		"ALTER TABLE memories ADD COLUMN anchor_id TEXT;",
		"ALTER TABLE memories ADD COLUMN title TEXT;",
		"ALTER TABLE memories ADD COLUMN trigger_phrases TEXT DEFAULT '[]';",
		"ALTER TABLE memories ADD COLUMN summary TEXT;",
		"ALTER TABLE memories ADD COLUMN content_hash TEXT;",
		"ALTER TABLE memories ADD COLUMN importance_tier TEXT DEFAULT 'normal';",
		"ALTER TABLE memories ADD COLUMN importance_weight REAL DEFAULT 0.5;",
		"ALTER TABLE memories ADD COLUMN stability REAL DEFAULT 1.0;",
		"ALTER TABLE memories ADD COLUMN difficulty REAL DEFAULT 5.0;",
		"ALTER TABLE memories ADD COLUMN last_review DATETIME;",
		"ALTER TABLE memories ADD COLUMN review_count INTEGER DEFAULT 0;",
		"ALTER TABLE memories ADD COLUMN access_count_fsrs INTEGER DEFAULT 0;",
		"ALTER TABLE memories ADD COLUMN last_accessed_fsrs DATETIME;",
		"ALTER TABLE memories ADD COLUMN last_cited DATETIME;",
		"ALTER TABLE memories ADD COLUMN embedding_status TEXT DEFAULT 'pending';",
		"ALTER TABLE memories ADD COLUMN source_id TEXT;",
		"ALTER TABLE memories ADD COLUMN external_id TEXT;",
		"ALTER TABLE memories ADD COLUMN cc_session_id TEXT;",
	}
	for _, stmt := range alterStatements {
		if _, err := tx.Exec(stmt); err != nil {
			log.Debug("alter statement skipped (may already exist)", "stmt", stmt, "error", err)
		}
	}

	indexStatements := []string{
		"CREATE INDEX IF NOT EXISTS idx_memories_stability ON memories(stability);",
		"CREATE INDEX IF NOT EXISTS idx_memories_last_review ON memories(last_review);",
		"CREATE INDEX IF NOT EXISTS idx_memories_last_review_stability ON memories(last_review, stability);",
		"CREATE INDEX IF NOT EXISTS idx_memories_source_id ON memories(source_id);",
		"CREATE INDEX IF NOT EXISTS idx_memories_cc_session_id ON memories(cc_session_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_natural_key ON memories(spec_folder, file_path, anchor_id) WHERE spec_folder IS NOT NULL AND file_path IS NOT NULL AND anchor_id IS NOT NULL;",
	}
	for _, stmt := range indexStatements {
		if _, err := tx.Exec(stmt); err != nil {
			log.Warn("failed to create index", "stmt", stmt, "error", err)
		}
	}

	coreV3SQL := `
-- =============================================================================
-- CORRECTIONS LEDGER (C11)
-- Reversible record of supersede/deprecate/refine/merge with a before/after
-- stability snapshot sufficient to undo the correction.
-- =============================================================================
CREATE TABLE IF NOT EXISTS corrections (
	id TEXT PRIMARY KEY,
	original_memory_id TEXT NOT NULL,
	replacement_memory_id TEXT,
	correction_type TEXT NOT NULL CHECK (
		correction_type IN ('superseded', 'deprecated', 'refined', 'merged')
	),
	original_stability_before REAL NOT NULL,
	original_stability_after REAL NOT NULL,
	replacement_stability_before REAL,
	replacement_stability_after REAL,
	reason TEXT,
	actor TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_undone BOOLEAN NOT NULL DEFAULT 0,
	undone_at DATETIME,
	FOREIGN KEY (original_memory_id) REFERENCES memories(id) ON DELETE CASCADE,
	FOREIGN KEY (replacement_memory_id) REFERENCES memories(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_corrections_original ON corrections(original_memory_id);
CREATE INDEX IF NOT EXISTS idx_corrections_replacement ON corrections(replacement_memory_id);
CREATE INDEX IF NOT EXISTS idx_corrections_type ON corrections(correction_type);

-- =============================================================================
-- CAUSAL EDGES
-- Graph edges emitted by the corrections ledger (one per correction with a
-- replacement, typed by its correction_type) when ENABLE_RELATIONS is set.
-- Undo removes the matching edge.
-- =============================================================================
CREATE TABLE IF NOT EXISTS correction_edges (
	id TEXT PRIMARY KEY,
	correction_id TEXT NOT NULL,
	edge_type TEXT NOT NULL,
	from_memory_id TEXT NOT NULL,
	to_memory_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (correction_id) REFERENCES corrections(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_correction_edges_correction ON correction_edges(correction_id);

-- =============================================================================
-- CONFLICT LOG (C10 telemetry)
-- Append-only record of every prediction-error-gate decision worth
-- inspecting.
-- =============================================================================
CREATE TABLE IF NOT EXISTS conflicts (
	id TEXT PRIMARY KEY,
	new_content_hash TEXT NOT NULL,
	existing_memory_id TEXT,
	similarity_score REAL NOT NULL,
	action TEXT NOT NULL CHECK (
		action IN ('CREATE', 'UPDATE', 'REINFORCE', 'SUPERSEDE', 'CREATE_LINKED')
	),
	notes TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (existing_memory_id) REFERENCES memories(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_conflicts_created_at ON conflicts(created_at);
CREATE INDEX IF NOT EXISTS idx_conflicts_existing_memory ON conflicts(existing_memory_id);

-- =============================================================================
-- SESSION LAYER (C12)
-- session_checkpoints: one row per session id, crash-recoverable.
-- session_sent: per-session dedup membership with TTL-based eviction.
-- =============================================================================
CREATE TABLE IF NOT EXISTS session_checkpoints (
	session_id TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK (status IN ('active', 'completed', 'interrupted')),
	spec_folder TEXT,
	current_task TEXT,
	last_action TEXT,
	context_summary TEXT,
	pending_work TEXT,
	extra_data TEXT DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_session_checkpoints_status ON session_checkpoints(status);
CREATE INDEX IF NOT EXISTS idx_session_checkpoints_updated ON session_checkpoints(updated_at);

CREATE TABLE IF NOT EXISTS session_sent (
	session_id TEXT NOT NULL,
	memory_hash TEXT NOT NULL,
	sent_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, memory_hash)
);
CREATE INDEX IF NOT EXISTS idx_session_sent_session_hash ON session_sent(session_id, memory_hash);
CREATE INDEX IF NOT EXISTS idx_session_sent_sent_at ON session_sent(sent_at);

-- =============================================================================
-- CLAUDE CODE CHAT INGESTION (teacher supplement)
-- =============================================================================
CREATE TABLE IF NOT EXISTS cc_sessions (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	project_path TEXT NOT NULL,
	project_hash TEXT NOT NULL,
	model TEXT,
	title TEXT,
	first_prompt TEXT,
	summary TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_activity DATETIME,
	message_count INTEGER DEFAULT 0,
	user_message_count INTEGER DEFAULT 0,
	assistant_message_count INTEGER DEFAULT 0,
	tool_call_count INTEGER DEFAULT 0,
	source_id TEXT,
	file_path TEXT,
	last_sync_position TEXT,
	summary_memory_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_cc_sessions_project ON cc_sessions(project_path);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cc_sessions_hash_session ON cc_sessions(project_hash, session_id);

CREATE TABLE IF NOT EXISTS cc_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp DATETIME,
	sequence_index INTEGER NOT NULL DEFAULT 0,
	has_tool_use BOOLEAN DEFAULT 0,
	token_count INTEGER DEFAULT 0,
	FOREIGN KEY (session_id) REFERENCES cc_sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_cc_messages_session ON cc_messages(session_id, sequence_index);

CREATE TABLE IF NOT EXISTS cc_tool_calls (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	message_id TEXT,
	tool_name TEXT NOT NULL,
	input_json TEXT,
	result_text TEXT,
	success BOOLEAN DEFAULT 1,
	filepath TEXT,
	operation TEXT,
	timestamp DATETIME,
	FOREIGN KEY (session_id) REFERENCES cc_sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_cc_tool_calls_session ON cc_tool_calls(session_id);
CREATE INDEX IF NOT EXISTS idx_cc_tool_calls_filepath ON cc_tool_calls(filepath);

-- =============================================================================
-- EXTERNAL DATA SOURCE REGISTRY (teacher supplement)
-- =============================================================================
CREATE TABLE IF NOT EXISTS data_sources (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	name TEXT NOT NULL,
	config TEXT DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'active',
	last_sync_at DATETIME,
	last_sync_position TEXT,
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_data_sources_type ON data_sources(source_type);
CREATE INDEX IF NOT EXISTS idx_data_sources_status ON data_sources(status);

CREATE TABLE IF NOT EXISTS data_source_sync_history (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	completed_at DATETIME,
	items_processed INTEGER DEFAULT 0,
	memories_created INTEGER DEFAULT 0,
	duplicates_skipped INTEGER DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'running',
	error TEXT,
	FOREIGN KEY (source_id) REFERENCES data_sources(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sync_history_source ON data_source_sync_history(source_id, started_at);
`
	if _, err := tx.Exec(coreV3SQL); err != nil {
		return fmt.Errorf("failed to create v3 tables: %w", err)
	}

	// Backfill natural-key and FSRS defaults for rows created before v3.
	if _, err := tx.Exec(`
		UPDATE memories
		SET importance_tier = 'normal'
		WHERE importance_tier IS NULL
	`); err != nil {
		log.Warn("failed to backfill importance_tier", "error", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO schema_version (version, applied_at)
		VALUES (3, CURRENT_TIMESTAMP)
	`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info("migration v2 to v3 completed successfully")
	return nil
}

// RunMigrations checks the current schema version and runs any pending migrations
func (d *Database) RunMigrations() error {
	version, err := d.GetSchemaVersion()
	if err != nil {
		// Schema version table may not exist yet
		version = 0
	}

	log.Info("checking migrations", "current_version", version, "target_version", SchemaVersion)

	if version >= SchemaVersion {
		log.Debug("database is up to date")
		return nil
	}

	// Run migrations sequentially
	if version < 2 {
		if err := MigrationV1ToV2(d.db); err != nil {
			return fmt.Errorf("migration v1 to v2 failed: %w", err)
		}
	}

	if version < 3 {
		if err := MigrationV2ToV3(d.db); err != nil {
			return fmt.Errorf("migration v2 to v3 failed: %w", err)
		}
	}

	return nil
}
