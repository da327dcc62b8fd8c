package store

// schemaStatements are the CREATE TABLE statements for the SQL backend,
// translated from db.py's create_tables into portable ANSI SQL that
// both MySQL and Postgres accept (no vendor-specific IDENTITY/MERGE).
// cmd/schemacrawler-migrate runs these in order against a fresh
// database; sqlstore.go also runs them on open so tests against a
// throwaway database don't need a separate migration step.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR(255) PRIMARY KEY,
		email VARCHAR(255),
		name VARCHAR(255),
		provider VARCHAR(50),
		api_key VARCHAR(64) UNIQUE,
		created_at TIMESTAMP NOT NULL,
		last_login TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		site_url VARCHAR(500) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		process_interval_hours INT DEFAULT 24,
		last_processed TIMESTAMP NULL,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (site_url, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		site_url VARCHAR(500) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		file_url VARCHAR(500) NOT NULL,
		schema_map VARCHAR(500) NOT NULL,
		last_read_time TIMESTAMP NULL,
		number_of_items INT DEFAULT 0,
		is_manual BOOLEAN DEFAULT FALSE,
		is_active BOOLEAN DEFAULT TRUE,
		PRIMARY KEY (file_url, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_site ON files (site_url, user_id, schema_map)`,
	`CREATE TABLE IF NOT EXISTS ids (
		file_url VARCHAR(500) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		id VARCHAR(500) NOT NULL,
		PRIMARY KEY (file_url, user_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ids_ref ON ids (id, user_id)`,
	`CREATE TABLE IF NOT EXISTS processing_errors (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		file_url VARCHAR(500) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		error_type VARCHAR(100) NOT NULL,
		error_message TEXT,
		error_details TEXT,
		occurred_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_errors_file ON processing_errors (file_url, user_id, occurred_at)`,
}

// pgSchemaStatements is schemaStatements adjusted for the one
// Postgres-incompatible line (AUTO_INCREMENT). Selected by Dialect at
// migration time; see cmd/schemacrawler-migrate.
var pgSchemaStatements = func() []string {
	out := make([]string, len(schemaStatements))
	copy(out, schemaStatements)
	out[len(out)-2] = `CREATE TABLE IF NOT EXISTS processing_errors (
		id BIGSERIAL PRIMARY KEY,
		file_url VARCHAR(500) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		error_type VARCHAR(100) NOT NULL,
		error_message TEXT,
		error_details TEXT,
		occurred_at TIMESTAMP NOT NULL
	)`
	return out
}()
