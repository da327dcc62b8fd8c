package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// Dialect selects the wire driver and placeholder style for SQLStore.
// MySQL is the default (spec.md's DB_* config keys mirror db.py's
// get_connection without committing to one vendor); Postgres is wired
// through pgx's database/sql-compatible stdlib driver as the
// alternative, per SPEC_FULL.md's domain-stack table.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// DSN bundles the DB_SERVER/DB_DATABASE/DB_USERNAME/DB_PASSWORD config
// keys (db.py's get_connection) into one value.
type DSN struct {
	Dialect  Dialect
	Server   string
	Database string
	Username string
	Password string
}

// SQLStore is the production Store backend, a thin layer over
// database/sql with MERGE-free, dialect-portable statements (db.py's
// SQL Server MERGE has no portable equivalent, so upserts here use a
// read-then-write pattern under an explicit transaction instead).
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	locks   *siteLocks
}

// OpenSQLStore connects, runs the schema migration (idempotent,
// IF NOT EXISTS throughout), and returns a ready Store.
func OpenSQLStore(ctx context.Context, dsn DSN) (*SQLStore, error) {
	driver, connStr, err := driverAndDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn.Dialect, err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapUnavailable("ping", err)
	}

	s := &SQLStore{db: db, dialect: dsn.Dialect, locks: newSiteLocks()}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func driverAndDSN(dsn DSN) (driver, connStr string, err error) {
	switch dsn.Dialect {
	case DialectMySQL, "":
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&multiStatements=true",
			dsn.Username, dsn.Password, dsn.Server, dsn.Database), nil
	case DialectPostgres:
		return "pgx", fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
			dsn.Username, dsn.Password, dsn.Server, dsn.Database), nil
	default:
		return "", "", fmt.Errorf("store: unknown dialect %q", dsn.Dialect)
	}
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := schemaStatements
	if s.dialect == DialectPostgres {
		stmts = pgSchemaStatements
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, s.rebind(stmt)); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites "?" placeholders to "$1, $2, ..." for Postgres; MySQL
// keeps "?" natively. Written once here rather than per-call so every
// query below can be authored MySQL-style.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, wrapUnavailable(op, err)
	}
	return res, nil
}

// --- Users ---

func (s *SQLStore) CreateUser(ctx context.Context, u *types.User) error {
	_, err := s.exec(ctx, "create_user",
		`INSERT INTO users (user_id, email, name, provider, api_key, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.Email, u.Name, u.Provider, u.APIKey, u.CreatedAt.UTC(), u.LastLogin.UTC())
	return err
}

func (s *SQLStore) scanUser(row *sql.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.UserID, &u.Email, &u.Name, &u.Provider, &u.APIKey, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapUnavailable("scan_user", err)
	}
	return &u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, userID string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT user_id, email, name, provider, api_key, created_at, last_login FROM users WHERE user_id = ?`),
		userID)
	return s.scanUser(row)
}

func (s *SQLStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT user_id, email, name, provider, api_key, created_at, last_login FROM users WHERE api_key = ?`),
		apiKey)
	return s.scanUser(row)
}

func (s *SQLStore) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.exec(ctx, "touch_login", `UPDATE users SET last_login = ? WHERE user_id = ?`, at.UTC(), userID)
	return err
}

// --- Sites ---

func (s *SQLStore) AddSite(ctx context.Context, site *types.Site) error {
	_, err := s.exec(ctx, "add_site",
		`INSERT INTO sites (site_url, user_id, process_interval_hours, last_processed, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		site.SiteURL, site.UserID, site.ProcessIntervalHours, nullTime(site.LastProcessed), site.IsActive, site.CreatedAt.UTC())
	return err
}

func (s *SQLStore) RemoveSite(ctx context.Context, siteURL, userID string) error {
	res, err := s.exec(ctx, "remove_site",
		`UPDATE sites SET is_active = FALSE WHERE site_url = ? AND user_id = ?`, siteURL, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLStore) scanSite(row *sql.Row) (*types.Site, error) {
	var site types.Site
	var lastProcessed sql.NullTime
	err := row.Scan(&site.SiteURL, &site.UserID, &site.ProcessIntervalHours, &lastProcessed, &site.IsActive, &site.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapUnavailable("scan_site", err)
	}
	if lastProcessed.Valid {
		site.LastProcessed = &lastProcessed.Time
	}
	return &site, nil
}

func (s *SQLStore) GetSite(ctx context.Context, siteURL, userID string) (*types.Site, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT site_url, user_id, process_interval_hours, last_processed, is_active, created_at
		 FROM sites WHERE site_url = ? AND user_id = ?`), siteURL, userID)
	return s.scanSite(row)
}

func (s *SQLStore) GetDueSites(ctx context.Context, now time.Time) ([]*types.Site, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT site_url, user_id, process_interval_hours, last_processed, is_active, created_at
		 FROM sites WHERE is_active = TRUE`))
	if err != nil {
		return nil, wrapUnavailable("get_due_sites", err)
	}
	defer rows.Close()

	var due []*types.Site
	for rows.Next() {
		var site types.Site
		var lastProcessed sql.NullTime
		if err := rows.Scan(&site.SiteURL, &site.UserID, &site.ProcessIntervalHours, &lastProcessed, &site.IsActive, &site.CreatedAt); err != nil {
			return nil, wrapUnavailable("scan_due_site", err)
		}
		if lastProcessed.Valid {
			site.LastProcessed = &lastProcessed.Time
		}
		if site.Due(now) {
			due = append(due, &site)
		}
	}
	return due, rows.Err()
}

func (s *SQLStore) ListAllSites(ctx context.Context) ([]*types.Site, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT site_url, user_id, process_interval_hours, last_processed, is_active, created_at
		 FROM sites WHERE is_active = TRUE`))
	if err != nil {
		return nil, wrapUnavailable("list_all_sites", err)
	}
	defer rows.Close()

	var sites []*types.Site
	for rows.Next() {
		var site types.Site
		var lastProcessed sql.NullTime
		if err := rows.Scan(&site.SiteURL, &site.UserID, &site.ProcessIntervalHours, &lastProcessed, &site.IsActive, &site.CreatedAt); err != nil {
			return nil, wrapUnavailable("scan_site", err)
		}
		if lastProcessed.Valid {
			site.LastProcessed = &lastProcessed.Time
		}
		sites = append(sites, &site)
	}
	return sites, rows.Err()
}

func (s *SQLStore) UpdateSiteLastProcessed(ctx context.Context, siteURL, userID string, at time.Time) error {
	res, err := s.exec(ctx, "update_site_last_processed",
		`UPDATE sites SET last_processed = ? WHERE site_url = ? AND user_id = ?`, at.UTC(), siteURL, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// --- Files ---

func (s *SQLStore) scanFiles(rows *sql.Rows) ([]*types.File, error) {
	var files []*types.File
	for rows.Next() {
		var f types.File
		var lastRead sql.NullTime
		if err := rows.Scan(&f.SiteURL, &f.UserID, &f.FileURL, &f.SchemaMap, &lastRead, &f.NumberOfItems, &f.IsManual, &f.IsActive); err != nil {
			return nil, wrapUnavailable("scan_file", err)
		}
		if lastRead.Valid {
			f.LastReadTime = &lastRead.Time
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

func (s *SQLStore) ListSiteFiles(ctx context.Context, siteURL, userID string) ([]*types.File, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT site_url, user_id, file_url, schema_map, last_read_time, number_of_items, is_manual, is_active
		 FROM files WHERE site_url = ? AND user_id = ? AND is_active = TRUE`), siteURL, userID)
	if err != nil {
		return nil, wrapUnavailable("list_site_files", err)
	}
	defer rows.Close()
	return s.scanFiles(rows)
}

// DiffSiteFiles mirrors db.py's update_site_files: read the existing
// active set for this schema_map, compute the set difference in Go,
// upsert additions (reactivating a tombstone in place rather than
// MERGE, which isn't portable across dialects), and tombstone
// removals. Serialized per (siteURL, userID) like every other backend.
func (s *SQLStore) DiffSiteFiles(ctx context.Context, siteURL, userID, schemaMap string, triples []types.FileTriple) (added, removed []string, err error) {
	unlock := s.locks.lock(siteURL, userID)
	defer unlock()

	desired := make(map[string]struct{}, len(triples))
	for _, t := range triples {
		desired[t.FileURL] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, wrapUnavailable("diff_site_files_begin", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.rebind(
		`SELECT file_url FROM files WHERE site_url = ? AND user_id = ? AND schema_map = ? AND is_active = TRUE`),
		siteURL, userID, schemaMap)
	if err != nil {
		return nil, nil, wrapUnavailable("diff_site_files_select", err)
	}
	existing := make(map[string]struct{})
	for rows.Next() {
		var fileURL string
		if err := rows.Scan(&fileURL); err != nil {
			rows.Close()
			return nil, nil, wrapUnavailable("diff_site_files_scan", err)
		}
		existing[fileURL] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, wrapUnavailable("diff_site_files_rows", err)
	}

	for fileURL := range desired {
		if _, ok := existing[fileURL]; ok {
			continue
		}
		res, uerr := tx.ExecContext(ctx, s.rebind(
			`UPDATE files SET is_active = TRUE, site_url = ?, schema_map = ? WHERE file_url = ? AND user_id = ?`),
			siteURL, schemaMap, fileURL, userID)
		if uerr != nil {
			return nil, nil, wrapUnavailable("diff_site_files_reactivate", uerr)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			if _, ierr := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO files (site_url, user_id, file_url, schema_map, number_of_items, is_manual, is_active)
				 VALUES (?, ?, ?, ?, 0, FALSE, TRUE)`),
				siteURL, userID, fileURL, schemaMap); ierr != nil {
				return nil, nil, wrapUnavailable("diff_site_files_insert", ierr)
			}
		}
		added = append(added, fileURL)
	}

	var toRemove []string
	for fileURL := range existing {
		if _, wanted := desired[fileURL]; !wanted {
			toRemove = append(toRemove, fileURL)
		}
	}
	for _, batch := range chunkStrings(toRemove, 500) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, 0, len(batch)+2)
		args = append(args, siteURL, userID)
		for _, f := range batch {
			args = append(args, f)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(fmt.Sprintf(
			`UPDATE files SET is_active = FALSE WHERE site_url = ? AND user_id = ? AND file_url IN (%s)`, placeholders)),
			args...); err != nil {
			return nil, nil, wrapUnavailable("diff_site_files_tombstone", err)
		}
	}
	removed = toRemove

	if err := tx.Commit(); err != nil {
		return nil, nil, wrapUnavailable("diff_site_files_commit", err)
	}
	return added, removed, nil
}

func (s *SQLStore) GetFile(ctx context.Context, fileURL, userID string) (*types.File, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT site_url, user_id, file_url, schema_map, last_read_time, number_of_items, is_manual, is_active
		 FROM files WHERE file_url = ? AND user_id = ?`), fileURL, userID)
	var f types.File
	var lastRead sql.NullTime
	err := row.Scan(&f.SiteURL, &f.UserID, &f.FileURL, &f.SchemaMap, &lastRead, &f.NumberOfItems, &f.IsManual, &f.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapUnavailable("get_file", err)
	}
	if lastRead.Valid {
		f.LastReadTime = &lastRead.Time
	}
	return &f, nil
}

func (s *SQLStore) DeleteFile(ctx context.Context, fileURL, userID string) error {
	_, err := s.exec(ctx, "delete_file", `DELETE FROM files WHERE file_url = ? AND user_id = ?`, fileURL, userID)
	return err
}

// --- Ids ---

func (s *SQLStore) ListFileIds(ctx context.Context, fileURL, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id FROM ids WHERE file_url = ? AND user_id = ?`), fileURL, userID)
	if err != nil {
		return nil, wrapUnavailable("list_file_ids", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapUnavailable("scan_file_id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DiffFileIds mirrors db.py's update_file_ids: insert additions,
// delete removals in batches of 500 (SQL Server's historical 2100
// parameter limit, kept conservative here for MySQL/Postgres too), and
// stamp last_read_time/number_of_items on the owning file row.
func (s *SQLStore) DiffFileIds(ctx context.Context, fileURL, userID string, newIds []string) (added, removed []string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, wrapUnavailable("diff_file_ids_begin", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.rebind(`SELECT id FROM ids WHERE file_url = ? AND user_id = ?`), fileURL, userID)
	if err != nil {
		return nil, nil, wrapUnavailable("diff_file_ids_select", err)
	}
	existing := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, wrapUnavailable("diff_file_ids_scan", err)
		}
		existing[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, wrapUnavailable("diff_file_ids_rows", err)
	}

	want := make(map[string]struct{}, len(newIds))
	for _, id := range newIds {
		want[id] = struct{}{}
	}

	for id := range want {
		if _, ok := existing[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO ids (file_url, user_id, id) VALUES (?, ?, ?)`), fileURL, userID, id); err != nil {
			return nil, nil, wrapUnavailable("diff_file_ids_insert", err)
		}
		added = append(added, id)
	}

	var toRemove []string
	for id := range existing {
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	if len(toRemove) > 0 {
		if len(newIds) == 0 {
			if _, err := tx.ExecContext(ctx, s.rebind(
				`DELETE FROM ids WHERE file_url = ? AND user_id = ?`), fileURL, userID); err != nil {
				return nil, nil, wrapUnavailable("diff_file_ids_delete_all", err)
			}
		} else {
			for _, batch := range chunkStrings(toRemove, 500) {
				placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
				args := make([]any, 0, len(batch)+2)
				args = append(args, fileURL, userID)
				for _, id := range batch {
					args = append(args, id)
				}
				if _, err := tx.ExecContext(ctx, s.rebind(fmt.Sprintf(
					`DELETE FROM ids WHERE file_url = ? AND user_id = ? AND id IN (%s)`, placeholders)), args...); err != nil {
					return nil, nil, wrapUnavailable("diff_file_ids_delete_batch", err)
				}
			}
		}
		removed = toRemove
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE files SET last_read_time = ?, number_of_items = ? WHERE file_url = ? AND user_id = ?`),
		timeNow().UTC(), len(newIds), fileURL, userID); err != nil {
		return nil, nil, wrapUnavailable("diff_file_ids_touch", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, wrapUnavailable("diff_file_ids_commit", err)
	}
	return added, removed, nil
}

func (s *SQLStore) RefCount(ctx context.Context, id, userID string) (int, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM ids WHERE id = ? AND user_id = ?`), id, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, wrapUnavailable("ref_count", err)
	}
	return count, nil
}

// --- Errors ---

func (s *SQLStore) LogError(ctx context.Context, pe *types.ProcessingError) error {
	if pe.OccurredAt.IsZero() {
		pe.OccurredAt = timeNow()
	}
	row := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO processing_errors (file_url, user_id, error_type, error_message, error_details, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`+s.returningID()),
		pe.FileURL, pe.UserID, string(pe.ErrorType), pe.ErrorMessage, pe.ErrorDetails, pe.OccurredAt.UTC())
	if s.dialect == DialectPostgres {
		if err := row.Scan(&pe.ID); err != nil {
			return wrapUnavailable("log_error", err)
		}
		return nil
	}
	// MySQL: row.Scan on a statement with no RETURNING fails; execute
	// plainly and read LAST_INSERT_ID instead.
	res, err := s.exec(ctx, "log_error",
		`INSERT INTO processing_errors (file_url, user_id, error_type, error_message, error_details, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pe.FileURL, pe.UserID, string(pe.ErrorType), pe.ErrorMessage, pe.ErrorDetails, pe.OccurredAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrapUnavailable("log_error_last_id", err)
	}
	pe.ID = id
	return nil
}

func (s *SQLStore) returningID() string {
	if s.dialect == DialectPostgres {
		return " RETURNING id"
	}
	return ""
}

func (s *SQLStore) ClearErrors(ctx context.Context, fileURL, userID string) error {
	_, err := s.exec(ctx, "clear_errors", `DELETE FROM processing_errors WHERE file_url = ? AND user_id = ?`, fileURL, userID)
	return err
}

func (s *SQLStore) ListErrors(ctx context.Context, fileURL, userID string, limit int) ([]*types.ProcessingError, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, file_url, user_id, error_type, error_message, error_details, occurred_at
		 FROM processing_errors WHERE file_url = ? AND user_id = ? ORDER BY occurred_at DESC LIMIT ?`),
		fileURL, userID, limit)
	if err != nil {
		return nil, wrapUnavailable("list_errors", err)
	}
	defer rows.Close()

	var out []*types.ProcessingError
	for rows.Next() {
		var pe types.ProcessingError
		var errType string
		if err := rows.Scan(&pe.ID, &pe.FileURL, &pe.UserID, &errType, &pe.ErrorMessage, &pe.ErrorDetails, &pe.OccurredAt); err != nil {
			return nil, wrapUnavailable("scan_error", err)
		}
		pe.ErrorType = types.ErrorType(errType)
		out = append(out, &pe)
	}
	return out, rows.Err()
}

// --- Counts ---

func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	sitesQuery := `SELECT SUM(CASE WHEN is_active THEN 1 ELSE 0 END), SUM(CASE WHEN is_active THEN 0 ELSE 1 END) FROM sites`
	row := s.db.QueryRowContext(ctx, sitesQuery)
	var activeSites, inactiveSites sql.NullInt64
	if err := row.Scan(&activeSites, &inactiveSites); err != nil {
		return Counts{}, wrapUnavailable("counts_sites", err)
	}
	c.ActiveSites = int(activeSites.Int64)
	c.InactiveSites = int(inactiveSites.Int64)

	row = s.db.QueryRowContext(ctx, `SELECT SUM(CASE WHEN is_active THEN 1 ELSE 0 END), SUM(CASE WHEN is_active THEN 0 ELSE 1 END) FROM files`)
	var activeFiles, inactiveFiles sql.NullInt64
	if err := row.Scan(&activeFiles, &inactiveFiles); err != nil {
		return Counts{}, wrapUnavailable("counts_files", err)
	}
	c.ActiveFiles = int(activeFiles.Int64)
	c.InactiveFiles = int(inactiveFiles.Int64)

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ids`)
	if err := row.Scan(&c.Ids); err != nil {
		return Counts{}, wrapUnavailable("counts_ids", err)
	}
	return c, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapUnavailable("rows_affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
