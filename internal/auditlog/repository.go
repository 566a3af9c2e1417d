package auditlog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fdu/internal/database"
	"fdu/internal/portal/domain"
)

// Repository stores one entry per portal mutation.
type Repository interface {
	Save(entry *AuditEntry) error

	// Query returns the newest entries matching every non-empty field of f.
	Query(f Filter) ([]AuditEntry, error)

	// Prune removes entries older than olderThan and returns how many.
	Prune(olderThan time.Duration) (int64, error)

	Close() error
}

// Filter selects audit entries. Account and Domain match case-insensitively;
// Command and Outcome match exactly. A Limit of zero means DefaultLimit.
type Filter struct {
	Command string
	Account string
	Domain  string
	Outcome string
	Limit   int
}

// DefaultLimit caps a Query without an explicit limit.
const DefaultLimit = 25

// List returns the newest n entries of repo.
func List(repo Repository, n int) ([]AuditEntry, error) {
	return repo.Query(Filter{Limit: n})
}

// SQLiteRepository implements Repository on the shared local database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open opens the repository at the default database path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("auditlog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt opens the repository in the SQLite database at path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS portal_audit (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			at          TEXT    NOT NULL,
			command     TEXT    NOT NULL,
			args        TEXT    NOT NULL DEFAULT '',
			account     TEXT    NOT NULL DEFAULT '',
			domain_id   TEXT    NOT NULL DEFAULT '',
			domain_name TEXT    NOT NULL DEFAULT '',
			record_type TEXT    NOT NULL DEFAULT '',
			record_name TEXT    NOT NULL DEFAULT '',
			target      TEXT    NOT NULL DEFAULT '',
			outcome     TEXT    NOT NULL,
			detail      TEXT    NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_portal_audit_at ON portal_audit(at);
		CREATE INDEX IF NOT EXISTS idx_portal_audit_domain ON portal_audit(domain_name, at);
		CREATE INDEX IF NOT EXISTS idx_portal_audit_account ON portal_audit(account COLLATE NOCASE, at);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("auditlog: migration failed: %w", err)
	}
	return nil
}

// Save inserts entry and assigns its ID. A zero timestamp becomes now and
// an empty outcome becomes OutcomeSuccess.
func (r *SQLiteRepository) Save(entry *AuditEntry) error {
	if entry.Command == "" {
		return fmt.Errorf("auditlog: command is required")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}
	entry.Domain = domain.NormalizeName(entry.Domain)

	result, err := r.db.Exec(`
		INSERT INTO portal_audit (at, command, args, account, domain_id, domain_name,
			record_type, record_name, target, outcome, detail, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(database.TimeLayout), entry.Command, entry.Args, entry.Account,
		entry.DomainID, entry.Domain, entry.RecordType, entry.RecordName, entry.Target,
		entry.Outcome, entry.Detail, entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("auditlog: insert failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("auditlog: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

const selectColumns = `SELECT id, at, command, args, account, domain_id, domain_name,
	record_type, record_name, target, outcome, detail, duration_ms FROM portal_audit`

// Query returns matching entries, newest first.
func (r *SQLiteRepository) Query(f Filter) ([]AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Command != "" {
		where = append(where, "command = ?")
		args = append(args, f.Command)
	}
	if a := strings.TrimSpace(f.Account); a != "" {
		where = append(where, "account = ? COLLATE NOCASE")
		args = append(args, a)
	}
	if f.Domain != "" {
		where = append(where, "domain_name = ?")
		args = append(args, domain.NormalizeName(f.Domain))
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query failed: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e  AuditEntry
			at string
		)
		if err := rows.Scan(&e.ID, &at, &e.Command, &e.Args, &e.Account, &e.DomainID, &e.Domain,
			&e.RecordType, &e.RecordName, &e.Target, &e.Outcome, &e.Detail, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("auditlog: scan failed: %w", err)
		}
		e.Timestamp, err = time.Parse(database.TimeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("auditlog: entry %d: bad timestamp %q: %w", e.ID, at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than olderThan.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(database.TimeLayout)
	result, err := r.db.Exec(`DELETE FROM portal_audit WHERE at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auditlog: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
