// Package snapshot keeps the record table of a domain as it was before each
// mutation so that a bad update can be rolled back.
//
// Storage is the SQLite database at ~/.config/fdu/fdu.db (or the
// platform-equivalent path returned by os.UserConfigDir).
package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fdu/internal/database"
	"fdu/internal/portal/domain"
)

// Repository defines the persistence interface for snapshots.
type Repository interface {
	// Save inserts a snapshot and assigns its ID.
	Save(s *Snapshot) error

	// Get retrieves a snapshot by ID, or nil when it does not exist.
	Get(id int64) (*Snapshot, error)

	// Latest returns the newest snapshot of a domain, or nil when there is none.
	Latest(domainName string) (*Snapshot, error)

	// List returns the newest n snapshots of a domain, or of all domains
	// when domainName is empty.
	List(domainName string, n int) ([]Snapshot, error)

	// DeleteOlderThan removes snapshots older than d and returns how many.
	DeleteOlderThan(d time.Duration) (int64, error)

	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the snapshot repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	return OpenAt(path)
}

// OpenDefault opens the default repository, or returns nil when
// database.DisableEnv is set. A nil Repository means no snapshots.
func OpenDefault() (Repository, error) {
	if database.Disabled() {
		return nil, nil
	}
	return Open()
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
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
		CREATE TABLE IF NOT EXISTS record_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account     TEXT    NOT NULL DEFAULT '',
			domain_id   TEXT    NOT NULL,
			domain_name TEXT    NOT NULL,
			reason      TEXT    NOT NULL DEFAULT '',
			records     TEXT    NOT NULL,
			created_at  TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_record_snapshots_domain ON record_snapshots(domain_name, created_at);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("snapshots: migration failed: %w", err)
	}
	return nil
}

// Save inserts a new snapshot.
func (r *SQLiteRepository) Save(s *Snapshot) error {
	if s.DomainID == "" || s.DomainName == "" {
		return fmt.Errorf("snapshots: %w", domain.ErrDomainRequired)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	records, err := encodeRecords(s.Records)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		INSERT INTO record_snapshots (account, domain_id, domain_name, reason, records, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Account, s.DomainID, domain.NormalizeName(s.DomainName), s.Reason, records,
		s.CreatedAt.UTC().Format(database.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("snapshots: insert failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshots: failed to get last insert ID: %w", err)
	}
	s.ID = id
	return nil
}

const selectColumns = `SELECT id, account, domain_id, domain_name, reason, records, created_at FROM record_snapshots`

// Get retrieves a single snapshot by ID.
func (r *SQLiteRepository) Get(id int64) (*Snapshot, error) {
	s, err := scanRow(r.db.QueryRow(selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshots: query failed: %w", err)
	}
	return s, nil
}

// Latest returns the newest snapshot of a domain.
func (r *SQLiteRepository) Latest(domainName string) (*Snapshot, error) {
	s, err := scanRow(r.db.QueryRow(selectColumns+`
		WHERE domain_name = ? ORDER BY created_at DESC, id DESC LIMIT 1`, domain.NormalizeName(domainName)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshots: query failed: %w", err)
	}
	return s, nil
}

// List returns the newest n snapshots.
func (r *SQLiteRepository) List(domainName string, n int) ([]Snapshot, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if domainName == "" {
		rows, err = r.db.Query(selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	} else {
		rows, err = r.db.Query(selectColumns+`
			WHERE domain_name = ? ORDER BY created_at DESC, id DESC LIMIT ?`, domain.NormalizeName(domainName), n)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshots: query failed: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("snapshots: scan failed: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes snapshots older than d.
func (r *SQLiteRepository) DeleteOlderThan(d time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-d).Format(database.TimeLayout)
	result, err := r.db.Exec(`DELETE FROM record_snapshots WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("snapshots: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(row scanner) (*Snapshot, error) {
	var (
		s                   Snapshot
		records, createdStr string
	)
	if err := row.Scan(&s.ID, &s.Account, &s.DomainID, &s.DomainName, &s.Reason, &records, &createdStr); err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	var err error
	s.Records, err = decodeRecords(records, s.Domain())
	if err != nil {
		return nil, err
	}
	return &s, nil
}
