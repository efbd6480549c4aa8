package docmap

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

// sqliteStore persists the map in an embedded SQLite database. Save replaces
// the documents table wholesale inside one transaction, so readers never see
// a half-written map.
type sqliteStore struct {
	path string
}

func openSQLiteStore(path string) (*sqliteStore, error) {
	return &sqliteStore{path: path}, nil
}

func (s *sqliteStore) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("opening doc map database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents(
			doc_id INTEGER PRIMARY KEY,
			url    TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return db, nil
}

func (s *sqliteStore) Save(m *Map) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting doc map transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents table: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO documents(doc_id, url) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing doc map insert: %w", err)
	}
	defer stmt.Close()
	for id, url := range m.byID {
		if _, err := stmt.Exec(id, url); err != nil {
			return fmt.Errorf("inserting doc %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing doc map: %w", err)
	}
	return nil
}

func (s *sqliteStore) Load() (*Map, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexMissing, "doc map %s not found", s.path)
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT doc_id, url FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	m := New()
	for rows.Next() {
		var id int64
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		m.Add(id, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return m, nil
}
