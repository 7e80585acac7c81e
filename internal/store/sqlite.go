// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daymark-app/daymark/internal/persistence/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS daily_records (
	county_key TEXT NOT NULL,
	county TEXT NOT NULL,
	day TEXT NOT NULL,
	heat REAL NOT NULL,
	rain REAL NOT NULL,
	wind REAL NOT NULL,
	wps REAL NOT NULL,
	iss REAL NOT NULL DEFAULT 0,
	das REAL NOT NULL DEFAULT 0,
	cai REAL NOT NULL,
	sts REAL NOT NULL DEFAULT 0,
	vex REAL NOT NULL DEFAULT 0,
	fpc REAL NOT NULL DEFAULT 0,
	av REAL NOT NULL,
	state TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (county_key, day)
);
`

const (
	recordColumns = `county, day, heat, rain, wind, wps, iss, das, cai, sts, vex, fpc, av, state, source`
	insertRecord  = `
	INSERT INTO daily_records (county_key, ` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (DailyRecord, error) {
	var r DailyRecord
	err := row.Scan(&r.County, &r.Date, &r.Heat, &r.Rain, &r.Wind, &r.WPS, &r.ISS, &r.DAS,
		&r.CAI, &r.STS, &r.VEX, &r.FPC, &r.AV, &r.State, &r.Source)
	return r, err
}

func recordArgs(rec DailyRecord) []any {
	return []any{
		countyKey(rec.County), rec.County, rec.Date,
		rec.Heat, rec.Rain, rec.Wind, rec.WPS, rec.ISS, rec.DAS,
		rec.CAI, rec.STS, rec.VEX, rec.FPC, rec.AV, rec.State, rec.Source,
	}
}

// SQLitePath is where the sqlite backend keeps its database under dataDir.
func SQLitePath(dataDir string) string {
	return filepath.Join(dataDir, "daymark.sqlite")
}

// SQLiteStore persists history in a WAL-mode SQLite database.
type SQLiteStore struct {
	DB   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, sqliteSchemaVersion, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}
	return &SQLiteStore{DB: db, path: path}, nil
}

func (s *SQLiteStore) PutDaily(ctx context.Context, rec DailyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, insertRecord+`
	ON CONFLICT(county_key, day) DO UPDATE SET
		county = excluded.county,
		heat = excluded.heat,
		rain = excluded.rain,
		wind = excluded.wind,
		wps = excluded.wps,
		iss = excluded.iss,
		das = excluded.das,
		cai = excluded.cai,
		sts = excluded.sts,
		vex = excluded.vex,
		fpc = excluded.fpc,
		av = excluded.av,
		state = excluded.state,
		source = excluded.source`, recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("store: put daily: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutDailyIfAbsent(ctx context.Context, rec DailyRecord) (DailyRecord, error) {
	if err := rec.Validate(); err != nil {
		return DailyRecord{}, err
	}
	if _, err := s.DB.ExecContext(ctx, insertRecord+`
	ON CONFLICT(county_key, day) DO NOTHING`, recordArgs(rec)...); err != nil {
		return DailyRecord{}, fmt.Errorf("store: put daily: %w", err)
	}
	return s.Get(ctx, rec.County, rec.Date)
}

func (s *SQLiteStore) Get(ctx context.Context, county, day string) (DailyRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
	SELECT `+recordColumns+`
	FROM daily_records
	WHERE county_key = ? AND day = ?`, countyKey(county), day)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DailyRecord{}, ErrNotFound
	}
	if err != nil {
		return DailyRecord{}, fmt.Errorf("store: get: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) History(ctx context.Context, county string, before time.Time, n int) ([]DailyRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
	SELECT `+recordColumns+`
	FROM daily_records
	WHERE county_key = ? AND day < ?
	ORDER BY day DESC
	LIMIT ?`, countyKey(county), dayString(before), n)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var out []DailyRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// VerifyIntegrity runs a quick or full integrity check on the database file.
func (s *SQLiteStore) VerifyIntegrity(mode string) ([]string, error) {
	return sqlite.VerifyIntegrity(s.path, mode)
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
