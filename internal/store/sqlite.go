package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reeldata/cinesync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lookups (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	name     TEXT NOT NULL,
	UNIQUE(category, name)
);

CREATE TABLE IF NOT EXISTS movies (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	release_year    INTEGER,
	tmdb_id         INTEGER,
	imdb_id         TEXT,
	genre_ref       INTEGER REFERENCES lookups(id),
	distributor_ref INTEGER REFERENCES lookups(id),
	popularity      REAL,
	vote_count      INTEGER,
	average_vote    REAL,
	budget          INTEGER,
	imdb_rating     REAL,
	imdb_votes      INTEGER,
	opening_gross   TEXT,
	theaters        TEXT,
	total_gross     TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_movies_tmdb_id ON movies(tmdb_id) WHERE tmdb_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_movies_imdb_id ON movies(imdb_id) WHERE imdb_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title);

CREATE TABLE IF NOT EXISTS checkpoints (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY,
	page         INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	stubs        INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const movieColumns = `id, title, release_year, tmdb_id, imdb_id, genre_ref, distributor_ref,
	popularity, vote_count, average_vote, budget, imdb_rating, imdb_votes,
	opening_gross, theaters, total_gross`

func (s *SQLiteStore) GetMovie(ctx context.Context, id int64) (*model.MovieRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	rec, err := scanMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get movie %d", id)
	}
	return rec, nil
}

func (s *SQLiteStore) FindMovieByTMDbID(ctx context.Context, tmdbID int64) (*model.MovieRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE tmdb_id = ?`, tmdbID)
	rec, err := scanMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find movie by tmdb id %d", tmdbID)
	}
	return rec, nil
}

func (s *SQLiteStore) FindMovieByIMDbID(ctx context.Context, imdbID string) (*model.MovieRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE imdb_id = ?`, imdbID)
	rec, err := scanMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find movie by imdb id %s", imdbID)
	}
	return rec, nil
}

func (s *SQLiteStore) FindMovieByTitle(ctx context.Context, title string) (*model.MovieRecord, error) {
	// Title is a non-unique fallback key; take the oldest record on a tie.
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE title = ? ORDER BY id LIMIT 1`, title)
	rec, err := scanMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find movie by title %q", title)
	}
	return rec, nil
}

func (s *SQLiteStore) MergeMovie(ctx context.Context, id *int64, fn func(*model.MovieRecord) error) (*model.MovieRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: merge movie: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	rec := &model.MovieRecord{}
	if id != nil {
		row := tx.QueryRowContext(ctx,
			`SELECT `+movieColumns+` FROM movies WHERE id = ?`, *id)
		rec, err = scanMovie(row)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: merge movie: load %d", *id)
		}
		if rec == nil {
			return nil, eris.Errorf("sqlite: merge movie: record %d not found", *id)
		}
	}

	if err := fn(rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: merge movie: apply")
	}

	if id == nil {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO movies (title, release_year, tmdb_id, imdb_id, genre_ref, distributor_ref,
				popularity, vote_count, average_vote, budget, imdb_rating, imdb_votes,
				opening_gross, theaters, total_gross)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			movieArgs(rec)...)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: merge movie: insert")
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: merge movie: last insert id")
		}
		rec.ID = newID
	} else {
		args := append(movieArgs(rec), *id)
		if _, err := tx.ExecContext(ctx,
			`UPDATE movies SET title = ?, release_year = ?, tmdb_id = ?, imdb_id = ?,
				genre_ref = ?, distributor_ref = ?, popularity = ?, vote_count = ?,
				average_vote = ?, budget = ?, imdb_rating = ?, imdb_votes = ?,
				opening_gross = ?, theaters = ?, total_gross = ?
			 WHERE id = ?`,
			args...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: merge movie: update %d", *id)
		}
		rec.ID = *id
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: merge movie: commit")
	}
	return rec, nil
}

func (s *SQLiteStore) ListMovies(ctx context.Context) ([]model.MovieRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list movies")
	}
	defer rows.Close()

	var movies []model.MovieRecord
	for rows.Next() {
		rec, err := scanMovie(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list movies: scan")
		}
		movies = append(movies, *rec)
	}
	return movies, eris.Wrap(rows.Err(), "sqlite: list movies: iterate")
}

func (s *SQLiteStore) CountMovies(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count movies")
}

func (s *SQLiteStore) ResolveLookup(ctx context.Context, category model.LookupCategory, name string) (int64, error) {
	// INSERT OR IGNORE then SELECT keeps repeated calls for the same pair
	// yielding the same id without ever creating a second row.
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO lookups (category, name) VALUES (?, ?)`,
		string(category), name); err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert lookup %s/%s", category, name)
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM lookups WHERE category = ? AND name = ?`,
		string(category), name).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: resolve lookup %s/%s", category, name)
	}
	return id, nil
}

func (s *SQLiteStore) GetLookup(ctx context.Context, id int64) (*model.LookupEntry, error) {
	var e model.LookupEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, category, name FROM lookups WHERE id = ?`, id).
		Scan(&e.ID, &e.Category, &e.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lookup %d", id)
	}
	return &e, nil
}

func (s *SQLiteStore) ListLookups(ctx context.Context, category model.LookupCategory) ([]model.LookupEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, name FROM lookups WHERE category = ? ORDER BY id`,
		string(category))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list lookups %s", category)
	}
	defer rows.Close()

	var entries []model.LookupEntry
	for rows.Next() {
		var e model.LookupEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: list lookups: scan")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list lookups: iterate")
}

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM checkpoints WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get checkpoint %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) SetCheckpoint(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return eris.Wrapf(err, "sqlite: set checkpoint %s", key)
}

func (s *SQLiteStore) CreateIngestRun(ctx context.Context, run *model.IngestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, page, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Page, string(run.Status), run.StartedAt)
	return eris.Wrapf(err, "sqlite: create ingest run %s", run.ID)
}

func (s *SQLiteStore) CompleteIngestRun(ctx context.Context, id string, stubs int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, stubs = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), stubs, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete ingest run %s", id)
	}
	return checkRowsAffected(res, "ingest run", id)
}

func (s *SQLiteStore) FailIngestRun(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errMsg, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail ingest run %s", id)
	}
	return checkRowsAffected(res, "ingest run", id)
}

func (s *SQLiteStore) ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page, status, stubs, error, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingest runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var errStr sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Page, &r.Status, &r.Stubs, &errStr, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: list ingest runs: scan")
		}
		if errStr.Valid {
			r.Error = errStr.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list ingest runs: iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanMovie reads one movie row, mapping NULL columns to nil pointers.
// Returns (nil, nil) when the row does not exist.
func scanMovie(row scannable) (*model.MovieRecord, error) {
	var (
		rec          model.MovieRecord
		releaseYear  sql.NullInt64
		tmdbID       sql.NullInt64
		imdbID       sql.NullString
		genreRef     sql.NullInt64
		distribRef   sql.NullInt64
		popularity   sql.NullFloat64
		voteCount    sql.NullInt64
		averageVote  sql.NullFloat64
		budget       sql.NullInt64
		imdbRating   sql.NullFloat64
		imdbVotes    sql.NullInt64
		openingGross sql.NullString
		theaters     sql.NullString
		totalGross   sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.Title, &releaseYear, &tmdbID, &imdbID, &genreRef, &distribRef,
		&popularity, &voteCount, &averageVote, &budget, &imdbRating, &imdbVotes,
		&openingGross, &theaters, &totalGross)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if releaseYear.Valid {
		y := int(releaseYear.Int64)
		rec.ReleaseYear = &y
	}
	rec.TMDbID = nullInt64Ptr(tmdbID)
	rec.IMDbID = nullStringPtr(imdbID)
	rec.GenreRef = nullInt64Ptr(genreRef)
	rec.DistributorRef = nullInt64Ptr(distribRef)
	rec.Popularity = nullFloat64Ptr(popularity)
	rec.VoteCount = nullInt64Ptr(voteCount)
	rec.AverageVote = nullFloat64Ptr(averageVote)
	rec.Budget = nullInt64Ptr(budget)
	rec.IMDbRating = nullFloat64Ptr(imdbRating)
	rec.IMDbVotes = nullInt64Ptr(imdbVotes)
	rec.OpeningGross = nullStringPtr(openingGross)
	rec.Theaters = nullStringPtr(theaters)
	rec.TotalGross = nullStringPtr(totalGross)
	return &rec, nil
}

// movieArgs returns the insert/update bind values in column order, without id.
func movieArgs(rec *model.MovieRecord) []any {
	return []any{
		rec.Title,
		ptrInt(rec.ReleaseYear),
		ptrInt64(rec.TMDbID),
		ptrString(rec.IMDbID),
		ptrInt64(rec.GenreRef),
		ptrInt64(rec.DistributorRef),
		ptrFloat64(rec.Popularity),
		ptrInt64(rec.VoteCount),
		ptrFloat64(rec.AverageVote),
		ptrInt64(rec.Budget),
		ptrFloat64(rec.IMDbRating),
		ptrInt64(rec.IMDbVotes),
		ptrString(rec.OpeningGross),
		ptrString(rec.Theaters),
		ptrString(rec.TotalGross),
	}
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullFloat64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func ptrInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrFloat64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
