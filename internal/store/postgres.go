package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reeldata/cinesync/internal/db"
	"github.com/reeldata/cinesync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lookups (
	id       BIGSERIAL PRIMARY KEY,
	category TEXT NOT NULL,
	name     TEXT NOT NULL,
	UNIQUE(category, name)
);

CREATE TABLE IF NOT EXISTS movies (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT NOT NULL,
	release_year    INT,
	tmdb_id         BIGINT,
	imdb_id         TEXT,
	genre_ref       BIGINT REFERENCES lookups(id),
	distributor_ref BIGINT REFERENCES lookups(id),
	popularity      DOUBLE PRECISION,
	vote_count      BIGINT,
	average_vote    DOUBLE PRECISION,
	budget          BIGINT,
	imdb_rating     DOUBLE PRECISION,
	imdb_votes      BIGINT,
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
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY,
	page         INT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	stubs        INT NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetMovie(ctx context.Context, id int64) (*model.MovieRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	rec, err := scanPgMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get movie %d", id)
	}
	return rec, nil
}

func (s *PostgresStore) FindMovieByTMDbID(ctx context.Context, tmdbID int64) (*model.MovieRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE tmdb_id = $1`, tmdbID)
	rec, err := scanPgMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find movie by tmdb id %d", tmdbID)
	}
	return rec, nil
}

func (s *PostgresStore) FindMovieByIMDbID(ctx context.Context, imdbID string) (*model.MovieRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE imdb_id = $1`, imdbID)
	rec, err := scanPgMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find movie by imdb id %s", imdbID)
	}
	return rec, nil
}

func (s *PostgresStore) FindMovieByTitle(ctx context.Context, title string) (*model.MovieRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE title = $1 ORDER BY id LIMIT 1`, title)
	rec, err := scanPgMovie(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find movie by title %q", title)
	}
	return rec, nil
}

func (s *PostgresStore) MergeMovie(ctx context.Context, id *int64, fn func(*model.MovieRecord) error) (*model.MovieRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: merge movie: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rec := &model.MovieRecord{}
	if id != nil {
		row := tx.QueryRow(ctx,
			`SELECT `+movieColumns+` FROM movies WHERE id = $1 FOR UPDATE`, *id)
		rec, err = scanPgMovie(row)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: merge movie: load %d", *id)
		}
		if rec == nil {
			return nil, eris.Errorf("postgres: merge movie: record %d not found", *id)
		}
	}

	if err := fn(rec); err != nil {
		return nil, eris.Wrap(err, "postgres: merge movie: apply")
	}

	if id == nil {
		err = tx.QueryRow(ctx,
			`INSERT INTO movies (title, release_year, tmdb_id, imdb_id, genre_ref, distributor_ref,
				popularity, vote_count, average_vote, budget, imdb_rating, imdb_votes,
				opening_gross, theaters, total_gross)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			 RETURNING id`,
			movieArgs(rec)...).Scan(&rec.ID)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: merge movie: insert")
		}
	} else {
		args := append(movieArgs(rec), *id)
		if _, err := tx.Exec(ctx,
			`UPDATE movies SET title = $1, release_year = $2, tmdb_id = $3, imdb_id = $4,
				genre_ref = $5, distributor_ref = $6, popularity = $7, vote_count = $8,
				average_vote = $9, budget = $10, imdb_rating = $11, imdb_votes = $12,
				opening_gross = $13, theaters = $14, total_gross = $15
			 WHERE id = $16`,
			args...); err != nil {
			return nil, eris.Wrapf(err, "postgres: merge movie: update %d", *id)
		}
		rec.ID = *id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: merge movie: commit")
	}
	return rec, nil
}

func (s *PostgresStore) ListMovies(ctx context.Context) ([]model.MovieRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list movies")
	}
	defer rows.Close()

	var movies []model.MovieRecord
	for rows.Next() {
		rec, err := scanPgMovie(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list movies: scan")
		}
		movies = append(movies, *rec)
	}
	return movies, eris.Wrap(rows.Err(), "postgres: list movies: iterate")
}

func (s *PostgresStore) CountMovies(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count movies")
}

func (s *PostgresStore) ResolveLookup(ctx context.Context, category model.LookupCategory, name string) (int64, error) {
	var id int64
	// The DO UPDATE on the conflict arm makes RETURNING yield the existing
	// row's id instead of returning no rows.
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lookups (category, name) VALUES ($1, $2)
		 ON CONFLICT (category, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		string(category), name).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: resolve lookup %s/%s", category, name)
	}
	return id, nil
}

func (s *PostgresStore) GetLookup(ctx context.Context, id int64) (*model.LookupEntry, error) {
	var e model.LookupEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, category, name FROM lookups WHERE id = $1`, id).
		Scan(&e.ID, &e.Category, &e.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lookup %d", id)
	}
	return &e, nil
}

func (s *PostgresStore) ListLookups(ctx context.Context, category model.LookupCategory) ([]model.LookupEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, category, name FROM lookups WHERE category = $1 ORDER BY id`,
		string(category))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list lookups %s", category)
	}
	defer rows.Close()

	var entries []model.LookupEntry
	for rows.Next() {
		var e model.LookupEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: list lookups: scan")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list lookups: iterate")
}

func (s *PostgresStore) GetCheckpoint(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM checkpoints WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get checkpoint %s", key)
	}
	return value, nil
}

func (s *PostgresStore) SetCheckpoint(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	return eris.Wrapf(err, "postgres: set checkpoint %s", key)
}

func (s *PostgresStore) CreateIngestRun(ctx context.Context, run *model.IngestRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, page, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Page, string(run.Status), run.StartedAt)
	return eris.Wrapf(err, "postgres: create ingest run %s", run.ID)
}

func (s *PostgresStore) CompleteIngestRun(ctx context.Context, id string, stubs int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, stubs = $2, completed_at = now() WHERE id = $3`,
		string(model.RunStatusComplete), stubs, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete ingest run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: ingest run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FailIngestRun(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, error = $2, completed_at = now() WHERE id = $3`,
		string(model.RunStatusFailed), errMsg, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail ingest run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: ingest run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, page, status, stubs, error, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingest runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var errStr *string
		var completedAt *time.Time
		if err := rows.Scan(&r.ID, &r.Page, &r.Status, &r.Stubs, &errStr, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: list ingest runs: scan")
		}
		if errStr != nil {
			r.Error = *errStr
		}
		r.CompletedAt = completedAt
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list ingest runs: iterate")
}

// scanPgMovie reads one movie row from a pgx row, mapping NULLs to nil
// pointers. Returns (nil, nil) when the row does not exist.
func scanPgMovie(row pgx.Row) (*model.MovieRecord, error) {
	var rec model.MovieRecord
	err := row.Scan(&rec.ID, &rec.Title, &rec.ReleaseYear, &rec.TMDbID, &rec.IMDbID,
		&rec.GenreRef, &rec.DistributorRef, &rec.Popularity, &rec.VoteCount,
		&rec.AverageVote, &rec.Budget, &rec.IMDbRating, &rec.IMDbVotes,
		&rec.OpeningGross, &rec.Theaters, &rec.TotalGross)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
