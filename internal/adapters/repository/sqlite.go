package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/tasteid/internal/domain/model"
)

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

const timeLayout = time.RFC3339Nano

// SQLiteStore implements Store on SQLite. One row per user TasteID and per
// canonical match pair is enforced by unique keys and ON CONFLICT upserts.
type SQLiteStore struct {
	db           *sql.DB
	ids          *snapshotIDs
	busyTimeout  time.Duration
	maxOpenConns int
}

// OpenSQLite opens (or creates) a SQLite database with WAL mode enabled and
// initializes the schema.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		ids:          newSnapshotIDs(),
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStore, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: execute %s: %v", ErrStore, p, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS albums (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	artist_name TEXT NOT NULL DEFAULT '',
	genres TEXT NOT NULL DEFAULT '[]',
	release_date TEXT
);

CREATE TABLE IF NOT EXISTS reviews (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	album_id TEXT NOT NULL,
	rating REAL NOT NULL,
	scale TEXT NOT NULL DEFAULT 'ten',
	text TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY(album_id) REFERENCES albums(id)
);

CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id, created_at, id);

CREATE TABLE IF NOT EXISTS taste_ids (
	id TEXT PRIMARY KEY,
	user_id TEXT UNIQUE NOT NULL,
	primary_archetype TEXT NOT NULL,
	review_count INTEGER NOT NULL,
	last_computed_at TEXT NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS taste_id_snapshots (
	id TEXT PRIMARY KEY,
	taste_id_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_user ON taste_id_snapshots(user_id, id);

CREATE TABLE IF NOT EXISTS taste_matches (
	user1_id TEXT NOT NULL,
	user2_id TEXT NOT NULL,
	overall_score REAL NOT NULL,
	match_type TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY(user1_id, user2_id),
	CHECK(user1_id < user2_id)
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", ErrStore, err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

// AddReviews upserts reviews and their albums in one transaction.
func (s *SQLiteStore) AddReviews(ctx context.Context, reviews []model.Review) error {
	defer observe("add_reviews", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, r := range reviews {
		if r.UserID == "" {
			return fmt.Errorf("%w: review %q has no user", ErrStore, r.ID)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		albumID := r.AlbumID
		if albumID == "" {
			albumID = r.Album.ID
		}
		if albumID == "" {
			return fmt.Errorf("%w: review %q has no album", ErrStore, r.ID)
		}
		genres, err := json.Marshal(nonNil(r.Album.Genres))
		if err != nil {
			return storeErr("encode genres", err)
		}
		var release sql.NullString
		if !r.Album.ReleaseDate.IsZero() {
			release = sql.NullString{String: formatTime(r.Album.ReleaseDate), Valid: true}
		}
		scale := r.Scale
		if scale == "" {
			scale = model.ScaleTen
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO albums (id, title, artist_name, genres, release_date)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title=excluded.title,
	artist_name=excluded.artist_name,
	genres=excluded.genres,
	release_date=excluded.release_date;`,
			albumID, r.Album.Title, r.Album.ArtistName, string(genres), release); err != nil {
			return storeErr("upsert album", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO reviews (id, user_id, album_id, rating, scale, text, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	user_id=excluded.user_id,
	album_id=excluded.album_id,
	rating=excluded.rating,
	scale=excluded.scale,
	text=excluded.text,
	created_at=excluded.created_at;`,
			r.ID, r.UserID, albumID, r.Rating, string(scale), r.Text, formatTime(r.CreatedAt)); err != nil {
			return storeErr("upsert review", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

// Reviews returns a user's reviews with albums, ordered by creation time then id.
func (s *SQLiteStore) Reviews(ctx context.Context, userID string) ([]model.Review, error) {
	defer observe("reviews", time.Now())
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.user_id, r.album_id, r.rating, r.scale, r.text, r.created_at,
       a.title, a.artist_name, a.genres, a.release_date
FROM reviews r JOIN albums a ON a.id = r.album_id
WHERE r.user_id = ?
ORDER BY r.created_at, r.id`, userID)
	if err != nil {
		return nil, storeErr("query reviews", err)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var (
			r        model.Review
			scale    string
			created  string
			genres   string
			released sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.AlbumID, &r.Rating, &scale, &r.Text, &created,
			&r.Album.Title, &r.Album.ArtistName, &genres, &released); err != nil {
			return nil, storeErr("scan review", err)
		}
		r.Scale = model.RatingScale(scale)
		r.Album.ID = r.AlbumID
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, storeErr("parse created_at", err)
		}
		if err := json.Unmarshal([]byte(genres), &r.Album.Genres); err != nil {
			return nil, storeErr("decode genres", err)
		}
		if released.Valid {
			if r.Album.ReleaseDate, err = parseTime(released.String); err != nil {
				return nil, storeErr("parse release_date", err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate reviews", err)
	}
	sortReviews(out)
	return out, nil
}

// PlatformMeanRating averages every well-formed normalized rating.
func (s *SQLiteStore) PlatformMeanRating(ctx context.Context) (float64, bool, error) {
	var (
		mean sql.NullFloat64
		n    int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT AVG(CASE WHEN scale = 'five' THEN rating * 2 ELSE rating END), COUNT(*)
FROM reviews
WHERE (scale = 'five' AND rating >= 1 AND rating <= 5)
   OR (scale IN ('ten', '') AND rating >= 0 AND rating <= 10)`).Scan(&mean, &n)
	if err != nil {
		return 0, false, storeErr("platform mean", err)
	}
	if n == 0 || !mean.Valid {
		return 0, false, nil
	}
	return mean.Float64, true, nil
}

// ReviewerIDs returns every user with at least one review.
func (s *SQLiteStore) ReviewerIDs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "reviewer ids", `SELECT DISTINCT user_id FROM reviews ORDER BY user_id`)
}

func (s *SQLiteStore) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetTasteID returns the user's TasteID.
func (s *SQLiteStore) GetTasteID(ctx context.Context, userID string) (model.TasteID, error) {
	defer observe("get_taste_id", time.Now())
	return getTasteID(ctx, s.db, userID)
}

func getTasteID(ctx context.Context, q queryer, userID string) (model.TasteID, error) {
	var id, payload string
	err := q.QueryRowContext(ctx, `SELECT id, payload FROM taste_ids WHERE user_id = ?`, userID).Scan(&id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TasteID{}, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}
	if err != nil {
		return model.TasteID{}, storeErr("get taste id", err)
	}
	var t model.TasteID
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return model.TasteID{}, storeErr("decode taste id", err)
	}
	t.ID, t.UserID = id, userID
	return t, nil
}

// UpsertTasteID inserts or replaces the user's TasteID.
func (s *SQLiteStore) UpsertTasteID(ctx context.Context, t model.TasteID) (model.TasteID, error) {
	defer observe("upsert_taste_id", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TasteID{}, storeErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	saved, err := upsertTasteID(ctx, tx, t)
	if err != nil {
		return model.TasteID{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.TasteID{}, storeErr("commit", err)
	}
	return saved, nil
}

func upsertTasteID(ctx context.Context, q queryer, t model.TasteID) (model.TasteID, error) {
	if t.UserID == "" {
		return model.TasteID{}, ErrInvalidTasteID
	}
	var existing string
	err := q.QueryRowContext(ctx, `SELECT id FROM taste_ids WHERE user_id = ?`, t.UserID).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.TasteID{}, storeErr("lookup taste id", err)
	}
	t = t.Clone()
	t.ID = tasteIDFor(existing, t.ID)

	payload, err := json.Marshal(t)
	if err != nil {
		return model.TasteID{}, storeErr("encode taste id", err)
	}
	if _, err := q.ExecContext(ctx, `
INSERT INTO taste_ids (id, user_id, primary_archetype, review_count, last_computed_at, payload)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	primary_archetype=excluded.primary_archetype,
	review_count=excluded.review_count,
	last_computed_at=excluded.last_computed_at,
	payload=excluded.payload;`,
		t.ID, t.UserID, string(t.PrimaryArchetype), t.ReviewCount, formatTime(t.LastComputedAt), string(payload)); err != nil {
		return model.TasteID{}, storeErr("upsert taste id", err)
	}
	return t, nil
}

// AppendSnapshot stores a snapshot. Missing ids are generated.
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, snap model.TasteIDSnapshot) error {
	defer observe("append_snapshot", time.Now())
	_, err := s.appendSnapshot(ctx, s.db, snap)
	return err
}

func (s *SQLiteStore) appendSnapshot(ctx context.Context, q queryer, snap model.TasteIDSnapshot) (model.TasteIDSnapshot, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if snap.ID == "" {
		snap.ID = s.ids.next(snap.CreatedAt)
	}
	payload, err := json.Marshal(snap.TasteID)
	if err != nil {
		return model.TasteIDSnapshot{}, storeErr("encode snapshot", err)
	}
	if _, err := q.ExecContext(ctx, `
INSERT INTO taste_id_snapshots (id, taste_id_id, user_id, created_at, payload)
VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.TasteIDID, snap.UserID, formatTime(snap.CreatedAt), string(payload)); err != nil {
		return model.TasteIDSnapshot{}, storeErr("append snapshot", err)
	}
	return snap, nil
}

// SaveTasteID upserts the TasteID and appends its snapshot in one transaction.
func (s *SQLiteStore) SaveTasteID(ctx context.Context, t model.TasteID) (model.TasteID, model.TasteIDSnapshot, error) {
	defer observe("save_taste_id", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TasteID{}, model.TasteIDSnapshot{}, storeErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	saved, err := upsertTasteID(ctx, tx, t)
	if err != nil {
		return model.TasteID{}, model.TasteIDSnapshot{}, err
	}
	snap, err := s.appendSnapshot(ctx, tx, newSnapshot(saved))
	if err != nil {
		return model.TasteID{}, model.TasteIDSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.TasteID{}, model.TasteIDSnapshot{}, storeErr("commit", err)
	}
	return saved, snap, nil
}

// ListTasteIDs returns every TasteID ordered by user id.
func (s *SQLiteStore) ListTasteIDs(ctx context.Context) ([]model.TasteID, error) {
	defer observe("list_taste_ids", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, payload FROM taste_ids ORDER BY user_id`)
	if err != nil {
		return nil, storeErr("list taste ids", err)
	}
	defer rows.Close()
	var out []model.TasteID
	for rows.Next() {
		var id, user, payload string
		if err := rows.Scan(&id, &user, &payload); err != nil {
			return nil, storeErr("scan taste id", err)
		}
		var t model.TasteID
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, storeErr("decode taste id", err)
		}
		t.ID, t.UserID = id, user
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate taste ids", err)
	}
	return out, nil
}

// Snapshots returns a user's snapshots newest first.
func (s *SQLiteStore) Snapshots(ctx context.Context, userID string, limit int) ([]model.TasteIDSnapshot, error) {
	defer observe("snapshots", time.Now())
	query := `SELECT id, taste_id_id, user_id, created_at, payload FROM taste_id_snapshots
WHERE user_id = ? ORDER BY id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query snapshots", err)
	}
	defer rows.Close()

	var out []model.TasteIDSnapshot
	for rows.Next() {
		var (
			snap    model.TasteIDSnapshot
			created string
			payload string
		)
		if err := rows.Scan(&snap.ID, &snap.TasteIDID, &snap.UserID, &created, &payload); err != nil {
			return nil, storeErr("scan snapshot", err)
		}
		if snap.CreatedAt, err = parseTime(created); err != nil {
			return nil, storeErr("parse snapshot time", err)
		}
		if err := json.Unmarshal([]byte(payload), &snap.TasteID); err != nil {
			return nil, storeErr("decode snapshot", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate snapshots", err)
	}
	return out, nil
}

// GetTasteMatch returns the cached match of a canonical pair.
func (s *SQLiteStore) GetTasteMatch(ctx context.Context, user1ID, user2ID string) (model.TasteMatch, error) {
	defer observe("get_taste_match", time.Now())
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM taste_matches WHERE user1_id = ? AND user2_id = ?`, user1ID, user2ID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TasteMatch{}, fmt.Errorf("%w: match %s/%s", model.ErrNotFound, user1ID, user2ID)
	}
	if err != nil {
		return model.TasteMatch{}, storeErr("get match", err)
	}
	var m model.TasteMatch
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return model.TasteMatch{}, storeErr("decode match", err)
	}
	return m, nil
}

// UpsertTasteMatch stores a match under its canonical pair.
func (s *SQLiteStore) UpsertTasteMatch(ctx context.Context, m model.TasteMatch) error {
	defer observe("upsert_taste_match", time.Now())
	if m.User1ID == "" || m.User1ID >= m.User2ID {
		return fmt.Errorf("%w: %q/%q", ErrInvalidPair, m.User1ID, m.User2ID)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return storeErr("encode match", err)
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO taste_matches (user1_id, user2_id, overall_score, match_type, updated_at, payload)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user1_id, user2_id) DO UPDATE SET
	overall_score=excluded.overall_score,
	match_type=excluded.match_type,
	updated_at=excluded.updated_at,
	payload=excluded.payload;`,
		m.User1ID, m.User2ID, m.OverallScore, string(m.MatchType), formatTime(m.UpdatedAt), string(payload)); err != nil {
		return storeErr("upsert match", err)
	}
	return nil
}

// Stats counts stored rows.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM reviews),
	(SELECT COUNT(DISTINCT user_id) FROM reviews),
	(SELECT COUNT(*) FROM taste_ids),
	(SELECT COUNT(*) FROM taste_id_snapshots),
	(SELECT COUNT(*) FROM taste_matches)`).Scan(&st.Reviews, &st.Reviewers, &st.TasteIDs, &st.Snapshots, &st.Matches)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	return st, nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
