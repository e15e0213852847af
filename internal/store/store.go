package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rohhhan8/major-project-4th-year/internal/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when saving an immutable record whose id is taken.
	ErrExists = errors.New("already exists")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS video_chunks (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		difficulty TEXT NOT NULL DEFAULT '',
		style TEXT NOT NULL DEFAULT '',
		granularity TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL DEFAULT '',
		start_seconds REAL NOT NULL DEFAULT 0,
		end_seconds REAL NOT NULL DEFAULT 0,
		channel TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_video_chunks_video ON video_chunks(video_id, chunk_index);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL,
		topic_name TEXT NOT NULL DEFAULT '',
		total_time_seconds REAL NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS question_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL DEFAULT '',
		pillar TEXT NOT NULL,
		difficulty TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL,
		time_taken_seconds REAL NOT NULL,
		ideal_time_seconds REAL NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		FOREIGN KEY (attempt_id) REFERENCES quiz_attempts(id)
	);

	CREATE TABLE IF NOT EXISTS diagnoses (
		attempt_id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		profile TEXT NOT NULL,
		percentage REAL NOT NULL,
		correct INTEGER NOT NULL,
		total INTEGER NOT NULL,
		weakest_pillar TEXT NOT NULL DEFAULT '',
		feedback TEXT NOT NULL DEFAULT '',
		rushed_ratio REAL NOT NULL DEFAULT 0,
		time_ratio REAL NOT NULL DEFAULT 0,
		pillar_stats TEXT NOT NULL DEFAULT '{}',
		tags TEXT NOT NULL DEFAULT '[]',
		cluster_id INTEGER,
		cluster_profile TEXT,
		cluster_distance REAL,
		cluster_confidence REAL,
		degraded INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL DEFAULT '',
		markdown TEXT NOT NULL,
		segments_total INTEGER NOT NULL,
		segments_failed TEXT NOT NULL DEFAULT '[]',
		timed_out INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_video ON notes(video_id, created_at);

	CREATE TABLE IF NOT EXISTS index_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertChunks inserts or replaces chunks in a single transaction.
func (s *Store) UpsertChunks(chunks []model.VideoChunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO video_chunks (id, video_id, chunk_index, text, embedding, difficulty, style, granularity,
			title, link, timestamp, start_seconds, end_seconds, channel)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			video_id = excluded.video_id, chunk_index = excluded.chunk_index, text = excluded.text,
			embedding = excluded.embedding, difficulty = excluded.difficulty, style = excluded.style,
			granularity = excluded.granularity, title = excluded.title, link = excluded.link,
			timestamp = excluded.timestamp, start_seconds = excluded.start_seconds,
			end_seconds = excluded.end_seconds, channel = excluded.channel`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		_, err := stmt.Exec(
			c.ID, c.VideoID, c.ChunkIndex, c.Text, model.EncodeEmbedding(c.Embedding),
			c.Metadata.Difficulty, c.Metadata.Style, c.Metadata.Granularity,
			c.Title, c.Link, c.Timestamp, c.StartSeconds, c.EndSeconds, c.Channel,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

const chunkColumns = `id, video_id, chunk_index, text, embedding, difficulty, style, granularity,
	title, link, timestamp, start_seconds, end_seconds, channel`

func scanChunk(rows *sql.Rows) (model.VideoChunk, error) {
	var c model.VideoChunk
	var blob []byte
	if err := rows.Scan(&c.ID, &c.VideoID, &c.ChunkIndex, &c.Text, &blob,
		&c.Metadata.Difficulty, &c.Metadata.Style, &c.Metadata.Granularity,
		&c.Title, &c.Link, &c.Timestamp, &c.StartSeconds, &c.EndSeconds, &c.Channel); err != nil {
		return c, err
	}
	vec, err := model.DecodeEmbedding(blob)
	if err != nil {
		return c, fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	c.Embedding = vec
	return c, nil
}

// ListChunks returns every indexed chunk ordered by video and position.
func (s *Store) ListChunks() ([]model.VideoChunk, error) {
	rows, err := s.db.Query(`SELECT ` + chunkColumns + ` FROM video_chunks ORDER BY video_id, chunk_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.VideoChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ChunkCount returns the number of indexed chunks.
func (s *Store) ChunkCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM video_chunks`).Scan(&count)
	return count, err
}

// VideoTranscript joins the stored chunk texts of a video in order and
// returns them with the video title.
func (s *Store) VideoTranscript(videoID string) (title, transcript string, err error) {
	rows, err := s.db.Query(
		`SELECT title, text FROM video_chunks WHERE video_id = ? ORDER BY chunk_index`, videoID,
	)
	if err != nil {
		return "", "", err
	}
	defer rows.Close()
	var texts []string
	for rows.Next() {
		var t, text string
		if err := rows.Scan(&t, &text); err != nil {
			return "", "", err
		}
		if title == "" {
			title = t
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return "", "", err
	}
	if len(texts) == 0 {
		return "", "", fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	return title, joinTranscript(texts), nil
}

func joinTranscript(texts []string) string {
	var n int
	for _, t := range texts {
		n += len(t) + 2
	}
	buf := make([]byte, 0, n)
	for i, t := range texts {
		if i > 0 {
			buf = append(buf, "\n\n"...)
		}
		buf = append(buf, t...)
	}
	return string(buf)
}

// SaveAttempt stores an attempt and its results. Attempts are immutable,
// so saving an existing id fails.
func (s *Store) SaveAttempt(a model.QuizAttempt) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM quiz_attempts WHERE id = ?`, a.ID).Scan(&n); err != nil {
		return fmt.Errorf("check attempt %s: %w", a.ID, err)
	}
	if n > 0 {
		return fmt.Errorf("attempt %s: %w", a.ID, ErrExists)
	}
	_, err = tx.Exec(
		`INSERT INTO quiz_attempts (id, topic_id, topic_name, total_time_seconds, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.TopicID, a.TopicName, a.TotalTimeSeconds, a.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt %s: %w", a.ID, err)
	}
	for i, r := range a.Results {
		tags, err := json.Marshal(nonNil(r.Tags))
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO question_results (attempt_id, position, question_id, pillar, difficulty, is_correct,
				time_taken_seconds, ideal_time_seconds, tags)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, i, r.QuestionID, r.Pillar, r.Difficulty, r.IsCorrect, r.TimeTakenSeconds, r.IdealTimeSeconds, string(tags),
		)
		if err != nil {
			return fmt.Errorf("insert result %d of attempt %s: %w", i, a.ID, err)
		}
	}
	return tx.Commit()
}

// GetAttempt returns an attempt with its results in submission order.
func (s *Store) GetAttempt(id string) (model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := s.db.QueryRow(
		`SELECT id, topic_id, topic_name, total_time_seconds, submitted_at FROM quiz_attempts WHERE id = ?`, id,
	).Scan(&a.ID, &a.TopicID, &a.TopicName, &a.TotalTimeSeconds, &a.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, err
	}

	rows, err := s.db.Query(
		`SELECT question_id, pillar, difficulty, is_correct, time_taken_seconds, ideal_time_seconds, tags
		 FROM question_results WHERE attempt_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return a, err
	}
	defer rows.Close()
	for rows.Next() {
		var r model.QuestionResult
		var tags string
		if err := rows.Scan(&r.QuestionID, &r.Pillar, &r.Difficulty, &r.IsCorrect, &r.TimeTakenSeconds, &r.IdealTimeSeconds, &tags); err != nil {
			return a, err
		}
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return a, fmt.Errorf("decode tags: %w", err)
		}
		if len(r.Tags) == 0 {
			r.Tags = nil
		}
		a.Results = append(a.Results, r)
	}
	return a, rows.Err()
}

// SaveDiagnosis stores the diagnosis of an attempt. A stored diagnosis is
// never replaced; saving a second one for the same attempt returns ErrExists.
func (s *Store) SaveDiagnosis(d model.Diagnosis) error {
	stats, err := json.Marshal(d.PillarStats)
	if err != nil {
		return fmt.Errorf("encode pillar stats: %w", err)
	}
	tags, err := json.Marshal(nonNil(d.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var clusterID sql.NullInt64
	var clusterProfile sql.NullString
	var clusterDistance, clusterConfidence sql.NullFloat64
	if d.Cluster != nil {
		clusterID = sql.NullInt64{Int64: int64(d.Cluster.ClusterID), Valid: true}
		clusterProfile = sql.NullString{String: string(d.Cluster.Profile), Valid: true}
		clusterDistance = sql.NullFloat64{Float64: d.Cluster.Distance, Valid: true}
		clusterConfidence = sql.NullFloat64{Float64: d.Cluster.Confidence, Valid: true}
	}
	res, err := s.db.Exec(
		`INSERT INTO diagnoses (attempt_id, topic_id, topic, profile, percentage, correct, total, weakest_pillar,
			feedback, rushed_ratio, time_ratio, pillar_stats, tags, cluster_id, cluster_profile, cluster_distance,
			cluster_confidence, degraded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(attempt_id) DO NOTHING`,
		d.AttemptID, d.TopicID, d.Topic, d.Profile, d.Percentage, d.Correct, d.Total, d.WeakestPillar,
		d.Feedback, d.RushedRatio, d.TimeRatio, string(stats), string(tags), clusterID, clusterProfile,
		clusterDistance, clusterConfidence, d.Degraded, d.CreatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("diagnosis of attempt %s: %w", d.AttemptID, ErrExists)
	}
	return nil
}

const diagnosisColumns = `attempt_id, topic_id, topic, profile, percentage, correct, total, weakest_pillar,
	feedback, rushed_ratio, time_ratio, pillar_stats, tags, cluster_id, cluster_profile, cluster_distance,
	cluster_confidence, degraded, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagnosis(row rowScanner) (model.Diagnosis, error) {
	var d model.Diagnosis
	var stats, tags string
	var clusterID sql.NullInt64
	var clusterProfile sql.NullString
	var clusterDistance, clusterConfidence sql.NullFloat64
	err := row.Scan(&d.AttemptID, &d.TopicID, &d.Topic, &d.Profile, &d.Percentage, &d.Correct, &d.Total,
		&d.WeakestPillar, &d.Feedback, &d.RushedRatio, &d.TimeRatio, &stats, &tags, &clusterID,
		&clusterProfile, &clusterDistance, &clusterConfidence, &d.Degraded, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(stats), &d.PillarStats); err != nil {
		return d, fmt.Errorf("decode pillar stats: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return d, fmt.Errorf("decode tags: %w", err)
	}
	if len(d.Tags) == 0 {
		d.Tags = nil
	}
	if clusterID.Valid {
		d.Cluster = &model.ClusterSignal{
			ClusterID:  int(clusterID.Int64),
			Profile:    model.Profile(clusterProfile.String),
			Distance:   clusterDistance.Float64,
			Confidence: clusterConfidence.Float64,
		}
		d.Cluster.Agrees = d.Cluster.Profile == d.Profile
	}
	return d, nil
}

// GetDiagnosis returns the diagnosis of an attempt, or nil if there is none.
func (s *Store) GetDiagnosis(attemptID string) (*model.Diagnosis, error) {
	d, err := scanDiagnosis(s.db.QueryRow(`SELECT `+diagnosisColumns+` FROM diagnoses WHERE attempt_id = ?`, attemptID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDiagnoses returns stored diagnoses, newest first. An empty topic
// returns every topic.
func (s *Store) ListDiagnoses(topicID string) ([]model.Diagnosis, error) {
	query := `SELECT ` + diagnosisColumns + ` FROM diagnoses WHERE 1=1`
	var args []any
	if topicID != "" {
		query += ` AND topic_id = ?`
		args = append(args, topicID)
	}
	query += ` ORDER BY created_at DESC, attempt_id`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveNotes stores a generated notes document.
func (s *Store) SaveNotes(n model.NotesResult) error {
	failed, err := json.Marshal(nonNil(n.SegmentsFailed))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO notes (id, video_id, markdown, segments_total, segments_failed, timed_out, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.VideoID, n.Markdown, n.SegmentsTotal, string(failed), n.TimedOut, n.CreatedAt,
	)
	return err
}

// LatestNotes returns the most recent complete notes for a video, or nil
// when only partial or no notes exist.
func (s *Store) LatestNotes(videoID string) (*model.NotesResult, error) {
	var n model.NotesResult
	var failed string
	err := s.db.QueryRow(
		`SELECT id, video_id, markdown, segments_total, segments_failed, timed_out, created_at
		 FROM notes WHERE video_id = ? AND timed_out = 0 AND segments_failed = '[]'
		 ORDER BY created_at DESC LIMIT 1`, videoID,
	).Scan(&n.ID, &n.VideoID, &n.Markdown, &n.SegmentsTotal, &failed, &n.TimedOut, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(failed), &n.SegmentsFailed); err != nil {
		return nil, fmt.Errorf("decode failed segments: %w", err)
	}
	return &n, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
