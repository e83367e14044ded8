// Package store persists comments, analyses and their summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore handles database operations.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Write transactions take the database lock up front, so analyses are
// committed in the order their creation timestamps are assigned.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertComments stores comments, replacing existing rows with the same id.
func (s *SQLiteStore) UpsertComments(ctx context.Context, comments []model.Comment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comments (comment_id, video_id, parent_id, author, text, like_count, reply_count, published_at, is_reply)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(comment_id) DO UPDATE SET
			video_id = excluded.video_id,
			parent_id = excluded.parent_id,
			author = excluded.author,
			text = excluded.text,
			like_count = excluded.like_count,
			reply_count = excluded.reply_count,
			published_at = excluded.published_at,
			is_reply = excluded.is_reply`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range comments {
		if c.ID == "" || c.VideoID == "" {
			return 0, fmt.Errorf("upsert comment: id and video_id are required")
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.VideoID, c.ParentID, c.Author, c.Text, c.LikeCount, c.ReplyCount,
			formatTime(c.PublishedAt), c.IsReply || c.ParentID != "",
		); err != nil {
			return 0, fmt.Errorf("upsert comment %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(comments), nil
}

// Comments returns every stored comment of a video, most liked first, then
// oldest first.
func (s *SQLiteStore) Comments(ctx context.Context, videoID string) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id, video_id, parent_id, author, text, like_count, reply_count, published_at, is_reply
		FROM comments
		WHERE video_id = ?
		ORDER BY like_count DESC, published_at ASC, comment_id ASC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var published string
		if err := rows.Scan(&c.ID, &c.VideoID, &c.ParentID, &c.Author, &c.Text,
			&c.LikeCount, &c.ReplyCount, &published, &c.IsReply); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.PublishedAt = parseTime(published)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// SaveAnalysis writes an analysis, its per-item labels and its summaries in
// one transaction. The previous summary rows of the video are replaced in the
// same transaction, so readers see either the old summary or the new one.
// The returned analysis carries the assigned id and creation time.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a model.Analysis, labels []model.LabelRecord, summary model.Summary) (model.Analysis, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return a, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	a.CreatedAt = s.now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (video_id, created_at, model, total_items, classified_items)
		VALUES (?, ?, ?, ?, ?)`,
		a.VideoID, formatTime(a.CreatedAt), a.Model, a.TotalItems, a.ClassifiedItems)
	if err != nil {
		return a, fmt.Errorf("insert analysis: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return a, fmt.Errorf("analysis id: %w", err)
	}

	labelStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comment_labels (analysis_id, comment_id, video_id, labels_json, top_label, sentiment)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return a, fmt.Errorf("prepare labels: %w", err)
	}
	defer labelStmt.Close()

	for _, l := range labels {
		topics := l.Topics
		if topics == nil {
			topics = []string{}
		}
		encoded, err := json.Marshal(topics)
		if err != nil {
			return a, fmt.Errorf("encode labels: %w", err)
		}
		l.Topics = topics
		if _, err := labelStmt.ExecContext(ctx, a.ID, l.CommentID, a.VideoID, string(encoded), l.TopLabel(), string(l.Sentiment)); err != nil {
			return a, fmt.Errorf("insert label %s: %w", l.CommentID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM topic_summaries WHERE video_id = ?`, a.VideoID); err != nil {
		return a, fmt.Errorf("clear topic summaries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sentiment_summaries WHERE video_id = ?`, a.VideoID); err != nil {
		return a, fmt.Errorf("clear sentiment summaries: %w", err)
	}

	for i, t := range summary.Topics {
		var quoteID, quoteText, quotePublished sql.NullString
		var quoteLikes sql.NullInt64
		if t.Quote != nil {
			quoteID = sql.NullString{String: t.Quote.CommentID, Valid: true}
			quoteText = sql.NullString{String: t.Quote.Text, Valid: true}
			quoteLikes = sql.NullInt64{Int64: int64(t.Quote.LikeCount), Valid: true}
			quotePublished = sql.NullString{String: formatTime(t.Quote.PublishedAt), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO topic_summaries (video_id, topic_id, analysis_id, position, count, share,
				quote_comment_id, quote_text, quote_likes, quote_published_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.VideoID, t.TopicID, a.ID, i, t.Count, t.Share,
			quoteID, quoteText, quoteLikes, quotePublished); err != nil {
			return a, fmt.Errorf("insert topic summary %s: %w", t.TopicID, err)
		}
	}

	for _, row := range summary.Sentiment {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sentiment_summaries (video_id, sentiment, analysis_id, count, share)
			VALUES (?, ?, ?, ?, ?)`,
			a.VideoID, string(row.Sentiment), a.ID, row.Count, row.Share); err != nil {
			return a, fmt.Errorf("insert sentiment summary %s: %w", row.Sentiment, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return a, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// LatestAnalysis returns the most recent analysis of a video with its
// summaries. It returns model.ErrNotFound when the video has none.
func (s *SQLiteStore) LatestAnalysis(ctx context.Context, videoID string) (*model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	a, err := latestAnalysis(ctx, tx, videoID)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{Analysis: *a}

	topicRows, err := tx.QueryContext(ctx, `
		SELECT topic_id, count, share, quote_comment_id, quote_text, quote_likes, quote_published_at
		FROM topic_summaries
		WHERE video_id = ? AND analysis_id = ?
		ORDER BY position ASC`, videoID, a.ID)
	if err != nil {
		return nil, fmt.Errorf("query topic summaries: %w", err)
	}
	defer topicRows.Close()

	snap.Topics = []model.TopicSummary{}
	for topicRows.Next() {
		var t model.TopicSummary
		var quoteID, quoteText, quotePublished sql.NullString
		var quoteLikes sql.NullInt64
		if err := topicRows.Scan(&t.TopicID, &t.Count, &t.Share, &quoteID, &quoteText, &quoteLikes, &quotePublished); err != nil {
			return nil, fmt.Errorf("scan topic summary: %w", err)
		}
		if quoteID.Valid {
			t.Quote = &model.Quote{
				CommentID:   quoteID.String,
				Text:        quoteText.String,
				LikeCount:   int(quoteLikes.Int64),
				PublishedAt: parseTime(quotePublished.String),
			}
		}
		snap.Topics = append(snap.Topics, t)
	}
	if err := topicRows.Err(); err != nil {
		return nil, err
	}

	byValue := make(map[model.Sentiment]model.SentimentSummary, 3)
	sentRows, err := tx.QueryContext(ctx, `
		SELECT sentiment, count, share
		FROM sentiment_summaries
		WHERE video_id = ? AND analysis_id = ?`, videoID, a.ID)
	if err != nil {
		return nil, fmt.Errorf("query sentiment summaries: %w", err)
	}
	defer sentRows.Close()
	for sentRows.Next() {
		var row model.SentimentSummary
		var value string
		if err := sentRows.Scan(&value, &row.Count, &row.Share); err != nil {
			return nil, fmt.Errorf("scan sentiment summary: %w", err)
		}
		row.Sentiment = model.Sentiment(value)
		byValue[row.Sentiment] = row
	}
	if err := sentRows.Err(); err != nil {
		return nil, err
	}
	for _, value := range model.Sentiments {
		row, ok := byValue[value]
		if !ok {
			row = model.SentimentSummary{Sentiment: value}
		}
		snap.Sentiment = append(snap.Sentiment, row)
	}

	return snap, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func latestAnalysis(ctx context.Context, q queryer, videoID string) (*model.Analysis, error) {
	var a model.Analysis
	var created string
	err := q.QueryRowContext(ctx, `
		SELECT analysis_id, video_id, created_at, model, total_items, classified_items
		FROM analyses
		WHERE video_id = ?
		ORDER BY created_at DESC, analysis_id DESC
		LIMIT 1`, videoID).Scan(&a.ID, &a.VideoID, &created, &a.Model, &a.TotalItems, &a.ClassifiedItems)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for %s: %w", videoID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest analysis: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// Analyses returns the analysis history of a video, newest first.
func (s *SQLiteStore) Analyses(ctx context.Context, videoID string) ([]model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT analysis_id, video_id, created_at, model, total_items, classified_items
		FROM analyses
		WHERE video_id = ?
		ORDER BY created_at DESC, analysis_id DESC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		var a model.Analysis
		var created string
		if err := rows.Scan(&a.ID, &a.VideoID, &created, &a.Model, &a.TotalItems, &a.ClassifiedItems); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Labels returns the per-item labels of one analysis ordered by comment id.
func (s *SQLiteStore) Labels(ctx context.Context, analysisID int64) ([]model.LabelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id, video_id, analysis_id, labels_json, sentiment
		FROM comment_labels
		WHERE analysis_id = ?
		ORDER BY comment_id ASC`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var out []model.LabelRecord
	for rows.Next() {
		var l model.LabelRecord
		var encoded, sentiment string
		if err := rows.Scan(&l.CommentID, &l.VideoID, &l.AnalysisID, &encoded, &sentiment); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &l.Topics); err != nil {
			return nil, fmt.Errorf("decode labels of %s: %w", l.CommentID, err)
		}
		l.Sentiment = model.Sentiment(sentiment)
		out = append(out, l)
	}
	return out, rows.Err()
}

// TopicQuotes returns the most liked comments of the latest analysis carrying
// the topic, newest first among equal likes.
func (s *SQLiteStore) TopicQuotes(ctx context.Context, videoID, topicID string, limit int) ([]model.CommentView, error) {
	return s.FilteredComments(ctx, videoID, model.CommentFilter{TopicID: topicID, Limit: limit})
}

// FilteredComments returns labelled comments of the latest analysis matching
// the filter, most liked first, newest first among equal likes. It returns
// model.ErrNotFound when the video has no analysis.
func (s *SQLiteStore) FilteredComments(ctx context.Context, videoID string, f model.CommentFilter) ([]model.CommentView, error) {
	a, err := latestAnalysis(ctx, s.db, videoID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT c.comment_id, c.text, c.author, c.like_count, c.published_at, l.labels_json, l.sentiment
		FROM comment_labels l
		JOIN comments c ON c.comment_id = l.comment_id
		WHERE l.analysis_id = ?`
	args := []any{a.ID}

	if f.TopicID != "" {
		query += ` AND l.labels_json LIKE ? ESCAPE '\'`
		args = append(args, `%"`+escapeLike(f.TopicID)+`"%`)
	}
	if f.Sentiment != "" {
		query += ` AND l.sentiment = ?`
		args = append(args, string(f.Sentiment))
	}
	query += ` ORDER BY c.like_count DESC, c.published_at DESC, c.comment_id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query filtered comments: %w", err)
	}
	defer rows.Close()

	out := []model.CommentView{}
	for rows.Next() {
		var v model.CommentView
		var published, encoded, sentiment string
		if err := rows.Scan(&v.ID, &v.Text, &v.Author, &v.LikeCount, &published, &encoded, &sentiment); err != nil {
			return nil, fmt.Errorf("scan filtered comment: %w", err)
		}
		v.PublishedAt = parseTime(published)
		if err := json.Unmarshal([]byte(encoded), &v.Topics); err != nil {
			return nil, fmt.Errorf("decode labels of %s: %w", v.ID, err)
		}
		v.Sentiment = model.Sentiment(sentiment)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Videos lists every video with stored comments or analyses.
func (s *SQLiteStore) Videos(ctx context.Context) ([]model.VideoInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.video_id,
			(SELECT COUNT(*) FROM comments c WHERE c.video_id = v.video_id),
			(SELECT a.analysis_id FROM analyses a WHERE a.video_id = v.video_id ORDER BY a.created_at DESC, a.analysis_id DESC LIMIT 1),
			(SELECT a.created_at FROM analyses a WHERE a.video_id = v.video_id ORDER BY a.created_at DESC, a.analysis_id DESC LIMIT 1)
		FROM (SELECT video_id FROM comments UNION SELECT video_id FROM analyses) v
		ORDER BY v.video_id`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var out []model.VideoInfo
	for rows.Next() {
		var v model.VideoInfo
		var analysisID sql.NullInt64
		var analyzedAt sql.NullString
		if err := rows.Scan(&v.VideoID, &v.Comments, &analysisID, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		if analysisID.Valid {
			id := analysisID.Int64
			v.LatestAnalysis = &id
		}
		if analyzedAt.Valid {
			at := parseTime(analyzedAt.String)
			v.AnalyzedAt = &at
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteAnalyses removes every analysis, label and summary of a video.
// Stored comments are kept.
func (s *SQLiteStore) DeleteAnalyses(ctx context.Context, videoID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM topic_summaries WHERE video_id = ?`,
		`DELETE FROM sentiment_summaries WHERE video_id = ?`,
		`DELETE FROM comment_labels WHERE video_id = ?`,
		`DELETE FROM analyses WHERE video_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, videoID); err != nil {
			return fmt.Errorf("delete analyses: %w", err)
		}
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
