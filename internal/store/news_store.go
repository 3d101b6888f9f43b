package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/domain"
)

// SQLNewsStore is the sqlite-backed NewsStore.
type SQLNewsStore struct {
	db  *DB
	log zerolog.Logger
}

func NewSQLNewsStore(db *DB, log zerolog.Logger) *SQLNewsStore {
	return &SQLNewsStore{db: db, log: log.With().Str("repo", "news").Logger()}
}

func (r *SQLNewsStore) InsertIfNew(ctx context.Context, a domain.NewsArticle) (bool, error) {
	mentioned, err := json.Marshal(a.MentionedStocks)
	if err != nil {
		return false, fmt.Errorf("marshal mentioned stocks: %w", err)
	}
	now := timeStr(time.Now())
	res, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO news_articles (source, url, published_at, title, body, mentioned_stocks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		a.Source, a.URL, timeStr(a.PublishedAt), a.Title, a.Body, string(mentioned), now, now)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLNewsStore) Unclassified(ctx context.Context, limit int) ([]domain.NewsArticle, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, source, url, published_at, title, body, mentioned_stocks, classification, created_at, updated_at
		FROM news_articles WHERE classification IS NULL AND is_deleted = 0
		ORDER BY published_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unclassified: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

func (r *SQLNewsStore) SetClassification(ctx context.Context, articleID int64, c domain.Classification) error {
	c.ClassifiedAt = time.Now().UTC()
	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	_, err = r.db.Conn().ExecContext(ctx, `
		UPDATE news_articles SET classification = ?, updated_at = ? WHERE id = ?`,
		string(blob), timeStr(time.Now()), articleID)
	if err != nil {
		return fmt.Errorf("set classification for article %d: %w", articleID, err)
	}
	return nil
}

func (r *SQLNewsStore) RecentForStock(ctx context.Context, symbol string, since time.Time) ([]domain.NewsArticle, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, source, url, published_at, title, body, mentioned_stocks, classification, created_at, updated_at
		FROM news_articles
		WHERE published_at >= ? AND is_deleted = 0 AND mentioned_stocks LIKE '%' || ? || '%'
		ORDER BY published_at DESC`, timeStr(since), symbol)
	if err != nil {
		return nil, fmt.Errorf("recent for stock: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}

	// the LIKE filter above is a coarse pre-filter (cheap index-free scan
	// avoidance); confirm exact membership here since mentioned_stocks is
	// a JSON array, not a delimited string.
	out := articles[:0]
	for _, a := range articles {
		for _, s := range a.MentionedStocks {
			if s == symbol {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func scanArticles(rows *sql.Rows) ([]domain.NewsArticle, error) {
	var out []domain.NewsArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArticle(row scanner) (*domain.NewsArticle, error) {
	var a domain.NewsArticle
	var publishedAt, mentioned, createdAt, updatedAt string
	var classification sql.NullString
	if err := row.Scan(&a.ID, &a.Source, &a.URL, &publishedAt, &a.Title, &a.Body, &mentioned, &classification, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mentioned), &a.MentionedStocks); err != nil {
		return nil, fmt.Errorf("unmarshal mentioned stocks: %w", err)
	}
	if classification.Valid {
		var c domain.Classification
		if err := json.Unmarshal([]byte(classification.String), &c); err != nil {
			return nil, fmt.Errorf("unmarshal classification: %w", err)
		}
		a.Classification = &c
	}
	return &a, nil
}
