package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ FeedRepository = (*FeedRepo)(nil)

type FeedRepo struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

func (r *FeedRepo) ListSources(ctx context.Context) ([]FeedSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, url, important
		FROM rss_feeds
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed sources: %w", err)
	}
	defer rows.Close()

	var sources []FeedSource
	for rows.Next() {
		var source FeedSource
		if err := rows.Scan(&source.ID, &source.Label, &source.URL, &source.Important); err != nil {
			return nil, fmt.Errorf("failed to scan feed source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed source rows: %w", err)
	}

	return sources, nil
}

func (r *FeedRepo) CreateSource(ctx context.Context, label, url string, important bool) (*FeedSource, error) {
	source := FeedSource{Label: label, URL: url, Important: important}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO rss_feeds (label, url, important)
		VALUES (?, ?, ?)
		RETURNING id
	`, label, url, important).Scan(&source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed source: %w", err)
	}

	return &source, nil
}

// UpsertSource matches an existing source by url and refreshes its label and
// importance, otherwise inserts it. Already ingested items keep the values
// they were stored with.
func (r *FeedRepo) UpsertSource(ctx context.Context, label, url string, important bool) (*FeedSource, error) {
	existing, err := r.getSourceByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return r.CreateSource(ctx, label, url, important)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE rss_feeds
		SET label = ?, important = ?
		WHERE id = ?
	`, label, important, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update feed source: %w", err)
	}

	existing.Label = label
	existing.Important = important
	return existing, nil
}

func (r *FeedRepo) getSourceByURL(ctx context.Context, url string) (*FeedSource, error) {
	var source FeedSource
	err := r.db.QueryRowContext(ctx, `
		SELECT id, label, url, important
		FROM rss_feeds
		WHERE url = ?
		ORDER BY id
		LIMIT 1
	`, url).Scan(&source.ID, &source.Label, &source.URL, &source.Important)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed source by url: %w", err)
	}

	return &source, nil
}

func (r *FeedRepo) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rss_feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed source count: %w", err)
	}
	return count, nil
}
