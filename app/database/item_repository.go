package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, important, dismissed, source_label, pub_date, guid, title, link, description, categories`

type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// ExistsByDedupKey reports whether any item, from any source, already uses dedupKey
func (r *ItemRepo) ExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM rss_feed_items WHERE guid = ? LIMIT 1`, dedupKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return true, nil
}

// InsertItem stores a new item. It returns false without error when another
// writer already stored the same dedup key.
func (r *ItemRepo) InsertItem(ctx context.Context, item FeedItem) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO rss_feed_items (
			important, dismissed, source_label, pub_date, guid,
			title, link, description, categories
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (guid) DO NOTHING
	`, item.Important, item.Dismissed, item.SourceLabel, item.PublishedAt, item.DedupKey,
		item.Title, item.Link, item.Description, item.Categories)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read inserted rows: %w", err)
	}

	return affected > 0, nil
}

// GetDashboardItems returns up to limit important undismissed items followed
// by up to limit most recent items overall. The lists are concatenated as-is,
// so an item present in both appears twice.
func (r *ItemRepo) GetDashboardItems(ctx context.Context, limit int) ([]FeedItem, error) {
	important, err := r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM rss_feed_items
		WHERE important = 1 AND dismissed = 0
		ORDER BY pub_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get important items: %w", err)
	}

	recent, err := r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM rss_feed_items
		ORDER BY pub_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items: %w", err)
	}

	items := make([]FeedItem, 0, len(important)+len(recent))
	items = append(items, important...)
	items = append(items, recent...)
	return items, nil
}

// DismissItem marks an item dismissed. It returns false if no such item exists.
func (r *ItemRepo) DismissItem(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE rss_feed_items SET dismissed = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to dismiss item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read dismissed rows: %w", err)
	}

	return affected > 0, nil
}

func (r *ItemRepo) GetItemCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rss_feed_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]FeedItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []FeedItem{}
	for rows.Next() {
		var item FeedItem
		err := rows.Scan(
			&item.ID, &item.Important, &item.Dismissed, &item.SourceLabel, &item.PublishedAt,
			&item.DedupKey, &item.Title, &item.Link, &item.Description, &item.Categories,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}
