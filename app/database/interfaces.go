package database

import "context"

type FeedRepository interface {
	ListSources(ctx context.Context) ([]FeedSource, error)
	GetSourceCount(ctx context.Context) (int, error)

	CreateSource(ctx context.Context, label, url string, important bool) (*FeedSource, error)
	UpsertSource(ctx context.Context, label, url string, important bool) (*FeedSource, error)
}

type ItemRepository interface {
	GetDashboardItems(ctx context.Context, limit int) ([]FeedItem, error)
	GetItemCount(ctx context.Context) (int, error)

	ExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error)
	InsertItem(ctx context.Context, item FeedItem) (bool, error)
	DismissItem(ctx context.Context, id int64) (bool, error)
}

type TargetRepository interface {
	ListTargets(ctx context.Context) ([]ProbeTarget, error)
	GetTargetCount(ctx context.Context) (int, error)

	CreateTarget(ctx context.Context, label, address string) (*ProbeTarget, error)
	UpsertTarget(ctx context.Context, label, address string) (*ProbeTarget, error)
	UpdateObservation(ctx context.Context, id int64, rtt int64, lastError string, at int64) error
}
