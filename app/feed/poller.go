package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/work-dash/app/database"
)

type SourceStore interface {
	ListSources(ctx context.Context) ([]database.FeedSource, error)
}

type ItemStore interface {
	ExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error)
	InsertItem(ctx context.Context, item database.FeedItem) (bool, error)
}

type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var _ DocumentFetcher = (*Fetcher)(nil)

type ItemOutcome int

const (
	ItemInserted ItemOutcome = iota
	ItemDuplicate
	ItemSkipped
	ItemFailed
)

// SourceResult summarises one source within a cycle. Err is set when the
// document could not be fetched or parsed; per-item failures only count.
type SourceResult struct {
	Source     database.FeedSource
	Total      int
	Inserted   int
	Duplicates int
	Skipped    int
	Failed     int
	Duration   time.Duration
	Err        error
}

func (r *SourceResult) record(outcome ItemOutcome) {
	switch outcome {
	case ItemInserted:
		r.Inserted++
	case ItemDuplicate:
		r.Duplicates++
	case ItemSkipped:
		r.Skipped++
	case ItemFailed:
		r.Failed++
	}
}

type CycleResult struct {
	Sources []SourceResult
}

// Inserted is the number of new items stored across all sources
func (c CycleResult) Inserted() int {
	total := 0
	for _, source := range c.Sources {
		total += source.Inserted
	}
	return total
}

// Poller walks every feed source once per cycle and stores entries not yet seen
type Poller struct {
	sources SourceStore
	items   ItemStore
	fetcher DocumentFetcher
	parser  *Parser
}

func NewPoller(sources SourceStore, items ItemStore, fetcher DocumentFetcher, parser *Parser) *Poller {
	return &Poller{
		sources: sources,
		items:   items,
		fetcher: fetcher,
		parser:  parser,
	}
}

func (p *Poller) Name() string {
	return "feed_ingestion"
}

// Execute runs one ingestion cycle. Only a failure to list the sources is
// returned; everything below that is logged and absorbed.
func (p *Poller) Execute(ctx context.Context) error {
	result, err := p.RunCycle(ctx)
	if err != nil {
		return err
	}

	failedSources := 0
	for _, source := range result.Sources {
		if source.Err != nil {
			failedSources++
		}
	}

	slog.Info("Feed ingestion cycle completed",
		"sources", len(result.Sources),
		"failed_sources", failedSources,
		"new", result.Inserted())

	return nil
}

func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	sources, err := p.sources.ListSources(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("failed to load feed sources: %w", err)
	}

	result := CycleResult{Sources: make([]SourceResult, 0, len(sources))}
	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}
		result.Sources = append(result.Sources, p.processSource(ctx, source))
	}

	return result, nil
}

func (p *Poller) processSource(ctx context.Context, source database.FeedSource) (result SourceResult) {
	start := time.Now()
	result.Source = source
	defer func() { result.Duration = time.Since(start) }()

	data, err := p.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		slog.Warn("Failed to fetch feed", "feed", source.Label, "url", source.URL, "error", err)
		result.Err = err
		return result
	}

	entries, err := p.parser.Run(data)
	if err != nil {
		slog.Warn("Unable to read feed document", "feed", source.Label, "url", source.URL, "error", err)
		result.Err = err
		return result
	}

	result.Total = len(entries)
	for _, entry := range entries {
		result.record(p.ingestEntry(ctx, source, entry))
	}

	slog.Debug("Feed processed",
		"feed", source.Label,
		"total", result.Total,
		"new", result.Inserted,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result
}

func (p *Poller) ingestEntry(ctx context.Context, source database.FeedSource, entry Entry) ItemOutcome {
	item, err := BuildItem(source, entry)
	if errors.Is(err, ErrIneligible) {
		slog.Info("Feed item missing required field, skipping",
			"feed", source.Label, "title", entry.Title, "link", entry.Link, "pub_date", entry.PubDate)
		return ItemSkipped
	}
	if err != nil {
		slog.Warn("Failed to build feed item", "feed", source.Label, "title", entry.Title, "error", err)
		return ItemFailed
	}

	exists, err := p.items.ExistsByDedupKey(ctx, item.DedupKey)
	if err != nil {
		slog.Warn("Failed to check feed item", "feed", source.Label, "guid", item.DedupKey, "error", err)
		return ItemFailed
	}
	if exists {
		return ItemDuplicate
	}

	inserted, err := p.items.InsertItem(ctx, item)
	if err != nil {
		slog.Warn("Failed to add feed item", "feed", source.Label, "guid", item.DedupKey, "error", err)
		return ItemFailed
	}
	if !inserted {
		return ItemDuplicate
	}

	slog.Info("Feed item added", "feed", source.Label, "title", item.Title)
	return ItemInserted
}
