package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/work-dash/app/database"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type mockSourceStore struct {
	sources []database.FeedSource
	err     error
}

func (m *mockSourceStore) ListSources(ctx context.Context) ([]database.FeedSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sources, nil
}

type mockItemStore struct {
	mu        sync.Mutex
	items     map[string]database.FeedItem
	order     []string
	insertErr map[string]error
	// raced marks keys another writer stores between the check and the insert
	raced map[string]bool
}

func newMockItemStore() *mockItemStore {
	return &mockItemStore{
		items:     make(map[string]database.FeedItem),
		insertErr: make(map[string]error),
		raced:     make(map[string]bool),
	}
}

func (m *mockItemStore) ExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[dedupKey]
	return ok, nil
}

func (m *mockItemStore) InsertItem(ctx context.Context, item database.FeedItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertErr[item.DedupKey]; err != nil {
		return false, err
	}
	if m.raced[item.DedupKey] {
		return false, nil
	}
	if _, ok := m.items[item.DedupKey]; ok {
		return false, nil
	}
	m.items[item.DedupKey] = item
	m.order = append(m.order, item.DedupKey)
	return true, nil
}

type mockFetcher struct {
	documents map[string]string
	errs      map[string]error
	calls     []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.calls = append(m.calls, url)
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	return []byte(m.documents[url]), nil
}

const newsFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>News</title>
    <item>
      <title>First</title>
      <link>http://x/1</link>
      <guid>abc</guid>
      <pubDate>Tue, 01 Jan 2019 00:00:00 GMT</pubDate>
      <category>a</category>
      <category>b</category>
    </item>
    <item>
      <title>No link</title>
      <guid isPermaLink="false">no-link</guid>
      <pubDate>Tue, 01 Jan 2019 00:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Bad date</title>
      <link>http://x/bad</link>
      <pubDate>sometime</pubDate>
    </item>
    <item>
      <title>Second</title>
      <link>http://x/2</link>
      <description>Second item</description>
      <pubDate>Wed, 02 Jan 2019 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const blogFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Blog</title>
    <item>
      <title>Post</title>
      <link>http://blog/1</link>
      <pubDate>Thu, 03 Jan 2019 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestPollerIngestsEligibleItems(t *testing.T) {
	sources := &mockSourceStore{sources: []database.FeedSource{
		{ID: 1, Label: "News", URL: "http://news/rss", Important: true},
	}}
	items := newMockItemStore()
	fetcher := &mockFetcher{documents: map[string]string{"http://news/rss": newsFeed}}

	poller := NewPoller(sources, items, fetcher, NewParser())
	result, err := poller.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Sources) != 1 {
		t.Fatalf("Expected 1 source result, got %d", len(result.Sources))
	}
	got := result.Sources[0]
	if got.Total != 4 || got.Inserted != 2 || got.Skipped != 1 || got.Failed != 1 {
		t.Errorf("Unexpected counts: %+v", got)
	}

	first, ok := items.items["abc"]
	if !ok {
		t.Fatal("Expected item with guid 'abc' to be stored under its guid")
	}
	if first.PublishedAt != 1546300800 {
		t.Errorf("Expected pub_date 1546300800, got %d", first.PublishedAt)
	}
	if !first.Important || first.Dismissed || first.SourceLabel != "News" {
		t.Errorf("Expected source properties copied, got %+v", first)
	}
	if first.Categories != "a,b," {
		t.Errorf("Expected categories 'a,b,', got %q", first.Categories)
	}

	second, ok := items.items["http://x/2"]
	if !ok {
		t.Fatal("Expected item without guid to be stored under its link")
	}
	if second.Description != "Second item" {
		t.Errorf("Expected description, got %q", second.Description)
	}

	if _, ok := items.items["no-link"]; ok {
		t.Error("Expected item without link to be skipped")
	}
}

func TestPollerIsIdempotent(t *testing.T) {
	sources := &mockSourceStore{sources: []database.FeedSource{{ID: 1, Label: "News", URL: "http://news/rss"}}}
	items := newMockItemStore()
	fetcher := &mockFetcher{documents: map[string]string{"http://news/rss": newsFeed}}
	poller := NewPoller(sources, items, fetcher, NewParser())

	if _, err := poller.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := len(items.items)

	result, err := poller.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Inserted() != 0 {
		t.Errorf("Expected no inserts on second run, got %d", result.Inserted())
	}
	if result.Sources[0].Duplicates != 2 {
		t.Errorf("Expected 2 duplicates, got %d", result.Sources[0].Duplicates)
	}
	if len(items.items) != before {
		t.Errorf("Expected %d items, got %d", before, len(items.items))
	}
}

func TestPollerContinuesAfterSourceFailures(t *testing.T) {
	sources := &mockSourceStore{sources: []database.FeedSource{
		{ID: 1, Label: "Down", URL: "http://down/rss"},
		{ID: 2, Label: "Broken", URL: "http://broken/rss"},
		{ID: 3, Label: "Blog", URL: "http://blog/rss"},
	}}
	items := newMockItemStore()
	fetcher := &mockFetcher{
		documents: map[string]string{
			"http://broken/rss": "<html>not a feed</html>",
			"http://blog/rss":   blogFeed,
		},
		errs: map[string]error{
			"http://down/rss": &FetchError{URL: "http://down/rss", StatusCode: http.StatusBadGateway},
		},
	}

	poller := NewPoller(sources, items, fetcher, NewParser())
	result, err := poller.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(fetcher.calls) != 3 {
		t.Errorf("Expected all 3 sources fetched, got %d", len(fetcher.calls))
	}

	var fetchErr *FetchError
	if !errors.As(result.Sources[0].Err, &fetchErr) {
		t.Errorf("Expected FetchError for first source, got %v", result.Sources[0].Err)
	}
	if result.Sources[1].Err == nil {
		t.Error("Expected parse error for second source")
	}
	if result.Sources[2].Inserted != 1 {
		t.Errorf("Expected third source to insert 1 item, got %d", result.Sources[2].Inserted)
	}
}

func TestPollerContinuesAfterItemStoreFailure(t *testing.T) {
	sources := &mockSourceStore{sources: []database.FeedSource{{ID: 1, Label: "News", URL: "http://news/rss"}}}
	items := newMockItemStore()
	items.insertErr["abc"] = errors.New("disk I/O error")
	items.raced["http://x/2"] = true
	fetcher := &mockFetcher{documents: map[string]string{"http://news/rss": newsFeed}}

	poller := NewPoller(sources, items, fetcher, NewParser())
	result, err := poller.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	got := result.Sources[0]
	if got.Failed != 2 {
		t.Errorf("Expected insert failure and bad date counted as failed, got %d", got.Failed)
	}
	if got.Duplicates != 1 {
		t.Errorf("Expected lost insert race counted as duplicate, got %d", got.Duplicates)
	}
	if len(items.items) != 0 {
		t.Errorf("Expected no stored items, got %d", len(items.items))
	}
}

func TestPollerReturnsSourceListError(t *testing.T) {
	poller := NewPoller(&mockSourceStore{err: errors.New("database is locked")}, newMockItemStore(), &mockFetcher{}, NewParser())

	if err := poller.Execute(context.Background()); err == nil {
		t.Error("Expected error when sources cannot be listed")
	}
}

func TestFetcher(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/rss":
			w.Header().Set("Content-Type", "application/rss+xml")
			io.WriteString(w, blogFeed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "Work Dash/test", 5*time.Second)

	data, err := fetcher.Fetch(context.Background(), server.URL+"/rss")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != blogFeed {
		t.Error("Expected feed body to be returned unchanged")
	}
	if userAgent != "Work Dash/test" {
		t.Errorf("Expected user agent to be sent, got %q", userAgent)
	}

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fetchErr.StatusCode)
	}

	_, err = fetcher.Fetch(context.Background(), "http://127.0.0.1:0/rss")
	if !errors.As(err, &fetchErr) {
		t.Errorf("Expected FetchError for transport failure, got %v", err)
	}
}

func TestPollerEndToEndWithHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, newsFeed)
	}))
	defer server.Close()

	sources := &mockSourceStore{sources: []database.FeedSource{{ID: 1, Label: "News", URL: server.URL}}}
	items := newMockItemStore()
	poller := NewPoller(sources, items, NewFetcher(server.Client(), "", time.Second), NewParser())

	if err := poller.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(items.order) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items.order))
	}
	if items.order[0] != "abc" || items.order[1] != "http://x/2" {
		t.Errorf("Expected document order to be kept, got %v", items.order)
	}
}
