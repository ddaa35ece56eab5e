package database

// FeedSource is a configured syndication feed
type FeedSource struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	Important bool   `json:"important"`
}

// FeedItem is one ingested entry. SourceLabel and Important are copied from
// the source at ingestion time and never follow later source edits.
type FeedItem struct {
	ID          int64  `json:"id"`
	Important   bool   `json:"important"`
	Dismissed   bool   `json:"dismissed"`
	SourceLabel string `json:"source_label"`
	PublishedAt int64  `json:"pub_date"` // epoch seconds
	DedupKey    string `json:"guid"`     // guid, or link when the entry has none
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Categories  string `json:"categories"`
}

// Sentinel observation values
const (
	RTTNotProbed int64 = -1
	RTTFailed    int64 = 0
)

// ProbeTarget is a monitored host together with its latest observation.
// Each probe overwrites the previous observation.
type ProbeTarget struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	Address   string `json:"address"`
	UpdatedAt int64  `json:"last_set_time"` // epoch seconds, 0 until first probe
	RTT       int64  `json:"ping"`          // milliseconds
	LastError string `json:"error"`
}
