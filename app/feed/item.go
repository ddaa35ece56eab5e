package feed

import (
	"cmp"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/lysyi3m/work-dash/app/database"
)

const categorySeparator = ","

// RFC 2822 obsolete zone names. time.Parse only knows their offsets when
// they match the local zone, so they are resolved here.
var obsoleteZones = map[string]int{
	"EST": -5, "EDT": -4,
	"CST": -6, "CDT": -5,
	"MST": -7, "MDT": -6,
	"PST": -8, "PDT": -7,
}

// DedupKey is the entry's guid, or its link when the guid is absent
func DedupKey(entry Entry) string {
	return cmp.Or(entry.GUID, entry.Link)
}

// ParsePubDate parses an RFC 2822 date into epoch seconds
func ParsePubDate(value string) (int64, error) {
	t, err := mail.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrBadPubDate, value, err)
	}

	if name, offset := t.Zone(); offset == 0 {
		if hours, ok := obsoleteZones[name]; ok {
			zone := time.FixedZone(name, hours*3600)
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone)
		}
	}

	return t.Unix(), nil
}

// JoinCategories terminates every category name with the separator. Names
// containing the separator are not escaped.
func JoinCategories(categories []string) string {
	var b strings.Builder
	for _, category := range categories {
		b.WriteString(category)
		b.WriteString(categorySeparator)
	}
	return b.String()
}

// BuildItem derives the stored item for entry. Entries without a title, link
// or publication date fail with ErrIneligible.
func BuildItem(source database.FeedSource, entry Entry) (database.FeedItem, error) {
	if entry.Title == "" || entry.Link == "" || entry.PubDate == "" {
		return database.FeedItem{}, ErrIneligible
	}

	publishedAt, err := ParsePubDate(entry.PubDate)
	if err != nil {
		return database.FeedItem{}, err
	}

	return database.FeedItem{
		Important:   source.Important,
		Dismissed:   false,
		SourceLabel: source.Label,
		PublishedAt: publishedAt,
		DedupKey:    DedupKey(entry),
		Title:       entry.Title,
		Link:        entry.Link,
		Description: entry.Description,
		Categories:  JoinCategories(entry.Categories),
	}, nil
}
