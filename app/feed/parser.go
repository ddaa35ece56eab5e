package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS or Atom document into its entries, in document order
func (p *Parser) Run(data []byte) ([]Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.toEntry(item))
	}

	return entries, nil
}

func (p *Parser) toEntry(item *gofeed.Item) Entry {
	entry := Entry{
		Title:       item.Title,
		Link:        item.Link,
		GUID:        item.GUID,
		PubDate:     item.Published,
		Description: item.Description,
	}

	if item.Categories != nil {
		entry.Categories = item.Categories
	}

	return entry
}
