package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/lysyi3m/work-dash/app/database"
	"gopkg.in/yaml.v3"
)

type SourceUpserter interface {
	UpsertSource(ctx context.Context, label, url string, important bool) (*database.FeedSource, error)
}

type TargetUpserter interface {
	UpsertTarget(ctx context.Context, label, address string) (*database.ProbeTarget, error)
}

// Loader reads and validates the seed file
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load returns an empty seed when the file does not exist
func (l *Loader) Load() (*Seed, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Seed{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	seed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", l.path, err)
	}

	slog.Debug("Loaded seed file", "path", l.path, "feeds", len(seed.Feeds), "targets", len(seed.Targets))
	return seed, nil
}

func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	normalize(&seed)

	if err := validate(&seed); err != nil {
		return nil, err
	}
	return &seed, nil
}

func normalize(seed *Seed) {
	for i := range seed.Feeds {
		seed.Feeds[i].Label = strings.TrimSpace(seed.Feeds[i].Label)
		seed.Feeds[i].URL = strings.TrimSpace(seed.Feeds[i].URL)
	}
	for i := range seed.Targets {
		seed.Targets[i].Label = strings.TrimSpace(seed.Targets[i].Label)
		seed.Targets[i].Address = strings.TrimSpace(seed.Targets[i].Address)
	}
}

func validate(seed *Seed) error {
	urls := make(map[string]bool)
	for i, feed := range seed.Feeds {
		if feed.Label == "" {
			return fmt.Errorf("feed at index %d: label is required", i)
		}
		if feed.URL == "" {
			return fmt.Errorf("feed at index %d: url is required", i)
		}
		u, err := url.Parse(feed.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("feed at index %d: invalid url %q", i, feed.URL)
		}
		if urls[feed.URL] {
			return fmt.Errorf("feed at index %d: duplicate url %q", i, feed.URL)
		}
		urls[feed.URL] = true
	}

	addresses := make(map[string]bool)
	for i, target := range seed.Targets {
		if target.Label == "" {
			return fmt.Errorf("target at index %d: label is required", i)
		}
		if target.Address == "" {
			return fmt.Errorf("target at index %d: address is required", i)
		}
		if addresses[target.Address] {
			return fmt.Errorf("target at index %d: duplicate address %q", i, target.Address)
		}
		addresses[target.Address] = true
	}

	return nil
}

// Apply upserts every seeded row. It stops at the first storage error.
func Apply(ctx context.Context, seed *Seed, sources SourceUpserter, targets TargetUpserter) error {
	for _, feed := range seed.Feeds {
		if _, err := sources.UpsertSource(ctx, feed.Label, feed.URL, feed.Important); err != nil {
			return fmt.Errorf("failed to seed feed %s: %w", feed.Label, err)
		}
	}

	for _, target := range seed.Targets {
		if _, err := targets.UpsertTarget(ctx, target.Label, target.Address); err != nil {
			return fmt.Errorf("failed to seed target %s: %w", target.Label, err)
		}
	}

	slog.Info("Seed applied", "feeds", len(seed.Feeds), "targets", len(seed.Targets))
	return nil
}
