package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/agora-live/agora/internal/config"
	"github.com/agora-live/agora/internal/sanitize"
	"github.com/agora-live/agora/pkg/models"
)

// ItemSink is where fetched articles land.
type ItemSink interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
	Insert(ctx context.Context, item *models.Item) (int64, error)
}

// Ingester polls configured feeds and stores articles it has not seen.
// Deduplication is by item link; a feed that fails to parse is logged
// and skipped so one broken source never starves the rest.
type Ingester struct {
	sink   ItemSink
	feeds  []config.Feed
	parser *gofeed.Parser
}

// New creates an ingester over the configured feed list.
func New(sink ItemSink, feeds []config.Feed) *Ingester {
	return &Ingester{
		sink:   sink,
		feeds:  feeds,
		parser: gofeed.NewParser(),
	}
}

// Run polls every feed once.
func (in *Ingester) Run(ctx context.Context) error {
	var stored int
	for _, feed := range in.feeds {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := in.pollFeed(ctx, feed)
		if err != nil {
			log.Warn().Err(err).Str("source", feed.Source).Str("url", feed.URL).Msg("feed poll failed")
			continue
		}
		stored += n
	}
	if stored > 0 {
		log.Info().Int("stored", stored).Msg("ingest cycle complete")
	}
	return nil
}

func (in *Ingester) pollFeed(ctx context.Context, feed config.Feed) (int, error) {
	parsed, err := in.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return 0, err
	}

	var stored int
	for _, entry := range parsed.Items {
		title := sanitize.Title(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		seen, err := in.sink.ExistsByLink(ctx, link)
		if err != nil {
			return stored, err
		}
		if seen {
			continue
		}

		item := &models.Item{
			Title:       title,
			Link:        link,
			Category:    feed.Category,
			Source:      feed.Source,
			PublishedAt: publishedAt(entry),
		}
		if _, err := in.sink.Insert(ctx, item); err != nil {
			// Concurrent insert of the same link is not an error.
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return stored, err
		}
		stored++
	}
	return stored, nil
}

func publishedAt(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}
