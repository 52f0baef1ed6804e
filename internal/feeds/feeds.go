// Package feeds fetches exchange announcement RSS/Atom feeds and
// normalizes them into a common item shape.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"pricefeed/internal/pricing"
	"pricefeed/internal/ratelimit"
)

// Source is one configured upstream feed.
type Source struct {
	Name string
	URL  string
}

// Item is the normalized shape of one feed entry.
type Item struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	GUID      string    `json:"guid"`
	Source    string    `json:"source"`
}

// Service fetches configured feeds. Feed fetches go through the same
// admission control as price providers, keyed "feed:<name>".
type Service struct {
	sources  []Source
	parser   *gofeed.Parser
	governor *ratelimit.Governor
	limit    ratelimit.Limit
	logger   *slog.Logger
}

// New creates a feed Service. limit applies per feed source.
func New(sources []Source, governor *ratelimit.Governor, limit ratelimit.Limit, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "pricefeed/1.0"
	return &Service{
		sources:  sources,
		parser:   parser,
		governor: governor,
		limit:    limit,
		logger:   logger,
	}
}

// Fetch retrieves one named feed. A feed that cannot be fetched or parsed
// fails with a provider_unavailable error, never a panic.
func (s *Service) Fetch(ctx context.Context, name string) ([]Item, error) {
	src, ok := s.lookup(name)
	if !ok {
		return nil, pricing.NewUnsupportedSymbol("feeds", name)
	}
	return s.fetchSource(ctx, src)
}

// FetchAll retrieves every configured feed, newest first. Sources that
// fail are logged and skipped; the call only errors when no source
// produced items.
func (s *Service) FetchAll(ctx context.Context) ([]Item, error) {
	all := []Item{}
	var lastErr error
	for _, src := range s.sources {
		items, err := s.fetchSource(ctx, src)
		if err != nil {
			s.logger.Warn("feed fetch failed", "source", src.Name, "error", err)
			lastErr = err
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Published.After(all[j].Published) })
	return all, nil
}

// Sources lists the configured feed names.
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name)
	}
	return names
}

func (s *Service) lookup(name string) (Source, bool) {
	for _, src := range s.sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

func (s *Service) fetchSource(ctx context.Context, src Source) ([]Item, error) {
	key := "feed:" + src.Name
	if d := s.governor.CanProceed(key, s.limit); !d.Allowed {
		return nil, pricing.NewRateLimited(key)
	}

	feed, err := s.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, pricing.NewProviderUnavailable(src.Name, "feed fetch or parse failed", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil || it.Title == "" {
			continue
		}
		published := time.Time{}
		if it.PublishedParsed != nil {
			published = it.PublishedParsed.UTC()
		}
		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}
		items = append(items, Item{
			Title:     it.Title,
			Link:      it.Link,
			Published: published,
			GUID:      guid,
			Source:    src.Name,
		})
	}
	if len(items) == 0 {
		return nil, pricing.NewProviderUnavailable(src.Name,
			fmt.Sprintf("feed %s contained no items", src.URL), nil)
	}
	return items, nil
}
