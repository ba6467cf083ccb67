package dictionary

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/japaniel/newsvocab/pkg/db"
)

// Cache memoizes another Lookup in the lookup_cache table, misses
// included. Errors of the wrapped source are not cached. When the cache
// table itself fails the lookup passes straight through.
type Cache struct {
	conn   *sql.DB
	source string
	next   Lookup
	ttl    time.Duration
	log    *slog.Logger
}

// NewCache wraps next. source names the wrapped lookup in the cache table
// and must be stable across runs. ttl <= 0 keeps entries forever.
func NewCache(conn *sql.DB, source string, next Lookup, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		conn:   conn,
		source: source,
		next:   next,
		ttl:    ttl,
		log:    logger.With("component", "lookup_cache", "source", source),
	}
}

func (c *Cache) Lookup(ctx context.Context, lemma string) (*Entry, error) {
	cached, ok, err := db.GetCachedLookup(c.conn, c.source, lemma)
	if err != nil {
		c.log.Warn("cache read failed", slog.String("lemma", lemma), slog.String("error", err.Error()))
	}
	if ok && !c.expired(cached.FetchedAt) {
		if !cached.Found {
			return nil, nil
		}
		return &Entry{
			Translation: cached.Translation,
			Definition:  cached.Definition,
			Phonetic:    cached.Phonetic,
			Example:     cached.Example,
		}, nil
	}

	entry, err := c.next.Lookup(ctx, lemma)
	if err != nil {
		return nil, err
	}

	row := db.CachedLookup{Source: c.source, Lemma: lemma, Found: !entry.Empty()}
	if row.Found {
		row.Translation = entry.Translation
		row.Definition = entry.Definition
		row.Phonetic = entry.Phonetic
		row.Example = entry.Example
	}
	if err := db.PutCachedLookup(c.conn, row); err != nil {
		c.log.Warn("cache write failed", slog.String("lemma", lemma), slog.String("error", err.Error()))
	}
	if !row.Found {
		return nil, nil
	}
	return entry, nil
}

func (c *Cache) expired(fetched time.Time) bool {
	return c.ttl > 0 && time.Since(fetched) > c.ttl
}
