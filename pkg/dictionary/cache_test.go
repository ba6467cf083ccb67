package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/newsvocab/pkg/db"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestCacheHitAndMiss(t *testing.T) {
	conn := openDB(t)
	var calls atomic.Int32
	next := LookupFunc(func(ctx context.Context, lemma string) (*Entry, error) {
		calls.Add(1)
		if lemma == "tariff" {
			return &Entry{Definition: "a tax on imports", Phonetic: "/ˈtæɹɪf/"}, nil
		}
		return nil, nil
	})
	c := NewCache(conn, "freedict", next, 0, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e, err := c.Lookup(ctx, "tariff")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "a tax on imports", e.Definition)
		assert.Equal(t, "/ˈtæɹɪf/", e.Phonetic)

		e, err = c.Lookup(ctx, "zzyzx")
		require.NoError(t, err)
		assert.Nil(t, e)
	}
	assert.Equal(t, int32(2), calls.Load(), "hits and misses are both cached")
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	conn := openDB(t)
	var calls atomic.Int32
	next := LookupFunc(func(ctx context.Context, lemma string) (*Entry, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("timeout")
		}
		return &Entry{Definition: "a diplomatic agent"}, nil
	})
	c := NewCache(conn, "freedict", next, 0, nil)

	_, err := c.Lookup(context.Background(), "envoy")
	require.Error(t, err)

	e, err := c.Lookup(context.Background(), "envoy")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheExpiry(t *testing.T) {
	conn := openDB(t)
	require.NoError(t, db.PutCachedLookup(conn, db.CachedLookup{Source: "freedict", Lemma: "quorum", Found: false}))

	var calls atomic.Int32
	next := LookupFunc(func(ctx context.Context, lemma string) (*Entry, error) {
		calls.Add(1)
		return &Entry{Definition: "minimum attendance"}, nil
	})

	// A fresh cached miss is served without calling next.
	e, err := NewCache(conn, "freedict", next, time.Hour, nil).Lookup(context.Background(), "quorum")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Zero(t, calls.Load())

	time.Sleep(5 * time.Millisecond)
	e, err = NewCache(conn, "freedict", next, time.Millisecond, nil).Lookup(context.Background(), "quorum")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheIsKeyedBySource(t *testing.T) {
	conn := openDB(t)
	a := NewCache(conn, "a", static(&Entry{Translation: "가"}, nil), 0, nil)
	b := NewCache(conn, "b", static(&Entry{Translation: "나"}, nil), 0, nil)

	ea, _ := a.Lookup(context.Background(), "word")
	eb, _ := b.Lookup(context.Background(), "word")
	require.NotNil(t, ea)
	require.NotNil(t, eb)
	assert.Equal(t, "가", ea.Translation)
	assert.Equal(t, "나", eb.Translation)
}
