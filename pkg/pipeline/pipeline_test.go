package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/newsvocab/pkg/analyzer"
	"github.com/japaniel/newsvocab/pkg/dictionary"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

// faultyEngine passes the warm-up sentence and then fails on every document.
type faultyEngine struct {
	calls  atomic.Int32
	closed atomic.Int32
}

func (e *faultyEngine) Name() string { return "faulty" }

func (e *faultyEngine) Tag(sentence string) ([]analyzer.Tagged, error) {
	if e.calls.Add(1) == 1 {
		return []analyzer.Tagged{{Text: "The", Lemma: "the", POS: vocab.Other}}, nil
	}
	return nil, errors.New("model crashed")
}

func (e *faultyEngine) Close() error {
	e.closed.Add(1)
	return nil
}

func scenarioConfig() Config {
	cfg := DefaultConfig()
	cfg.MinWordLength = 3
	cfg.StopWords = []string{"the"}
	return cfg
}

func fallbackPipeline(t *testing.T, cfg Config, lookup dictionary.Lookup) *Pipeline {
	t.Helper()
	p, err := New(cfg, lookup, nil, nil, WithEngine(nil))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func translations(ctx context.Context, lemma string) (*dictionary.Entry, error) {
	return &dictionary.Entry{Translation: "ko:" + lemma}, nil
}

func TestRunScenario(t *testing.T) {
	p := fallbackPipeline(t, scenarioConfig(), dictionary.LookupFunc(translations))

	items, err := p.Run(context.Background(), vocab.RawDocument{ID: "ep-1", Text: "The quick brown fox jumps. The fox jumps again."})
	require.NoError(t, err)
	require.Len(t, items, 5)

	byLemma := map[string]vocab.EnrichedCandidate{}
	for _, it := range items {
		byLemma[it.Lemma] = it
		assert.Equal(t, "ko:"+it.Lemma, it.Translation)
		assert.GreaterOrEqual(t, it.Score, 0.0)
		assert.LessOrEqual(t, it.Score, 1.0)
	}
	assert.Equal(t, 2, byLemma["fox"].Count)
	assert.Equal(t, 2, byLemma["jumps"].Count)
	assert.Equal(t, 1, byLemma["quick"].Count)
	assert.Equal(t, "The quick brown fox jumps.", byLemma["fox"].ExampleText)
	assert.NotContains(t, byLemma, "the")
	assert.Equal(t, int64(5), p.Lookups())
}

func TestRunEmptyDocumentSkipsDictionary(t *testing.T) {
	p := fallbackPipeline(t, DefaultConfig(), dictionary.LookupFunc(translations))

	for _, text := range []string{"", "   \n\t  ", "<br/>\n"} {
		items, err := p.Run(context.Background(), vocab.RawDocument{ID: "empty", Text: text})
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items, "text %q", text)
	}
	assert.Zero(t, p.Lookups())
}

func TestRunEngineFaultFallsBack(t *testing.T) {
	engine := &faultyEngine{}
	p, err := New(DefaultConfig(), nil, nil, nil, WithEngine(engine))
	require.NoError(t, err)

	items, err := p.Run(context.Background(), vocab.RawDocument{Text: "hello world"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, vocab.Other, it.POS)
		assert.False(t, it.Enriched())
	}
	assert.Equal(t, analyzer.Stats{Engine: 0, Fallback: 1}, p.Stats())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, int32(1), engine.closed.Load())
}

func TestRunScoresOneContentLanguage(t *testing.T) {
	const mixed = "The parliament approved sanctions yesterday. 국회는 어제 대북제재안을 만장일치로 승인했습니다."
	hasHangul := func(s string) bool {
		for _, r := range s {
			if unicode.Is(unicode.Hangul, r) {
				return true
			}
		}
		return false
	}

	engine, err := New(scenarioConfig(), nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	paths := map[string]*Pipeline{
		"fallback": fallbackPipeline(t, scenarioConfig(), nil),
		"engine":   engine,
	}
	for name, p := range paths {
		t.Run(name, func(t *testing.T) {
			items, err := p.Run(context.Background(), vocab.RawDocument{ID: "mixed", Text: mixed})
			require.NoError(t, err)
			require.NotEmpty(t, items)

			var lemmas []string
			for _, it := range items {
				assert.False(t, hasHangul(it.Lemma), "lemma %q", it.Lemma)
				lemmas = append(lemmas, strings.ToLower(it.Lemma))
			}
			assert.Contains(t, lemmas, "parliament")
		})
	}

	cfg := scenarioConfig()
	cfg.EngineModel = analyzer.ModelKagome
	japanese := fallbackPipeline(t, cfg, nil)
	items, err := japanese.Run(context.Background(), vocab.RawDocument{ID: "ja", Text: "政府は新しい関税を発表した。The tariff applies today."})
	require.NoError(t, err)
	for _, it := range items {
		assert.NotContains(t, []string{"tariff", "applies", "today"}, strings.ToLower(it.Lemma))
	}
}

func TestRunLookupFailuresKeepCandidates(t *testing.T) {
	failing := dictionary.LookupFunc(func(ctx context.Context, lemma string) (*dictionary.Entry, error) {
		if strings.HasPrefix(lemma, "j") {
			return nil, errors.New("dictionary offline")
		}
		return nil, nil
	})
	withDict := fallbackPipeline(t, scenarioConfig(), failing)
	withoutDict := fallbackPipeline(t, scenarioConfig(), nil)

	doc := vocab.RawDocument{Text: "The quick brown fox jumps. The fox jumps again."}
	a, err := withDict.Run(context.Background(), doc)
	require.NoError(t, err)
	b, err := withoutDict.Run(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, a, len(b))
	for i := range a {
		assert.Equal(t, b[i].Candidate, a[i].Candidate)
	}
}

func TestRunTopN(t *testing.T) {
	text := "Negotiators debated tariffs, sanctions, subsidies, embargoes, quotas and reparations."

	cfg := scenarioConfig()
	cfg.TopN = 3
	items, err := fallbackPipeline(t, cfg, nil).Run(context.Background(), vocab.RawDocument{Text: text})
	require.NoError(t, err)
	assert.Len(t, items, 3)

	cfg.TopN = 0
	all, err := fallbackPipeline(t, cfg, nil).Run(context.Background(), vocab.RawDocument{Text: text})
	require.NoError(t, err)
	assert.Greater(t, len(all), 3)

	cfg.TopN = 100
	capped, err := fallbackPipeline(t, cfg, nil).Run(context.Background(), vocab.RawDocument{Text: text})
	require.NoError(t, err)
	assert.Len(t, capped, len(all))
}

func TestRunCanceledContext(t *testing.T) {
	p := fallbackPipeline(t, DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, vocab.RawDocument{Text: "Markets rallied"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"unknown model", func(c *Config) { c.EngineModel = "prose/fr" }, "model"},
		{"negative top n", func(c *Config) { c.TopN = -1 }, "top_n"},
		{"zero min length", func(c *Config) { c.MinWordLength = 0 }, "min_word_length"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative lookup timeout", func(c *Config) { c.LookupTimeout = -time.Second }, "lookup_timeout"},
		{"negative batch timeout", func(c *Config) { c.BatchTimeout = -time.Second }, "batch_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			p, err := New(cfg, nil, nil, nil, WithEngine(nil))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, vocab.ErrInvalidConfig)
			var cerr *vocab.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestRunBatchKeepsInputOrder(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Workers = 3
	slow := dictionary.LookupFunc(func(ctx context.Context, lemma string) (*dictionary.Entry, error) {
		if lemma == "alpha" {
			time.Sleep(20 * time.Millisecond)
		}
		return &dictionary.Entry{Definition: lemma}, nil
	})
	p := fallbackPipeline(t, cfg, slow)

	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf"}
	docs := make([]vocab.RawDocument, len(words))
	for i, w := range words {
		docs[i] = vocab.RawDocument{ID: fmt.Sprintf("ep-%d", i), Text: w + " reported."}
	}
	docs = append(docs, vocab.RawDocument{ID: "blank", Text: " "})

	results := p.RunBatch(context.Background(), docs)
	require.Len(t, results, len(docs))
	for i, w := range words {
		r := results[i]
		require.NoError(t, r.Err)
		assert.Equal(t, docs[i].ID, r.Doc.ID)
		assert.Equal(t, analyzer.PathFallback, r.Path)
		require.NotEmpty(t, r.Items)
		assert.Contains(t, lemmaSet(r.Items), w)
	}
	last := results[len(results)-1]
	assert.NoError(t, last.Err)
	assert.Empty(t, last.Items)
	assert.Equal(t, analyzer.Stats{Fallback: int64(len(words))}, p.Stats())
}

func TestRunBatchCanceled(t *testing.T) {
	p := fallbackPipeline(t, DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.RunBatch(ctx, []vocab.RawDocument{{ID: "a", Text: "Markets rallied"}, {ID: "b", Text: "Seoul reacted"}})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, p.RunBatch(context.Background(), nil))
}

func lemmaSet(items []vocab.EnrichedCandidate) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Lemma
	}
	return out
}
