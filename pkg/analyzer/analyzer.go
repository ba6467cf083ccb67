// Package analyzer turns script text into tagged, lemmatized tokens.
//
// An Analyzer wraps a linguistic Engine (see Open) and falls back to a
// regex tokenizer with a suffix heuristic tagger whenever the engine cannot
// be loaded or fails on a document. Both paths return the same Token shape,
// so callers never need to know which one ran; the choice is only visible in
// logs and in Stats.
package analyzer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// Path names the tokenization path used for a document.
type Path string

const (
	PathEngine   Path = "engine"
	PathFallback Path = "fallback"
)

// warmupText is tagged once when an engine is attached to find out whether
// it actually works before any document depends on it.
const warmupText = "The committee approved the new budget."

// Stats counts documents per tokenization path.
type Stats struct {
	Engine   int64
	Fallback int64
}

// Analyzer handles text segmentation and tagging.
type Analyzer struct {
	engine Engine
	model  string
	log    *slog.Logger

	engineDocs   atomic.Int64
	fallbackDocs atomic.Int64
	closeOnce    sync.Once
	closeErr     error
}

// Option configures an Analyzer.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	lexicon Lexicon
}

// WithLogger sets the logger used to report path decisions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLexicon gives the engine a word list to pick lemma candidates from.
func WithLexicon(lex Lexicon) Option {
	return func(o *options) { o.lexicon = lex }
}

// New loads the engine registered under model. A model that cannot be opened
// or fails its warm-up leaves the Analyzer on the fallback path for its whole
// lifetime; New itself never fails because of the engine.
func New(model string, opts ...Option) *Analyzer {
	o := collect(opts)
	if model == "" {
		model = DefaultModel
	}
	engine, err := Open(model, o.lexicon)
	if err != nil {
		o.logger.Warn("engine unavailable, using fallback tokenizer",
			slog.String("model", model), slog.String("error", err.Error()))
		return &Analyzer{model: model, log: o.logger}
	}
	return attach(engine, model, o.logger)
}

// NewWithEngine builds an Analyzer around an already opened engine. A nil
// engine yields a fallback-only Analyzer.
func NewWithEngine(engine Engine, opts ...Option) *Analyzer {
	o := collect(opts)
	if engine == nil {
		return &Analyzer{model: "none", log: o.logger}
	}
	return attach(engine, engine.Name(), o.logger)
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o.logger = o.logger.With("component", "analyzer")
	return o
}

func attach(engine Engine, model string, log *slog.Logger) *Analyzer {
	a := &Analyzer{engine: engine, model: model, log: log}
	if err := a.warmup(); err != nil {
		log.Warn("engine warm-up failed, using fallback tokenizer",
			slog.String("model", model), slog.String("error", err.Error()))
		a.releaseEngine()
		return a
	}
	log.Info("engine loaded", slog.String("model", model))
	return a
}

func (a *Analyzer) warmup() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: warm-up panicked: %v", vocab.ErrEngineUnavailable, r)
		}
	}()
	tagged, err := a.engine.Tag(warmupText)
	if err != nil {
		return fmt.Errorf("%w: %v", vocab.ErrEngineUnavailable, err)
	}
	if len(tagged) == 0 {
		return fmt.Errorf("%w: warm-up produced no tokens", vocab.ErrEngineUnavailable)
	}
	return nil
}

// Model returns the configured model name.
func (a *Analyzer) Model() string { return a.model }

// EngineReady reports whether documents go through the engine by default.
func (a *Analyzer) EngineReady() bool { return a.engine != nil }

// Stats returns how many documents went through each path so far.
func (a *Analyzer) Stats() Stats {
	return Stats{Engine: a.engineDocs.Load(), Fallback: a.fallbackDocs.Load()}
}

// Analyze breaks text into tokens with lemmas and coarse POS tags.
func (a *Analyzer) Analyze(text string) []vocab.Token {
	tokens, _ := a.AnalyzeWithPath(text)
	return tokens
}

// AnalyzeWithPath is Analyze that also reports which path produced the tokens.
func (a *Analyzer) AnalyzeWithPath(text string) ([]vocab.Token, Path) {
	if strings.TrimSpace(text) == "" {
		return nil, PathFallback
	}
	sentences := splitSentences(text)

	if a.engine != nil {
		tokens, err := a.analyzeEngine(text, sentences)
		if err == nil {
			a.engineDocs.Add(1)
			a.log.Debug("analyzed", slog.String("path", string(PathEngine)), slog.Int("tokens", len(tokens)))
			return tokens, PathEngine
		}
		a.log.Warn("engine failed on document, using fallback tokenizer",
			slog.String("model", a.model), slog.String("error", err.Error()))
	}

	tokens := fallbackTokens(text, sentences)
	a.fallbackDocs.Add(1)
	a.log.Debug("analyzed", slog.String("path", string(PathFallback)), slog.Int("tokens", len(tokens)))
	return tokens, PathFallback
}

func (a *Analyzer) analyzeEngine(text string, sentences []sentence) (result []vocab.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %s panicked: %v", vocab.ErrEngineUnavailable, a.model, r)
		}
	}()

	for _, s := range sentences {
		tagged, err := a.engine.Tag(s.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vocab.ErrEngineUnavailable, err)
		}

		// Engines do not report offsets, so each token is located by
		// searching forward from the end of the previous one.
		cursor := 0
		for _, tg := range tagged {
			if !isWord(tg.Text) {
				continue
			}
			idx := strings.Index(s.text[cursor:], tg.Text)
			if idx < 0 {
				continue
			}
			start := s.start + cursor + idx
			end := start + len(tg.Text)
			cursor += idx + len(tg.Text)

			if n := len(result); n > 0 && isClitic(tg.Text) && result[n-1].Span.End == start {
				prev := &result[n-1]
				prev.Span.End = end
				prev.Surface = text[prev.Span.Start:end]
				continue
			}

			lemma := tg.Lemma
			if lemma == "" {
				lemma = tg.Text
			}
			result = append(result, vocab.Token{
				Surface:  tg.Text,
				Lemma:    lemma,
				POS:      tg.POS,
				Proper:   tg.Proper,
				Span:     vocab.Span{Start: start, End: end},
				Sentence: vocab.Span{Start: s.start, End: s.end},
			})
		}
	}
	return result, nil
}

// Close releases the engine. It is safe to call more than once.
func (a *Analyzer) Close() error {
	a.releaseEngine()
	return a.closeErr
}

func (a *Analyzer) releaseEngine() {
	a.closeOnce.Do(func() {
		if a.engine != nil {
			a.closeErr = a.engine.Close()
			a.engine = nil
		}
	})
}

type sentence struct {
	start, end int
	text       string
}

// splitSentences cuts text on sentence delimiters and newlines and trims
// surrounding whitespace. ASCII terminators only split when followed by
// whitespace so that decimals like "3.5" stay intact; CJK terminators always split.
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0

	emit := func(end int) {
		seg := text[start:end]
		trimmedLeft := strings.TrimLeftFunc(seg, unicode.IsSpace)
		s := start + (len(seg) - len(trimmedLeft))
		e := s + len(strings.TrimRightFunc(trimmedLeft, unicode.IsSpace))
		if e > s {
			out = append(out, sentence{start: s, end: e, text: text[s:e]})
		}
		start = end
	}

	for i, r := range text {
		size := utf8.RuneLen(r)
		switch r {
		case '\n':
			emit(i + size)
		case '。', '！', '？':
			emit(i + size)
		case '.', '!', '?':
			next := i + size
			if next >= len(text) {
				continue
			}
			nr, _ := utf8.DecodeRuneInString(text[next:])
			if unicode.IsSpace(nr) {
				emit(next)
			}
		}
	}
	if start < len(text) {
		emit(len(text))
	}
	return out
}

// isWord reports whether s carries at least one letter or digit.
func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

func isClitic(s string) bool {
	if strings.HasPrefix(s, "'") || strings.HasPrefix(s, "’") {
		return true
	}
	return strings.EqualFold(s, "n't") || strings.EqualFold(s, "n’t")
}
