package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFreeDictURL is the public Free Dictionary API endpoint.
const DefaultFreeDictURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// FreeDict fetches English definitions, phonetics and usage examples from
// the Free Dictionary API. It never provides translations.
type FreeDict struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	retryDelay time.Duration
}

// NewFreeDictWithURL creates a client for the API at baseURL, normally
// DefaultFreeDictURL.
func NewFreeDictWithURL(baseURL string, logger *slog.Logger) *FreeDict {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FreeDict{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("adapter", "freedict"),
		retryDelay: 500 * time.Millisecond,
	}
}

// Lookup fetches the entry for lemma.
// Returns nil, nil if the word is not found (HTTP 404).
func (p *FreeDict) Lookup(ctx context.Context, lemma string) (*Entry, error) {
	word := strings.ToLower(strings.TrimSpace(lemma))
	if word == "" {
		return nil, nil
	}
	reqURL := p.baseURL + "/" + url.PathEscape(word)

	p.log.DebugContext(ctx, "freedict request", slog.String("word", word))

	resp, err := p.doWithRetry(ctx, reqURL, word)
	if err != nil {
		return nil, fmt.Errorf("freedict: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("freedict: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("freedict: read body: %w", err)
	}

	var entries []apiEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("freedict: decode json: %w", err)
	}

	entry := mapAPIResponse(entries)
	p.log.DebugContext(ctx, "freedict response",
		slog.String("word", word),
		slog.Bool("definition", entry.Definition != ""),
		slog.Bool("phonetic", entry.Phonetic != ""))
	if entry.Empty() {
		return nil, nil
	}
	return entry, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (p *FreeDict) doWithRetry(ctx context.Context, reqURL, word string) (*http.Response, error) {
	resp, err := p.do(ctx, reqURL)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}

	// Don't retry if context is already cancelled.
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	p.log.WarnContext(ctx, "freedict retry", slog.String("word", word), slog.String("reason", reason))

	// Close body from the failed attempt before retrying.
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.retryDelay):
	}
	return p.do(ctx, reqURL)
}

func (p *FreeDict) do(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return p.httpClient.Do(req)
}

// mapAPIResponse reduces the API entries (one per etymology) to a single
// Entry: the first phonetic transcription, the first definition and the
// first usage example found in entry order.
func mapAPIResponse(entries []apiEntry) *Entry {
	out := &Entry{}
	for _, entry := range entries {
		if out.Phonetic == "" {
			out.Phonetic = strings.TrimSpace(entry.Phonetic)
		}
		for _, ph := range entry.Phonetics {
			if out.Phonetic != "" {
				break
			}
			out.Phonetic = strings.TrimSpace(ph.Text)
		}
		for _, meaning := range entry.Meanings {
			for _, def := range meaning.Definitions {
				if out.Definition == "" {
					out.Definition = strings.TrimSpace(def.Definition)
				}
				if out.Example == "" {
					out.Example = strings.TrimSpace(def.Example)
				}
			}
		}
	}
	return out
}

// apiEntry represents a single entry from the FreeDictionary API response.
// The API returns an array of entries (one per etymology).
type apiEntry struct {
	Word      string        `json:"word"`
	Phonetic  string        `json:"phonetic"`
	Phonetics []apiPhonetic `json:"phonetics"`
	Meanings  []apiMeaning  `json:"meanings"`
}

// apiPhonetic represents phonetic/pronunciation data from the API.
type apiPhonetic struct {
	Text  string `json:"text"`
	Audio string `json:"audio"`
}

// apiMeaning represents a group of definitions sharing a part of speech.
type apiMeaning struct {
	PartOfSpeech string          `json:"partOfSpeech"`
	Definitions  []apiDefinition `json:"definitions"`
}

// apiDefinition represents a single definition with an optional example.
type apiDefinition struct {
	Definition string `json:"definition"`
	Example    string `json:"example"`
}
