package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tariffJSON = `[
  {
    "word": "tariff",
    "phonetics": [{"text": "", "audio": ""}, {"text": "/ˈtæɹɪf/", "audio": "https://example.com/tariff.mp3"}],
    "meanings": [
      {"partOfSpeech": "noun", "definitions": [
        {"definition": "A system of government-imposed duties levied on imported or exported goods."},
        {"definition": "A schedule of prices or fees.", "example": "The hotel tariff rose in summer."}
      ]},
      {"partOfSpeech": "verb", "definitions": [{"definition": "To levy a duty on.", "example": "They tariffed steel."}]}
    ]
  }
]`

func TestFreeDictLookup(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tariffJSON))
	}))
	defer srv.Close()

	p := NewFreeDictWithURL(srv.URL+"/", nil)
	e, err := p.Lookup(context.Background(), " Tariff ")
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "/tariff", path.Load())
	assert.Equal(t, "/ˈtæɹɪf/", e.Phonetic)
	assert.Equal(t, "A system of government-imposed duties levied on imported or exported goods.", e.Definition)
	assert.Equal(t, "The hotel tariff rose in summer.", e.Example)
	assert.Empty(t, e.Translation)
}

func TestFreeDictNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"No Definitions Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	e, err := NewFreeDictWithURL(srv.URL, nil).Lookup(context.Background(), "zzyzx")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestFreeDictRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(tariffJSON))
	}))
	defer srv.Close()

	p := NewFreeDictWithURL(srv.URL, nil)
	p.retryDelay = 0
	e, err := p.Lookup(context.Background(), "tariff")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFreeDictGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewFreeDictWithURL(srv.URL, nil)
	p.retryDelay = 0
	_, err := p.Lookup(context.Background(), "tariff")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFreeDictNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewFreeDictWithURL(srv.URL, nil).Lookup(context.Background(), "tariff")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFreeDictInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	_, err := NewFreeDictWithURL(srv.URL, nil).Lookup(context.Background(), "tariff")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}

func TestFreeDictEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"word": "tariff", "meanings": []}]`))
	}))
	defer srv.Close()

	e, err := NewFreeDictWithURL(srv.URL, nil).Lookup(context.Background(), "tariff")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestFreeDictTopLevelPhonetic(t *testing.T) {
	e := mapAPIResponse([]apiEntry{
		{Phonetic: " /ɪnˈvɔɪ/ ", Phonetics: []apiPhonetic{{Text: "/ˈɛnvɔɪ/"}}},
		{Meanings: []apiMeaning{{Definitions: []apiDefinition{{Definition: "A diplomatic agent."}}}}},
	})
	assert.Equal(t, "/ɪnˈvɔɪ/", e.Phonetic)
	assert.Equal(t, "A diplomatic agent.", e.Definition)
}
