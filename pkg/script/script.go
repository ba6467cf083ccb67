// Package script loads the daily news scripts handed over by the crawler.
package script

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/japaniel/newsvocab/pkg/analyzer"
	"github.com/japaniel/newsvocab/pkg/vocab"
)

var (
	reDigits  = regexp.MustCompile(`\d+`)
	reNonText = regexp.MustCompile(`(?is)<script\b.*?</script>|<style\b.*?</style>|<head\b.*?</head>`)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported reports whether path has a script extension Load understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".html", ".htm":
		return true
	}
	return false
}

// Load reads one script. Plain text files are taken as is; HTML pages go
// through readability extraction. The document id is the file stem and the
// date is the first valid YYYYMMDD run in the file name.
func Load(path string) (vocab.RawDocument, error) {
	if !Supported(path) {
		return vocab.RawDocument{}, fmt.Errorf("%w: unsupported script type %q", vocab.ErrInvalidInput, filepath.Ext(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return vocab.RawDocument{}, fmt.Errorf("read script: %w", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	doc := vocab.RawDocument{ID: stem, Date: DateFromName(stem)}

	if strings.EqualFold(filepath.Ext(path), ".txt") {
		doc.Text = string(content)
		return doc, nil
	}

	doc.Text = extractHTML(content, path)
	return doc, nil
}

// extractHTML returns the readable text of an HTML page. Pages readability
// cannot make sense of are reduced to their tag-stripped text.
func extractHTML(content []byte, path string) string {
	content = analyzer.SanitizeRuby(content)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent
	}
	return analyzer.SanitizeScript(reNonText.ReplaceAllString(string(content), " "))
}

// DateFromName returns the first 8-digit run of name that is a valid
// calendar date, or "".
func DateFromName(name string) string {
	for _, run := range reDigits.FindAllString(name, -1) {
		if len(run) != 8 {
			continue
		}
		if _, err := time.Parse("20060102", run); err == nil {
			return run
		}
	}
	return ""
}

// LoadDir loads every supported script directly under dir, sorted by file
// name. Hidden files are skipped.
func LoadDir(dir string) ([]vocab.RawDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read script dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]vocab.RawDocument, 0, len(names))
	for _, name := range names {
		doc, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadPath loads a single script file or every script of a directory.
func LoadPath(path string) ([]vocab.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return []vocab.RawDocument{doc}, nil
}

// FilterDate keeps the documents dated date plus the undated ones.
func FilterDate(docs []vocab.RawDocument, date string) []vocab.RawDocument {
	if date == "" {
		return docs
	}
	out := docs[:0:0]
	for _, d := range docs {
		if d.Date == "" || d.Date == date {
			out = append(out, d)
		}
	}
	return out
}
