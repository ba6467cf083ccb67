package difficulty

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultWordListURL points at the NGSL 1.2 ranked list.
const DefaultWordListURL = "https://www.newgeneralservicelist.com/s/NGSL_12_stats.csv"

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// EnsureWordList checks if the frequency list exists at path.
// If not, it downloads it from url. Archives ending in .gz, .tgz or .tar.gz
// are decompressed; for tar archives the first .csv member is kept.
func EnsureWordList(ctx context.Context, path, url string, log *slog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		// File exists
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("word list not found at %s and no download url configured", path)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log.Info("word list not found, downloading", slog.String("path", path), slog.String("url", url))
	if err := download(ctx, url, path); err != nil {
		return fmt.Errorf("download word list: %w", err)
	}
	return nil
}

func download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "newsvocab-cli")

	resp, err := downloadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.gz"):
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		member, err := findCSV(tar.NewReader(gz))
		if err != nil {
			return err
		}
		body = member
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	return writeAtomic(destPath, body)
}

func findCSV(tr *tar.Reader) (io.Reader, error) {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no csv file found in downloaded archive")
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(strings.ToLower(header.Name), ".csv") {
			return tr, nil
		}
	}
}

// writeAtomic writes into a sibling temp file and renames it so a failed
// download never leaves a truncated list behind.
func writeAtomic(destPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".wordlist-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}
