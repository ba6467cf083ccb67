package main_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestCLI_OfflineServer(t *testing.T) {
	tmp := t.TempDir()

	// Local dictionary server so the run never touches the network.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"word": %q, "meanings": [{"partOfSpeech": "noun", "definitions": [{"definition": "test"}]}]}]`, filepath.Base(r.URL.Path))
	}))
	defer srv.Close()

	scripts := filepath.Join(tmp, "scripts")
	if err := os.MkdirAll(scripts, 0755); err != nil {
		t.Fatalf("failed to create scripts dir: %v", err)
	}
	html := `<html><head><title>Morning News</title></head><body><article>
<p>Lawmakers approved an emergency budget after lengthy negotiations.</p>
<p>Economists warned that inflation could accelerate next quarter.</p>
</article></body></html>`
	if err := os.WriteFile(filepath.Join(scripts, "radio_20261018.html"), []byte(html), 0644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	dbPath := filepath.Join(tmp, "newsvocab.db")
	outDir := filepath.Join(tmp, "logs")
	cfgPath := filepath.Join(tmp, "config.yaml")
	cfg := fmt.Sprintf("dictionary:\n  freedict_url: %q\nfrequency:\n  path: %q\n  url: \"\"\n", srv.URL, filepath.Join(tmp, "none.csv"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// Build the CLI binary (use full import path so it builds correctly regardless of the current working directory)
	bin := filepath.Join(tmp, "newsvocab.bin")
	build := exec.Command("go", "build", "-o", bin, "github.com/japaniel/newsvocab/cmd/newsvocab")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "-config", cfgPath, "-input", scripts, "-date", "20261018", "-db", dbPath, "-out", outDir)
	cmd.Dir = tmp
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("cli timed out, output:\n%s", out)
	}
	if err != nil {
		t.Fatalf("cli failed: %v\noutput:\n%s", err, out)
	}

	outStr := string(out)
	if !strings.Contains(outStr, "Processing complete") {
		t.Fatalf("unexpected CLI output; expected success message, got:\n%s", outStr)
	}
	for _, name := range []string{"vocabulary_20261018.json", "vocabulary_20261018.csv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer dbConn.Close()

	var cnt int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM vocabulary").Scan(&cnt); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if cnt == 0 {
		t.Fatalf("expected stored vocabulary, found 0 rows")
	}
}
