package dictionary

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/japaniel/newsvocab/pkg/db"
)

// Backfill looks up every stored vocabulary row that has no translation yet
// and writes the translations lookup can provide. It returns the number of
// rows updated. Lookup errors skip the row.
func Backfill(ctx context.Context, conn *sql.DB, lookup Lookup, log *slog.Logger) (int, error) {
	rows, err := db.ListMissingTranslations(conn)
	if err != nil {
		return 0, err
	}

	// Collect updates first so no read cursor is open while writing.
	type update struct {
		id          int64
		translation string
		definition  string
	}
	var updates []update
	seen := make(map[string]*Entry)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		entry, ok := seen[row.Lemma]
		if !ok {
			entry, err = lookup.Lookup(ctx, row.Lemma)
			if err != nil {
				if log != nil {
					log.Warn("backfill lookup failed", slog.String("lemma", row.Lemma), slog.String("error", err.Error()))
				}
				continue
			}
			seen[row.Lemma] = entry
		}
		if entry == nil || entry.Translation == "" {
			continue
		}
		def := ""
		if row.Definition == "" {
			def = entry.Definition
		}
		updates = append(updates, update{row.ID, entry.Translation, def})
	}

	updatedCount := 0
	for _, u := range updates {
		if err := db.UpdateTranslation(conn, u.id, u.translation, u.definition); err != nil {
			if log != nil {
				log.Warn("backfill update failed", slog.Int64("id", u.id), slog.String("error", err.Error()))
			}
			continue
		}
		updatedCount++
	}
	return updatedCount, nil
}
