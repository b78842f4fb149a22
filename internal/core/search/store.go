package search

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/pkg/common"
)

// Store loads the read-only reference corpus from a SQLite file once at
// process start.
type Store struct {
	db *sql.DB
}

// NewStore opens the corpus database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach corpus database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the corpus tables when they do not exist. The ETL
// that fills them is outside this service.
func (s *Store) InitSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS food_entries (
        id INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        source_tier TEXT NOT NULL,
        granularity TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS food_nutrients (
        entry_id INTEGER PRIMARY KEY,
        calories REAL NOT NULL,
        protein_g REAL NOT NULL,
        fat_g REAL NOT NULL,
        carbohydrate_g REAL NOT NULL,
        fiber_g REAL NOT NULL DEFAULT 0,
        sugar_g REAL NOT NULL DEFAULT 0,
        sodium_mg REAL NOT NULL DEFAULT 0,
        FOREIGN KEY (entry_id) REFERENCES food_entries(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_food_entries_granularity ON food_entries(granularity);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create corpus schema: %w", err)
	}
	return nil
}

// LoadEntries reads every corpus entry, splitting "X or Y" source names
// into independent alternatives at ingestion time.
func (s *Store) LoadEntries() ([]*food.Entry, error) {
	rows, err := s.db.Query(`
        SELECT e.id, e.name, e.description, e.source_tier, e.granularity,
               n.calories, n.protein_g, n.fat_g, n.carbohydrate_g,
               n.fiber_g, n.sugar_g, n.sodium_mg
        FROM food_entries e
        JOIN food_nutrients n ON n.entry_id = e.id
        ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus: %w", err)
	}
	defer rows.Close()

	var entries []*food.Entry
	for rows.Next() {
		var (
			entry      food.Entry
			name       string
			sourceTier string
			gran       string
		)
		if err := rows.Scan(
			&entry.ID, &name, &entry.Description, &sourceTier, &gran,
			&entry.Nutrients.Calories, &entry.Nutrients.ProteinG,
			&entry.Nutrients.FatG, &entry.Nutrients.CarbohydrateG,
			&entry.Nutrients.FiberG, &entry.Nutrients.SugarG,
			&entry.Nutrients.SodiumMg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan corpus row: %w", err)
		}

		entry.Names = SplitAlternatives(name)
		if len(entry.Names) == 0 {
			common.LogWarn("skipping corpus entry with empty name",
				zap.Int64("entry_id", entry.ID),
			)
			continue
		}
		entry.SourceTier = food.SourceTier(sourceTier)
		entry.Granularity = food.Granularity(gran)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus rows: %w", err)
	}

	common.LogInfo("reference corpus loaded",
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

var alternativeSplitPattern = regexp.MustCompile(`(?i)\s+or\s+|\s*/\s*`)

// SplitAlternatives splits an "X or Y" (or "X / Y") source name into its
// independent alternatives. A plain name becomes a one-element list.
func SplitAlternatives(name string) []string {
	parts := alternativeSplitPattern.Split(name, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
