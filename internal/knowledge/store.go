// Package knowledge loads the split gastronomy knowledge base and answers
// keyword lookups over it.
package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Record is one knowledge-base entry. The source files use the French
// field name "contenu"; other provider fields are ignored.
type Record struct {
	Contenu string `json:"contenu"`
}

// MaxResults bounds how many records a search returns.
const MaxResults = 3

// Store holds the in-memory knowledge base. Records are immutable once
// loaded and keep their file/array order.
type Store struct {
	records  []Record
	warnings []string
	logger   *slog.Logger
}

// Load reads every part_*.json file under dir, in sorted name order.
// A malformed file is skipped with a warning; a missing or empty directory
// yields a valid empty store.
func Load(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	st := &Store{logger: logger}

	paths, err := filepath.Glob(filepath.Join(dir, "part_*.json"))
	if err != nil {
		st.warn(fmt.Sprintf("bad knowledge glob for %s: %v", dir, err))
		return st
	}
	sort.Strings(paths)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			st.warn(fmt.Sprintf("erreur dans %s : %v", filepath.Base(path), err))
			continue
		}
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			st.warn(fmt.Sprintf("erreur dans %s : %v", filepath.Base(path), err))
			continue
		}
		st.records = append(st.records, records...)
	}

	logger.Info("knowledge base loaded", "dir", dir, "files", len(paths),
		"records", len(st.records), "warnings", len(st.warnings))
	return st
}

func (st *Store) warn(msg string) {
	st.warnings = append(st.warnings, msg)
	st.logger.Warn("knowledge load warning", "detail", msg)
}

// Warnings returns load-time warnings in occurrence order.
func (st *Store) Warnings() []string { return st.warnings }

// Len returns the number of loaded records.
func (st *Store) Len() int { return len(st.records) }

// Search returns the contents of the first MaxResults records containing
// any whitespace-separated token of question as a case-insensitive
// substring. Ties keep load order; no ranking, no deduplication.
func (st *Store) Search(question string) []string {
	tokens := strings.Fields(strings.ToLower(question))
	if len(tokens) == 0 {
		return nil
	}

	var results []string
	for _, rec := range st.records {
		content := strings.ToLower(rec.Contenu)
		for _, tok := range tokens {
			if strings.Contains(content, tok) {
				results = append(results, rec.Contenu)
				break
			}
		}
		if len(results) == MaxResults {
			break
		}
	}
	return results
}
