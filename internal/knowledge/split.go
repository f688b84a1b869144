package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultChunkSize is the number of records per split file.
const DefaultChunkSize = 500

// SplitFile splits one large JSON array knowledge source into numbered
// part_NNN.json chunks under outDir. Offline data preparation, not part of
// the runtime pipeline. Returns the number of files written.
func SplitFile(src, outDir string, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return 0, fmt.Errorf("failed to read source: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("source is not a JSON array: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := 0
	for i := 0; i < len(records); i += chunkSize {
		end := i + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk, err := json.MarshalIndent(records[i:end], "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode chunk: %w", err)
		}
		name := fmt.Sprintf("part_%03d.json", i/chunkSize)
		if err := os.WriteFile(filepath.Join(outDir, name), chunk, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written++
	}
	return written, nil
}
