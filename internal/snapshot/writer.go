package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
)

// Writer serializes result frames as delimited text snapshots, one file
// per (model, table, minute).
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write stores a frame as CSV with a header row and returns the file
// path. The timestamp is truncated to the minute in the file name.
func (w *Writer) Write(model, name string, f *timeseries.Frame, at time.Time) (string, error) {
	filename := fmt.Sprintf("%s_%s_%s.csv", model, name, at.UTC().Format("20060102_1504"))
	path := filepath.Join(w.dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot %s: %w", filename, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	cols := f.Columns()

	header := append([]string{"utc_datetime"}, cols...)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		record[0] = f.Time(i).UTC().Format(time.RFC3339)
		for j, c := range cols {
			record[j+1] = strconv.FormatFloat(f.Value(i, c), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return path, nil
}
