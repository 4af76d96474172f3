package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// csvHeader is the shared tabular schema. Column order is part of the
// contract: downstream spreadsheets key on position.
var csvHeader = []string{
	"title", "price", "rating", "image",
	"product_link", "description", "search_query", "website",
}

// utf8BOM keeps Arabic titles readable when the file is opened in Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter appends listing batches to a CSV file. The header (and BOM) is
// written only when starting a fresh file.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	append bool
}

func NewCSVWriter(path string, appendMode bool) *CSVWriter {
	return &CSVWriter{path: path, append: appendMode}
}

// SaveListings writes the batch. The first write in overwrite mode, or any
// write creating the file, emits the BOM and header row.
func (w *CSVWriter) SaveListings(_ context.Context, listings []Record) error {
	if len(listings) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	writeHeader := true
	flags := os.O_CREATE | os.O_WRONLY
	if w.append {
		flags |= os.O_APPEND
		if info, err := os.Stat(w.path); err == nil && info.Size() > 0 {
			writeHeader = false
		}
	} else {
		flags |= os.O_TRUNC
	}

	fh, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer fh.Close()

	if writeHeader {
		if _, err := fh.Write(utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	cw := csv.NewWriter(fh)
	if writeHeader {
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, rec := range listings {
		row := []string{
			rec.Title,
			strconv.FormatFloat(rec.Price, 'f', 2, 64),
			strconv.FormatFloat(rec.Rating, 'f', -1, 64),
			rec.ImageURL,
			rec.ProductLink,
			rec.Description,
			rec.SearchQuery,
			rec.Website,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	// Subsequent batches in overwrite mode append to what this run wrote.
	w.append = true
	return nil
}
