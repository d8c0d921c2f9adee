// Package catalog reads the seed catalog spreadsheet and writes the resolved
// output CSV. It is the file-facing layer around the imagefinder core, which
// only ever sees in-memory entries.
package catalog

import (
	"encoding/csv"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/seedpix/seedpix-go/internal/errors"
	"github.com/seedpix/seedpix-go/internal/imagefinder"
	"github.com/seedpix/seedpix-go/internal/logging"
)

// Record is one catalog row as read from the spreadsheet.
type Record struct {
	ID          string
	Genus       string
	Species     string
	CommonNames string
	ImageURL    string
}

// Expected column headers, matched after trimming and lower-casing. The
// legacy price list ships a "Species " header with a trailing space.
const (
	headerItemNo      = "item no."
	headerGenus       = "genus"
	headerSpecies     = "species"
	headerCommonNames = "common names"
	headerImageURL    = "image_url"
)

func serviceLogger() *slog.Logger {
	if l := logging.ForService("catalog"); l != nil {
		return l
	}
	return slog.Default().With("service", "catalog")
}

// ReadWorkbook reads catalog records from the first sheet of a workbook.
// Header cells are matched case-insensitively with surrounding whitespace
// trimmed; rows that are entirely blank are skipped.
func ReadWorkbook(path string) ([]Record, error) {
	logger := serviceLogger()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Debug("failed to close workbook", "path", path, "error", closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Newf("workbook has no sheets").
			Component("catalog").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Context("sheet", sheets[0]).
			Build()
	}
	if len(rows) == 0 {
		return nil, errors.Newf("catalog sheet %q is empty", sheets[0]).
			Component("catalog").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	col := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	for _, required := range []string{headerItemNo, headerGenus, headerSpecies} {
		if _, ok := col[required]; !ok {
			return nil, errors.Newf("catalog sheet is missing column %q", required).
				Component("catalog").
				Category(errors.CategoryFileParsing).
				Context("path", path).
				Context("headers", rows[0]).
				Build()
		}
	}

	cell := func(row []string, header string) string {
		idx, ok := col[header]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := Record{
			ID:          cell(row, headerItemNo),
			Genus:       cell(row, headerGenus),
			Species:     cell(row, headerSpecies),
			CommonNames: cell(row, headerCommonNames),
			ImageURL:    cell(row, headerImageURL),
		}
		if rec.ID == "" && rec.Genus == "" && rec.Species == "" && rec.CommonNames == "" {
			continue
		}
		records = append(records, rec)
	}

	logger.Info("catalog loaded", "path", path, "sheet", sheets[0], "records", len(records))
	return records, nil
}

// Entries converts records into the in-memory view the resolver consumes.
func Entries(records []Record) []imagefinder.CatalogEntry {
	entries := make([]imagefinder.CatalogEntry, 0, len(records))
	for i := range records {
		rec := &records[i]
		entries = append(entries, imagefinder.CatalogEntry{
			ID:          rec.ID,
			Genus:       rec.Genus,
			Species:     rec.Species,
			CommonNames: rec.CommonNames,
			ImageURL:    rec.ImageURL,
		})
	}
	return entries
}

// WriteCSV writes the catalog records merged with the resolution map to path,
// sorted by identifier. Unresolved identifiers get an empty image_url cell.
func WriteCSV(path string, records []Record, resolutions imagefinder.ResolutionMap) error {
	logger := serviceLogger()

	urls := make(map[string]string, len(resolutions))
	for i := range resolutions {
		urls[resolutions[i].ID] = resolutions[i].URL
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return strings.Compare(a.ID, b.ID)
	})

	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	w := csv.NewWriter(f)
	writeErr := w.Write([]string{"Item No.", "Genus", "Species", "Common Names", "image_url"})
	for i := range sorted {
		if writeErr != nil {
			break
		}
		rec := &sorted[i]
		writeErr = w.Write([]string{rec.ID, rec.Genus, rec.Species, rec.CommonNames, urls[rec.ID]})
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return errors.New(writeErr).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	logger.Info("resolved catalog written", "path", path, "records", len(sorted))
	return nil
}
