// Package exercise loads the exercise dataset that workout plans are built from.
package exercise

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrMissingColumns is returned when the header lacks one of the required columns.
	ErrMissingColumns = errors.NewSentinel("dataset missing required columns")
	// ErrUnsupportedFormat is returned for files that are neither .csv nor .xlsx.
	ErrUnsupportedFormat = errors.NewSentinel("unsupported dataset format")
)

const (
	colID            = "id"
	colName          = "name"
	colDuration      = "exercise_duration"
	colCaloriesPerKg = "calories_burned_per_kg"
)

//nolint:gochecknoglobals // fixed header contract.
var requiredColumns = []string{colID, colName, colDuration, colCaloriesPerKg}

// Record is one exercise of the dataset.
//
// Columns other than the required ones are kept in Attributes so that they reach the prompt unchanged.
type Record struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	DurationMin       float64           `json:"exercise_duration"`
	CaloriesPerKg     float64           `json:"calories_burned_per_kg"`
	CaloriesPerMinute float64           `json:"calories_per_minute"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// Dataset is the cleaned, read-only sequence of exercises.
type Dataset struct {
	Records []Record
	// Dropped counts the rows removed as duplicates or for unusable numeric values.
	Dropped int
}

// ForWeight returns the dataset as prompt context for a person of weightKg. Each entry gets the
// total_calories_burned for one session at that weight.
func (d Dataset) ForWeight(weightKg float64) []map[string]any {
	out := make([]map[string]any, 0, len(d.Records))
	for _, r := range d.Records {
		entry := make(map[string]any, len(r.Attributes)+6) //nolint:mnd // fixed fields.
		for k, v := range r.Attributes {
			entry[k] = v
		}
		entry[colID] = r.ID
		entry[colName] = r.Name
		entry[colDuration] = r.DurationMin
		entry[colCaloriesPerKg] = r.CaloriesPerKg
		entry["calories_per_minute"] = r.CaloriesPerMinute
		entry["total_calories_burned"] = fitness.ExerciseCalories(r.CaloriesPerKg, weightKg)
		out = append(out, entry)
	}
	return out
}

// MarshalJSON encodes only the records.
func (d Dataset) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(d.Records)
	if err != nil {
		return nil, errors.Wrap(err, "marshal records")
	}
	return b, nil
}

// Load reads the dataset at path, choosing the parser by file extension.
func Load(ctx context.Context, logger *slog.Logger, path string) (Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return Dataset{}, errors.Wrap(err, "open dataset", slog.String("path", path))
		}
		defer f.Close()
		ds, err = LoadCSV(f)
	case ".xlsx":
		ds, err = LoadXLSX(path)
	default:
		return Dataset{}, errors.Wrap(ErrUnsupportedFormat, "load dataset", slog.String("extension", ext))
	}
	if err != nil {
		return Dataset{}, errors.Wrap(err, "load dataset", slog.String("path", path))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "loaded exercise dataset",
		slog.String("path", path),
		slog.Int("exercises", len(ds.Records)),
		slog.Int("dropped", ds.Dropped))
	return ds, nil
}

// LoadCSV parses a CSV dataset with a header row.
func LoadCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, errors.Wrap(err, "read csv")
	}
	return fromRows(rows)
}

// LoadXLSX parses the first sheet of an Excel workbook.
func LoadXLSX(path string) (Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, errors.Wrap(ErrMissingColumns, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, errors.Wrap(err, "read rows", slog.String("sheet", sheets[0]))
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (Dataset, error) {
	if len(rows) == 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		header[i] = h
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var ds Dataset
	seen := make(map[string]bool, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(col string) string {
			if i := index[col]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		if isBlank(row) {
			continue
		}
		id := cell(colID)
		if id == "" || seen[id] {
			ds.Dropped++
			continue
		}
		seen[id] = true

		duration, err1 := strconv.ParseFloat(cell(colDuration), 64)
		perKg, err2 := strconv.ParseFloat(cell(colCaloriesPerKg), 64)
		if err1 != nil || err2 != nil || !finite(duration) || !finite(perKg) {
			ds.Dropped++
			continue
		}
		perMinute, err := fitness.CaloriesPerMinute(perKg, duration)
		if err != nil {
			ds.Dropped++
			continue
		}

		rec := Record{
			ID:                id,
			Name:              cell(colName),
			DurationMin:       duration,
			CaloriesPerKg:     perKg,
			CaloriesPerMinute: perMinute,
			Attributes:        nil,
		}
		for i, h := range header {
			if h == "" || slices.Contains(requiredColumns, h) || i >= len(row) {
				continue
			}
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]string)
			}
			rec.Attributes[h] = strings.TrimSpace(row[i])
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
