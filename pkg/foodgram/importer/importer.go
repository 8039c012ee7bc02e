// Package importer loads ingredients and tags from CSV files with a header row.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
	"gorm.io/gorm"
)

const (
	ModelIngredients = "ingredients"
	ModelTags        = "tags"

	batchSize = 500
)

var ErrUnknownModel = errors.New("unknown model, expected ingredients or tags")

// RowError reports an invalid row. Row counts the header as row 1.
type RowError struct {
	Row    int
	Fields map[string][]string
}

func (e *RowError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + strings.Join(e.Fields[k], " ")
	}
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(parts, "; "))
}

type ingredientRow struct {
	Name            string `json:"name" validate:"required,max=100"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=100"`
}

type tagRow struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"required,max=7,tagcolor"`
	Slug  string `json:"slug" validate:"omitempty,max=50"`
}

// ImportFile imports the CSV at path into model and returns the row count.
func ImportFile(db *gorm.DB, model, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Import(db, model, f)
}

// Import reads every row, validates it and inserts all of them in one
// transaction. Any invalid row aborts the import.
func Import(db *gorm.DB, model string, r io.Reader) (int, error) {
	switch model {
	case ModelIngredients:
		rows, err := readRows(r, []string{"name", "measurement_unit"}, func(rec map[string]string) ingredientRow {
			return ingredientRow{Name: rec["name"], MeasurementUnit: rec["measurement_unit"]}
		})
		if err != nil {
			return 0, err
		}
		ingredients := make([]models.Ingredient, len(rows))
		for i, row := range rows {
			ingredients[i] = models.Ingredient{Name: row.Name, MeasurementUnit: row.MeasurementUnit}
		}
		return insert(db, ingredients)

	case ModelTags:
		rows, err := readRows(r, []string{"name", "color"}, func(rec map[string]string) tagRow {
			return tagRow{Name: rec["name"], Color: rec["color"], Slug: rec["slug"]}
		})
		if err != nil {
			return 0, err
		}
		tags := make([]models.Tag, len(rows))
		for i, row := range rows {
			s := row.Slug
			if s == "" {
				s = slug.Make(row.Name)
			}
			tags[i] = models.Tag{Name: row.Name, Color: row.Color, Slug: s}
		}
		return insert(db, tags)

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
}

// readRows maps each record onto T by header name and validates it.
func readRows[T any](r io.Reader, required []string, build func(map[string]string) T) ([]T, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file, expected a header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("missing column %q in header %v", col, header)
		}
	}

	v := validation.New()
	var rows []T
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		values := make(map[string]string, len(header))
		for i, col := range header {
			values[col] = strings.TrimSpace(record[i])
		}
		row := build(values)
		if fields := v.Struct(row); fields != nil {
			return nil, &RowError{Row: line, Fields: fields}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func insert[T any](db *gorm.DB, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, batchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert rows: %w", err)
	}
	return len(rows), nil
}
