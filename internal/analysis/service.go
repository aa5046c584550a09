package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"pharmadb-backend/internal/models"
)

var (
	ErrEmptyFile        = errors.New("file has no header row")
	ErrNoNumericValues  = errors.New("no numeric values")
	ErrMalformedCSVFile = errors.New("malformed csv")
)

// missingTokens are read as null, following the usual CSV reader defaults.
var missingTokens = map[string]bool{
	"":       true,
	"NA":     true,
	"N/A":    true,
	"NaN":    true,
	"nan":    true,
	"NULL":   true,
	"null":   true,
	"None":   true,
	"<NA>":   true,
	"#N/A":   true,
	"#NA":    true,
	"-NaN":   true,
	"-nan":   true,
	"n/a":    true,
	"1.#IND": true,
}

type CSVService struct{}

func NewCSVService() *CSVService {
	return &CSVService{}
}

// ParseFile reads a CSV file with a header row into a typed dataset
func (s *CSVService) ParseFile(name, filePath string) (*models.Dataset, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	ds, err := s.Parse(name, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return ds, nil
}

// Parse reads CSV from r. Every row must have as many fields as the header.
func (s *CSVService) Parse(name string, r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedCSVFile, err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := [][]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSVFile, err)
		}
		rows = append(rows, record)
	}

	return BuildDataset(name, headers, rows)
}

// BuildDataset infers a type for every column and converts the raw cells.
// Types are resolved here once so that readers never guess at access time.
func BuildDataset(name string, headers []string, rows [][]string) (*models.Dataset, error) {
	columns := make([]models.Column, len(headers))
	for i, h := range headers {
		columns[i] = models.Column{Name: h, Type: inferColumnType(rows, i)}
	}
	schema, err := models.NewSchema(columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	values := make([][]models.Value, len(rows))
	for r, row := range rows {
		cells := make([]models.Value, len(row))
		for i, raw := range row {
			if i >= len(columns) {
				break
			}
			cells[i] = parseCell(raw, columns[i].Type)
		}
		values[r] = cells
	}
	return models.NewDataset(name, schema, values)
}

func isMissing(val string) bool {
	return missingTokens[strings.TrimSpace(val)]
}

// inferColumnType scans every row: a column is numeric when all its
// non-missing cells parse as numbers, boolean when they are all True/False.
func inferColumnType(rows [][]string, colIndex int) models.ColumnType {
	isFloat := true
	isBool := true
	seen := false

	for _, row := range rows {
		if colIndex >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[colIndex])
		if isMissing(val) {
			continue
		}
		seen = true
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			isFloat = false
		}
		if !isBoolString(val) {
			isBool = false
		}
		if !isFloat && !isBool {
			break
		}
	}

	switch {
	case !seen:
		return models.ColumnText
	case isFloat:
		return models.ColumnNumeric
	case isBool:
		return models.ColumnBoolean
	}
	return models.ColumnText
}

func isBoolString(val string) bool {
	switch val {
	case "True", "False", "TRUE", "FALSE", "true", "false":
		return true
	}
	return false
}

func parseCell(raw string, colType models.ColumnType) models.Value {
	if isMissing(raw) {
		return models.NullValue()
	}
	switch colType {
	case models.ColumnNumeric:
		trimmed := strings.TrimSpace(raw)
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			break
		}
		// inf and Infinity have no JSON form; they count as missing
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return models.NullValue()
		}
		return models.NumberValue(f, trimmed)
	case models.ColumnBoolean:
		trimmed := strings.TrimSpace(raw)
		return models.BoolValue(strings.EqualFold(trimmed, "true"), trimmed)
	}
	return models.TextValue(raw)
}

// ColumnStats summarises the numeric cells of a column
type ColumnStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// CalculateStats computes basic stats over the numeric cells; nulls and
// non-numeric cells are skipped.
func CalculateStats(column []models.Value) (ColumnStats, error) {
	values := []float64{}
	for _, v := range column {
		if f, ok := v.Float(); ok {
			values = append(values, f)
		}
	}

	if len(values) == 0 {
		return ColumnStats{}, ErrNoNumericValues
	}

	sort.Float64s(values)
	stats := ColumnStats{
		Count: len(values),
		Min:   values[0],
		Max:   values[len(values)-1],
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	if len(values)%2 == 0 {
		stats.Median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	} else {
		stats.Median = values[len(values)/2]
	}

	return stats, nil
}
