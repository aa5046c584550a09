package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pharmadb-backend/internal/analysis"
	"pharmadb-backend/internal/models"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

var ErrUnknownTable = errors.New("unknown table")

// DataSource loads one named table as a typed dataset
type DataSource interface {
	LoadTable(ctx context.Context, name string) (*models.Dataset, error)
	Close() error
}

// DefaultCSVFiles maps table names to the files shipped with the dataset
var DefaultCSVFiles = map[string]string{
	models.TableFormulatedDrugs:  "formulated_drugs.csv",
	models.TableDrugProducts:     "drug_products.csv",
	models.TableExcipients:       "excipients.csv",
	models.TableFormulations:     "formulations.csv",
	models.TableParentDrugs:      "parent_drugs.csv",
	models.TableAssociationRules: "streamlit_app_data.csv",
}

// CSVDataSource reads tables from CSV files in one directory
type CSVDataSource struct {
	Dir   string
	Files map[string]string
	csv   *analysis.CSVService
}

// NewCSVDataSource uses DefaultCSVFiles, with the rules file overridable
func NewCSVDataSource(dir, rulesFile string) *CSVDataSource {
	files := make(map[string]string, len(DefaultCSVFiles))
	for k, v := range DefaultCSVFiles {
		files[k] = v
	}
	if rulesFile != "" {
		files[models.TableAssociationRules] = rulesFile
	}
	return &CSVDataSource{Dir: dir, Files: files, csv: analysis.NewCSVService()}
}

func (c *CSVDataSource) LoadTable(ctx context.Context, name string) (*models.Dataset, error) {
	file, ok := c.Files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.csv.ParseFile(name, filepath.Join(c.Dir, file))
}

func (c *CSVDataSource) Close() error {
	return nil
}

// SQLDataSource reads tables from a database/sql connection. Postgres and
// SQLite share it; only the driver and identifier quoting differ.
type SQLDataSource struct {
	db     *sql.DB
	driver string
}

// OpenPostgres connects with a lib/pq connection string
func OpenPostgres(dsn string) (*SQLDataSource, error) {
	return openSQL("postgres", dsn)
}

// OpenSQLite opens a SQLite database file
func OpenSQLite(path string) (*SQLDataSource, error) {
	return openSQL("sqlite", path)
}

func openSQL(driver, dsn string) (*SQLDataSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &SQLDataSource{db: db, driver: driver}, nil
}

func (p *SQLDataSource) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLDataSource) quote(name string) string {
	if p.driver == "postgres" {
		return pq.QuoteIdentifier(name)
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// LoadTable reads every row of a known table. Names outside the catalog are
// rejected before any query is built.
func (p *SQLDataSource) LoadTable(ctx context.Context, name string) (*models.Dataset, error) {
	if _, ok := DefaultCSVFiles[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}

	rows, err := p.db.QueryContext(ctx, "SELECT * FROM "+p.quote(name))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]string
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}

		row := make([]string, len(columns))
		for i, val := range values {
			row[i] = cellText(val)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return analysis.BuildDataset(name, columns, data)
}

// cellText renders a driver value the way it would appear in a CSV export.
// NULL becomes the empty cell.
func cellText(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case time.Time:
		return v.Format("2006-01-02")
	}
	return fmt.Sprint(val)
}

// LoadCatalog loads all tables concurrently. Any failure is returned; the
// caller treats it as fatal.
func LoadCatalog(ctx context.Context, src DataSource) (*models.Catalog, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]*models.Dataset, len(models.TableNames))

	for i, name := range models.TableNames {
		i, name := i, name
		g.Go(func() error {
			ds, err := src.LoadTable(ctx, name)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			results[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make(map[string]*models.Dataset, len(results))
	for i, name := range models.TableNames {
		tables[name] = results[i]
		log.Printf("Loaded %s: %d rows, %d columns", name, results[i].Len(), results[i].Schema().Len())
	}
	return models.NewCatalog(tables)
}
