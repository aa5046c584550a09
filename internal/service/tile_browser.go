package service

import (
	"strings"

	"pharmadb-backend/internal/models"

	"golang.org/x/text/cases"
)

const (
	// PageSize is the number of records on one browser page
	PageSize = 12
	// TilesPerRow is how many tiles the UI lays out per row
	TilesPerRow = 4
)

// Page is one page of browser results plus pagination metadata
type Page struct {
	Records      []models.Record `json:"records"`
	TotalResults int             `json:"total_results"`
	TotalPages   int             `json:"total_pages"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TilesPerRow  int             `json:"tiles_per_row"`
}

// TileBrowser searches a dataset by free text and pages the result
type TileBrowser struct{}

func NewTileBrowser() *TileBrowser {
	return &TileBrowser{}
}

// TotalPages is ceil(totalResults / PageSize); zero results give zero pages.
func TotalPages(totalResults int) int {
	return (totalResults + PageSize - 1) / PageSize
}

// Search keeps the records where any cell contains term, ignoring case.
// An empty term keeps everything.
func (b *TileBrowser) Search(ds *models.Dataset, term string) *models.Dataset {
	if term == "" {
		return ds
	}
	fold := cases.Fold()
	needle := fold.String(term)
	return ds.Where(func(r models.Record) bool {
		for _, v := range r.Values() {
			if v.IsNull() {
				continue
			}
			if strings.Contains(fold.String(v.String()), needle) {
				return true
			}
		}
		return false
	})
}

// Paginate returns page (1-based) of ds. A page outside [1, TotalPages]
// yields no records and echoes the requested page number.
func (b *TileBrowser) Paginate(ds *models.Dataset, page int) Page {
	total := ds.Len()
	p := Page{
		Records:      []models.Record{},
		TotalResults: total,
		TotalPages:   TotalPages(total),
		Page:         page,
		PageSize:     PageSize,
		TilesPerRow:  TilesPerRow,
	}
	if page < 1 || page > p.TotalPages {
		return p
	}
	start := (page - 1) * PageSize
	p.Records = ds.Slice(start, start+PageSize)
	return p
}

// Browse searches then paginates
func (b *TileBrowser) Browse(ds *models.Dataset, term string, page int) Page {
	return b.Paginate(b.Search(ds, term), page)
}

// Rows groups the page's records into rows of TilesPerRow for display
func (p Page) Rows() [][]models.Record {
	var rows [][]models.Record
	for i := 0; i < len(p.Records); i += TilesPerRow {
		end := i + TilesPerRow
		if end > len(p.Records) {
			end = len(p.Records)
		}
		rows = append(rows, p.Records[i:end])
	}
	return rows
}
