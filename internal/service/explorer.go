package service

import (
	"errors"
	"fmt"

	"pharmadb-backend/internal/models"
	"pharmadb-backend/internal/state"
)

var ErrInvalidEvent = errors.New("invalid event")

// EventType names one user interaction
type EventType string

const (
	EventSelectTab          EventType = "select_tab"
	EventSetSearchTerm      EventType = "set_search_term"
	EventSelectColumnFilter EventType = "select_column_filter"
	EventClearColumnFilter  EventType = "clear_column_filter"
	EventPagePrev           EventType = "page_prev"
	EventPageNext           EventType = "page_next"
	EventSelectRecord       EventType = "select_record"
	EventSelectEdgeLabel    EventType = "select_edge_label"
)

// Event is one interaction. Which fields are read depends on Type.
type Event struct {
	Type       EventType                `json:"type"`
	Tab        string                   `json:"tab,omitempty"`
	Text       string                   `json:"text,omitempty"`
	Filter     *models.ColumnFilterSpec `json:"filter,omitempty"`
	Column     string                   `json:"column,omitempty"`
	RecordID   string                   `json:"record_id,omitempty"`
	RecordName string                   `json:"record_name,omitempty"`
	Attribute  string                   `json:"attribute,omitempty"`
}

// ProductTile is the summary shown on one browser tile
type ProductTile struct {
	ProductID           string `json:"product_id"`
	ProductName         string `json:"product_name"`
	ATCCode             string `json:"atc_code"`
	AuthorisationStatus string `json:"authorisation_status"`
	DosageForm          string `json:"dosage_form"`
	TherapeuticGroup    string `json:"therapeutic_group"`
}

// BrowserView is the tile browser of a table tab
type BrowserView struct {
	Table string        `json:"table"`
	Term  string        `json:"term"`
	Page  Page          `json:"page"`
	Tiles []ProductTile `json:"tiles,omitempty"`
	// TileRows is Tiles laid out TilesPerRow to a row
	TileRows [][]ProductTile `json:"tile_rows,omitempty"`
}

// RulesView is the filtered rules table and its graph
type RulesView struct {
	Filters   []models.ColumnFilterSpec `json:"filters"`
	Columns   []models.Column           `json:"columns"`
	Prompts   map[string]string         `json:"prompts"`
	Domains   []ColumnDomain            `json:"domains"`
	Rows      []models.Record           `json:"rows"`
	Graph     *RuleGraph                `json:"graph"`
	EdgeLabel string                    `json:"edge_label"`
	Labels    []string                  `json:"label_choices"`
}

// View is everything the renderer needs after one event
type View struct {
	Tab     string       `json:"tab,omitempty"`
	Browser *BrowserView `json:"browser,omitempty"`
	Details *Details     `json:"details,omitempty"`
	Rules   *RulesView   `json:"rules,omitempty"`
}

// Explorer wires the core components over one immutable catalog
type Explorer struct {
	catalog  *models.Catalog
	rules    *models.Dataset
	filters  *ColumnFilterCompiler
	browser  *TileBrowser
	resolver *RelationalResolver
	graphs   *RuleGraphCompiler
	profiler *ColumnProfiler
}

// NewExplorer prepares the derived datasets (joins, normalised rules) once
func NewExplorer(catalog *models.Catalog) (*Explorer, error) {
	resolver, err := NewRelationalResolver(catalog)
	if err != nil {
		return nil, err
	}
	graphs := NewRuleGraphCompiler()
	rules, err := graphs.NormalizeRules(catalog.AssociationRules())
	if err != nil {
		return nil, err
	}
	return &Explorer{
		catalog:  catalog,
		rules:    rules,
		filters:  NewColumnFilterCompiler(),
		browser:  NewTileBrowser(),
		resolver: resolver,
		graphs:   graphs,
		profiler: NewColumnProfiler(),
	}, nil
}

func (e *Explorer) Catalog() *models.Catalog {
	return e.catalog
}

// Rules is the normalised rules dataset
func (e *Explorer) Rules() *models.Dataset {
	return e.rules
}

// Handle applies ev to st and recomputes the view. st is not modified; on
// error the caller keeps its previous state.
func (e *Explorer) Handle(ev Event, st state.SessionState) (state.SessionState, *View, error) {
	next := st.Clone()

	switch ev.Type {
	case EventSelectTab:
		if _, ok := e.catalog.Table(ev.Tab); !ok {
			return st, nil, fmt.Errorf("%w: unknown tab %q", ErrInvalidEvent, ev.Tab)
		}
		next.ActiveTab = ev.Tab

	case EventSetSearchTerm:
		tab := ev.Tab
		if tab == "" {
			tab = next.ActiveTab
		}
		if _, ok := e.catalog.Table(tab); !ok || tab == state.TabRules {
			return st, nil, fmt.Errorf("%w: tab %q has no search", ErrInvalidEvent, tab)
		}
		next.Search[tab] = next.SearchFor(tab).SetTerm(ev.Text)

	case EventPagePrev, EventPageNext:
		tab := next.ActiveTab
		ds, ok := e.catalog.Table(tab)
		if !ok || tab == state.TabRules {
			return st, nil, fmt.Errorf("%w: no browser on tab %q", ErrInvalidEvent, tab)
		}
		ss := next.SearchFor(tab)
		if ev.Type == EventPagePrev {
			ss = ss.Prev()
		} else {
			ss = ss.Next(TotalPages(e.browser.Search(ds, ss.Term).Len()))
		}
		next.Search[tab] = ss

	case EventSelectRecord:
		if ev.RecordID == "" {
			return st, nil, fmt.Errorf("%w: record_id is required", ErrInvalidEvent)
		}
		next.Selection = &state.Selection{ProductID: ev.RecordID, ProductName: ev.RecordName}
		next.ShowDetails = true

	case EventSelectColumnFilter:
		if ev.Filter == nil {
			return st, nil, fmt.Errorf("%w: filter is required", ErrInvalidEvent)
		}
		spec, err := e.filters.Validate(e.rules.Schema(), *ev.Filter)
		if err != nil {
			return st, nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		next.RuleFilters = upsertFilter(next.RuleFilters, spec)

	case EventClearColumnFilter:
		next.RuleFilters = removeFilter(next.RuleFilters, ev.Column)

	case EventSelectEdgeLabel:
		if !validLabel(ev.Attribute) {
			return st, nil, fmt.Errorf("%w: %v %q", ErrInvalidEvent, ErrUnknownLabel, ev.Attribute)
		}
		next.EdgeLabel = ev.Attribute

	default:
		return st, nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}

	view, err := e.Render(next)
	if err != nil {
		return st, nil, err
	}
	return next, view, nil
}

// Render recomputes the view of a session without changing it
func (e *Explorer) Render(st state.SessionState) (*View, error) {
	view := &View{Tab: st.ActiveTab}

	switch st.ActiveTab {
	case "":
		return view, nil
	case state.TabRules:
		rv, err := e.RulesView(st.RuleFilters, st.EdgeLabel)
		if err != nil {
			return nil, err
		}
		view.Rules = rv
	default:
		ss := st.SearchFor(st.ActiveTab)
		bv, err := e.Browse(st.ActiveTab, ss.Term, ss.Page)
		if err != nil {
			return nil, err
		}
		view.Browser = bv
		if st.ShowDetails && st.Selection != nil {
			view.Details = e.resolver.Resolve(st.Selection.ProductID)
		}
	}
	return view, nil
}

// Browse runs the tile browser over a named table
func (e *Explorer) Browse(table, term string, page int) (*BrowserView, error) {
	ds, ok := e.catalog.Table(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	p := e.browser.Browse(ds, term, page)
	bv := &BrowserView{Table: table, Term: term, Page: p}
	if table == models.TableDrugProducts {
		bv.Tiles = tiles(p.Records)
		for _, row := range p.Rows() {
			bv.TileRows = append(bv.TileRows, tiles(row))
		}
	}
	return bv, nil
}

// Details resolves the drill-down views of one product
func (e *Explorer) Details(productID string) *Details {
	return e.resolver.Resolve(productID)
}

// Product is the master record lookup; unknown ids are ErrProductNotFound
func (e *Explorer) Product(productID string) (*ProductDetail, error) {
	return e.resolver.Product(productID)
}

// FilterRules applies filters to the normalised rules
func (e *Explorer) FilterRules(filters []models.ColumnFilterSpec) (*models.Dataset, error) {
	return e.filters.Apply(e.rules, filters)
}

// RulesView filters the rules and compiles their graph. The graph is built
// with lift labels and relabelled when another metric is selected. Each
// filtered column's domain is the one its filter was resolved against.
func (e *Explorer) RulesView(filters []models.ColumnFilterSpec, label string) (*RulesView, error) {
	if label == "" {
		label = models.MetricLift
	}
	filtered, err := e.FilterRules(filters)
	if err != nil {
		return nil, err
	}
	graph, err := e.graphs.CompileDataset(filtered, models.MetricLift)
	if err != nil {
		return nil, err
	}
	if label != graph.LabelAttribute {
		if graph, err = e.graphs.Relabel(graph, label); err != nil {
			return nil, err
		}
	}
	domains, err := e.filters.FilterDomains(e.rules, filters)
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = []models.ColumnFilterSpec{}
	}
	columns := e.rules.Schema().Columns()
	prompts := make(map[string]string, len(columns))
	for _, col := range columns {
		prompts[col.Name] = FilterPrompt(col)
	}
	return &RulesView{
		Filters:   filters,
		Columns:   columns,
		Prompts:   prompts,
		Domains:   domains,
		Rows:      filtered.Records(),
		Graph:     graph,
		EdgeLabel: label,
		Labels:    EdgeLabelChoices,
	}, nil
}

// Columns describes a table for the filter picker
func (e *Explorer) Columns(table string) ([]models.Column, []ColumnDomain, []ColumnProfile, error) {
	ds, ok := e.catalog.Table(table)
	if table == models.TableAssociationRules {
		ds = e.rules
	}
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return ds.Schema().Columns(), e.filters.Domains(ds), e.profiler.ProfileAllColumns(ds), nil
}

func tiles(records []models.Record) []ProductTile {
	out := make([]ProductTile, len(records))
	for i, r := range records {
		out[i] = ProductTile{
			ProductID:           r.Value("product_id").String(),
			ProductName:         r.Value("product_name").String(),
			ATCCode:             r.Value("atc_code").String(),
			AuthorisationStatus: r.Value("authorisation_status").String(),
			DosageForm:          r.Value("dosage_form").String(),
			TherapeuticGroup:    r.Value("therapeutic_group").String(),
		}
	}
	return out
}

// upsertFilter replaces the filter on the same column or appends a new one
func upsertFilter(filters []models.ColumnFilterSpec, spec models.ColumnFilterSpec) []models.ColumnFilterSpec {
	for i, f := range filters {
		if f.Column == spec.Column {
			filters[i] = spec
			return filters
		}
	}
	return append(filters, spec)
}

func removeFilter(filters []models.ColumnFilterSpec, column string) []models.ColumnFilterSpec {
	out := filters[:0]
	for _, f := range filters {
		if f.Column != column {
			out = append(out, f)
		}
	}
	return out
}
