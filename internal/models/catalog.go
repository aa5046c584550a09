package models

import (
	"errors"
	"fmt"
)

const (
	TableFormulatedDrugs  = "formulated_drugs"
	TableDrugProducts     = "drug_products"
	TableExcipients       = "excipients"
	TableFormulations     = "formulations"
	TableParentDrugs      = "parent_drugs"
	TableAssociationRules = "association_rules"
)

// TableNames lists every dataset the application needs at startup
var TableNames = []string{
	TableFormulatedDrugs,
	TableDrugProducts,
	TableExcipients,
	TableFormulations,
	TableParentDrugs,
	TableAssociationRules,
}

var ErrMissingTable = errors.New("missing table")

// Catalog holds the datasets loaded at startup. It is read-only and shared
// by every session.
type Catalog struct {
	tables map[string]*Dataset
}

func NewCatalog(tables map[string]*Dataset) (*Catalog, error) {
	c := &Catalog{tables: make(map[string]*Dataset, len(TableNames))}
	for _, name := range TableNames {
		ds, ok := tables[name]
		if !ok || ds == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingTable, name)
		}
		c.tables[name] = ds
	}
	return c, nil
}

// Table returns a dataset by name
func (c *Catalog) Table(name string) (*Dataset, bool) {
	ds, ok := c.tables[name]
	return ds, ok
}

func (c *Catalog) FormulatedDrugs() *Dataset  { return c.tables[TableFormulatedDrugs] }
func (c *Catalog) DrugProducts() *Dataset     { return c.tables[TableDrugProducts] }
func (c *Catalog) Excipients() *Dataset       { return c.tables[TableExcipients] }
func (c *Catalog) Formulations() *Dataset     { return c.tables[TableFormulations] }
func (c *Catalog) ParentDrugs() *Dataset      { return c.tables[TableParentDrugs] }
func (c *Catalog) AssociationRules() *Dataset { return c.tables[TableAssociationRules] }
