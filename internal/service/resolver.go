package service

import (
	"errors"
	"fmt"

	"pharmadb-backend/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// FieldLabel maps a column to the label shown next to its value
type FieldLabel struct {
	Column string
	Label  string
}

var productLabels = []FieldLabel{
	{"product_name", "Product Name"},
	{"ema_number", "EMA Number"},
	{"authorisation_status", "Authorization Status"},
	{"therapeutic_group", "Therapeutic Group"},
	{"dosage_form", "Dosage Form"},
	{"route", "Route of Administration"},
	{"indication", "Indication"},
	{"authorisation_date", "Authorisation Date"},
	{"authorisation_holder", "Authorisation Holder"},
}

var flagLabels = []FieldLabel{
	{"additional", "Additional Information"},
	{"generic", "Generic"},
	{"orphan", "Orphan Drug"},
	{"exceptional", "Exceptional Authorization"},
	{"accelerated", "Accelerated Approval"},
	{"conditional", "Conditional Approval"},
	{"patient_safety", "Patient Safety"},
}

var drugLabels = []FieldLabel{
	{"drug_substance", "Drug Substance in Product"},
	{"actives_by_dose", "Form of drug that dose refers to"},
	{"fa", "Bioavailability (fa)"},
	{"f", "Fraction Absorbed (f)"},
	{"tmax", "Time to Maximum Plasma Concentration in hours (tmax)"},
	{"vdss", "Volume of Distribution at steady state (L/kg)"},
	{"clearance", "Clearance (mL/min)"},
	{"fraction_unbound", "Fraction Unbound"},
	{"mrt", "Mean Residence Time (hours)"},
	{"terminal_half_life", "Terminal Half-Life (hours)"},
	{"dose_value", "Dose"},
	{"dose_unit", "Dose Unit"},
	{"pss_inchi", "Formulated drug InChI"},
	{"pss_inchikey", "Formulated drug InChI Key"},
	{"pss_smiles", "Formulated drug SMILES"},
	{"p_inchi", "Parent InChI"},
	{"p_inchikey", "Parent InChI Key"},
	{"p_smiles", "Parent SMILES"},
	{"p_chembl_id", "Parent ChEMBL ID"},
	{"notes", "Curation notes"},
}

var excipientLabels = []FieldLabel{
	{"product_id", "Product ID"},
	{"excipient_id", "Excipient ID"},
	{"excipient_name", "Excipient Name"},
	{"excipient_inchi", "Excipient InChI"},
	{"excipient_inchikey", "Excipient InChI Key"},
	{"excipient_chembl_id", "Excipient ChEMBL ID"},
	{"excipient_pchem_cid", "Excipient PubChem CID"},
}

// Attribute is one labelled value of a detail view
type Attribute struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Flag is one of the product's yes/no indicators
type Flag struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// Entry is one expandable row of the drug or excipient view
type Entry struct {
	Title      string      `json:"title"`
	Attributes []Attribute `json:"attributes"`
}

// ProductDetail is the master record of one product
type ProductDetail struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Attributes  []Attribute `json:"attributes"`
	Flags       []Flag      `json:"flags"`
}

// Details bundles every view of a selected product. NotFound is set when the
// id is absent from the product table; the sub-views are then still
// resolved, usually to nothing.
type Details struct {
	ProductID  string         `json:"product_id"`
	NotFound   bool           `json:"not_found"`
	Product    *ProductDetail `json:"product,omitempty"`
	Drugs      []Entry        `json:"drugs"`
	Excipients []Entry        `json:"excipients"`
}

// RelationalResolver answers drill-down queries for one product id. The two
// join pipelines are computed once; the datasets never change.
type RelationalResolver struct {
	products   *models.Dataset
	drugs      *models.Dataset
	excipients *models.Dataset
}

// NewRelationalResolver joins formulated_drugs with parent_drugs on
// parent_drug_id and formulations with excipients on excipient_id.
func NewRelationalResolver(catalog *models.Catalog) (*RelationalResolver, error) {
	drugs, err := models.LeftJoin(catalog.FormulatedDrugs(), catalog.ParentDrugs(), "parent_drug_id")
	if err != nil {
		return nil, fmt.Errorf("drug pipeline: %w", err)
	}
	excipients, err := models.LeftJoin(catalog.Formulations(), catalog.Excipients(), "excipient_id")
	if err != nil {
		return nil, fmt.Errorf("excipient pipeline: %w", err)
	}
	return &RelationalResolver{
		products:   catalog.DrugProducts(),
		drugs:      drugs,
		excipients: excipients,
	}, nil
}

// Product looks up the master record; an unknown id is ErrProductNotFound.
func (r *RelationalResolver) Product(id string) (*ProductDetail, error) {
	matches := byProductID(r.products, id)
	if matches.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	rec := matches.Record(0)
	return &ProductDetail{
		ProductID:   id,
		ProductName: rec.Value("product_name").String(),
		Attributes:  attributes(rec, productLabels),
		Flags:       Flags(rec),
	}, nil
}

// Drugs lists the product's formulated drugs with parent drug data
func (r *RelationalResolver) Drugs(id string) []Entry {
	return entries(byProductID(r.drugs, id), "drug_substance", drugLabels)
}

// Excipients lists the product's excipients
func (r *RelationalResolver) Excipients(id string) []Entry {
	return entries(byProductID(r.excipients, id), "excipient_name", excipientLabels)
}

// Resolve gathers all views of a product. It never fails; an absent id is
// reported through NotFound.
func (r *RelationalResolver) Resolve(id string) *Details {
	d := &Details{
		ProductID:  id,
		Drugs:      r.Drugs(id),
		Excipients: r.Excipients(id),
	}
	product, err := r.Product(id)
	if err != nil {
		d.NotFound = true
		return d
	}
	d.Product = product
	return d
}

// Flags reads the seven fixed indicators from a product record. A missing
// cell reads as false.
func Flags(rec models.Record) []Flag {
	flags := make([]Flag, len(flagLabels))
	for i, fl := range flagLabels {
		flags[i] = Flag{Label: fl.Label, Value: rec.Value(fl.Column).Truthy()}
	}
	return flags
}

func byProductID(ds *models.Dataset, id string) *models.Dataset {
	return ds.Where(func(rec models.Record) bool {
		return rec.Value("product_id").Equals(id)
	})
}

func entries(ds *models.Dataset, titleColumn string, labels []FieldLabel) []Entry {
	out := make([]Entry, 0, ds.Len())
	for _, rec := range ds.Records() {
		out = append(out, Entry{
			Title:      rec.Value(titleColumn).String(),
			Attributes: attributes(rec, labels),
		})
	}
	return out
}

// attributes renders rec against labels in order, leaving out null cells
// and columns the dataset does not have.
func attributes(rec models.Record, labels []FieldLabel) []Attribute {
	out := []Attribute{}
	for _, fl := range labels {
		v, ok := rec.Get(fl.Column)
		if !ok || v.IsNull() {
			continue
		}
		out = append(out, Attribute{Label: fl.Label, Value: v.String()})
	}
	return out
}
