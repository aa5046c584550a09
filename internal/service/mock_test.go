package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"pharmadb-backend/internal/analysis"
	"pharmadb-backend/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/require"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver records queries. When FailOn is n > 0, the n-th query
// returns Err.
type MockDriver struct {
	Queries []executedQuery
	FailOn  int
	Err     error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, executedQuery{Query: query, Params: params})
	if m.FailOn == len(m.Queries) {
		return neo4j.EagerResult{}, m.Err
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func parseDataset(t *testing.T, name, data string) *models.Dataset {
	t.Helper()
	ds, err := analysis.NewCSVService().Parse(name, strings.NewReader(data))
	require.NoError(t, err)
	return ds
}

// aspirinIDs are the products whose name mentions aspirin
var aspirinIDs = map[int]string{
	3:  "Aspirin 100mg",
	7:  "Aspirin Protect",
	15: "Cardio ASPIRIN",
}

func productsCSV() string {
	var b strings.Builder
	b.WriteString("product_id,product_name,ema_number,authorisation_status,therapeutic_group,dosage_form,route,atc_code,indication,authorisation_date,authorisation_holder,additional,generic,orphan,exceptional,accelerated,conditional,patient_safety\n")
	for i := 1; i <= 20; i++ {
		name := fmt.Sprintf("Product %d", i)
		if n, ok := aspirinIDs[i]; ok {
			name = n
		}
		indication := "Pain"
		if i == 3 {
			indication = ""
		}
		generic := "False"
		if i%3 == 0 {
			generic = "True"
		}
		fmt.Fprintf(&b, "%d,%s,EMEA/H/C/%03d,Authorised,Analgesics,Tablet,Oral,N02BA%02d,%s,2010-01-01,Holder Ltd,False,%s,False,False,False,False,True\n",
			i, name, i, i, indication, generic)
	}
	return b.String()
}

const formulatedDrugsCSV = `product_id,parent_drug_id,drug_substance,actives_by_dose,dose_value,dose_unit,notes
3,10,Acetylsalicylic acid,parent,100,mg,checked
3,11,Magnesium oxide,salt,,mg,
7,10,Acetylsalicylic acid,parent,75,mg,
`

const parentDrugsCSV = `parent_drug_id,p_smiles,p_chembl_id,p_inchikey,notes
10,CC(=O)OC1=CC=CC=C1C(=O)O,CHEMBL25,BSYNRYMUTXBXSQ-UHFFFAOYSA-N,parent
11,[Mg]=O,CHEMBL1200572,,
`

const formulationsCSV = `product_id,excipient_id
3,E1
3,E2
7,E1
`

const excipientsCSV = `excipient_id,excipient_name,excipient_chembl_id,excipient_pchem_cid
E1,Lactose,CHEMBL1233,6134
E2,Maize starch,,
`

const rulesCSV = `rule_id,LHS,RHS,support,confidence,coverage,lift,count
1,{Lactose},{Maize starch},0.2,0.8,0.25,3.2,40
2,{Maize starch},{Lactose},0.2,0.5,0.4,3.2,40
3,{Lactose},{Talc},0.05,0.2,0.25,1,10
4,{Talc},{Magnesium stearate},0.1,0.9,0.11,2.5,20
`

func testCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	catalog, err := models.NewCatalog(map[string]*models.Dataset{
		models.TableDrugProducts:     parseDataset(t, models.TableDrugProducts, productsCSV()),
		models.TableFormulatedDrugs:  parseDataset(t, models.TableFormulatedDrugs, formulatedDrugsCSV),
		models.TableParentDrugs:      parseDataset(t, models.TableParentDrugs, parentDrugsCSV),
		models.TableFormulations:     parseDataset(t, models.TableFormulations, formulationsCSV),
		models.TableExcipients:       parseDataset(t, models.TableExcipients, excipientsCSV),
		models.TableAssociationRules: parseDataset(t, models.TableAssociationRules, rulesCSV),
	})
	require.NoError(t, err)
	return catalog
}

func float(v float64) *float64 {
	return &v
}
