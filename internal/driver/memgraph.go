package driver

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// excipientIndexes back the MATCH on :Excipient(name) when rule edges are
// published.
var excipientIndexes = []string{
	"CREATE INDEX ON :Excipient(name);",
}

// MemgraphDriver is a GraphDriver over a Bolt connection (Memgraph or Neo4j).
type MemgraphDriver struct {
	bolt neo4j.DriverWithContext
	uri  string
}

// NewMemgraphDriver connects and verifies the server answers before
// returning. The connection is closed again if verification fails.
func NewMemgraphDriver(ctx context.Context, uri, username, password string) (*MemgraphDriver, error) {
	bolt, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph driver for %s: %w", uri, err)
	}
	if err := bolt.VerifyConnectivity(ctx); err != nil {
		bolt.Close(ctx)
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}

	log.Printf("Connected to graph database at %s", uri)
	return &MemgraphDriver{bolt: bolt, uri: uri}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.bolt.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, d.bolt, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("query on %s: %w", d.uri, err)
	}
	return *res, nil
}

// BuildIndices runs every index statement even when one fails (an index
// that already exists may be reported as an error). Failures come back
// joined.
func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	return createIndexes(ctx, excipientIndexes, func(ctx context.Context, stmt string) error {
		_, err := d.ExecuteQuery(ctx, stmt, nil)
		return err
	})
}

func createIndexes(ctx context.Context, stmts []string, run func(context.Context, string) error) error {
	var errs []error
	for _, stmt := range stmts {
		if err := run(ctx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stmt, err))
		}
	}
	return errors.Join(errs...)
}
