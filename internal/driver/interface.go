package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDriver is what the publisher needs from a graph database
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	// BuildIndices may fail for indexes that already exist; callers
	// usually log the error and carry on.
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
