package service

import (
	"context"
	"fmt"
	"log"

	"pharmadb-backend/internal/driver"
	"pharmadb-backend/internal/models"
)

const (
	clearRulesQuery = `MATCH (n:Excipient) DETACH DELETE n`

	mergeNodesQuery = `UNWIND $nodes AS name
MERGE (:Excipient {name: name})`

	createEdgesQuery = `UNWIND $edges AS e
MATCH (a:Excipient {name: e.source}), (b:Excipient {name: e.target})
CREATE (a)-[:IMPLIES {key: e.key, support: e.support, confidence: e.confidence, coverage: e.coverage, lift: e.lift, count: e.count}]->(b)`
)

// GraphPublisher writes a compiled rule graph to a Bolt graph database,
// replacing whatever rule graph was published before.
type GraphPublisher struct {
	driver driver.GraphDriver
}

func NewGraphPublisher(d driver.GraphDriver) *GraphPublisher {
	return &GraphPublisher{driver: d}
}

// Publish stores every node and every parallel edge of g
func (p *GraphPublisher) Publish(ctx context.Context, g *RuleGraph) (models.PublishResponse, error) {
	if _, err := p.driver.ExecuteQuery(ctx, clearRulesQuery, nil); err != nil {
		return models.PublishResponse{}, fmt.Errorf("clear rule graph: %w", err)
	}

	nodes := make([]interface{}, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = n.ID
	}
	if _, err := p.driver.ExecuteQuery(ctx, mergeNodesQuery, map[string]interface{}{"nodes": nodes}); err != nil {
		return models.PublishResponse{}, fmt.Errorf("merge excipients: %w", err)
	}

	edges := make([]interface{}, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = map[string]interface{}{
			"source":     e.Source,
			"target":     e.Target,
			"key":        int64(e.Key),
			"support":    e.Support,
			"confidence": e.Confidence,
			"coverage":   e.Coverage,
			"lift":       e.Lift,
			"count":      int64(e.Count),
		}
	}
	if _, err := p.driver.ExecuteQuery(ctx, createEdgesQuery, map[string]interface{}{"edges": edges}); err != nil {
		return models.PublishResponse{}, fmt.Errorf("create rules: %w", err)
	}

	log.Printf("Published rule graph: %d excipients, %d rules", len(g.Nodes), len(g.Edges))
	return models.PublishResponse{Nodes: len(g.Nodes), Edges: len(g.Edges)}, nil
}
