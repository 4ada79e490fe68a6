package outputproviders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/praetorian-inc/approles/pkg/graphdb"
	"github.com/praetorian-inc/approles/pkg/types"
)

// Neo4jProvider merges reports into a graph database instead of writing a file
type Neo4jProvider struct {
	db       graphdb.GraphDatabase
	location string
}

func NewNeo4jProvider(db graphdb.GraphDatabase, location string) *Neo4jProvider {
	return &Neo4jProvider{db: db, location: location}
}

func (p *Neo4jProvider) Write(ctx context.Context, report *types.Report) (string, error) {
	nodes, rels, err := graphdb.FromReport(report)
	if err != nil {
		return "", err
	}

	total := &graphdb.BatchResult{}

	result, err := p.db.CreateNodes(ctx, nodes)
	if err != nil {
		return "", fmt.Errorf("failed to create nodes: %w", err)
	}
	total.Add(result)

	result, err = p.db.CreateRelationships(ctx, rels)
	if err != nil {
		return "", fmt.Errorf("failed to create relationships: %w", err)
	}
	total.Add(result)

	if err := total.Err(); err != nil {
		return "", fmt.Errorf("failed to load %s into %s: %w", report.Name, p.location, err)
	}

	slog.Info("Loaded report into graph database",
		"report", report.Name,
		"nodesCreated", total.NodesCreated,
		"relationshipsCreated", total.RelationshipsCreated,
		"propertiesSet", total.PropertiesSet)
	return p.location, nil
}

func (p *Neo4jProvider) Close() error {
	return p.db.Close()
}
