package graphdb

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	// DefaultBatchSize is the default number of nodes/relationships to process in a single transaction
	DefaultBatchSize = 1000
)

var constraints = []string{
	"CREATE CONSTRAINT unique_service_principal_app_id IF NOT EXISTS FOR (n:ServicePrincipal) REQUIRE n.appId IS UNIQUE",
	"CREATE CONSTRAINT unique_application_app_id IF NOT EXISTS FOR (n:Application) REQUIRE n.appId IS UNIQUE",
	"CREATE CONSTRAINT unique_principal_id IF NOT EXISTS FOR (n:Principal) REQUIRE n.id IS UNIQUE",
}

type Neo4jDatabase struct {
	driver    neo4j.DriverWithContext
	batchSize int
}

// NewNeo4jDatabase connects, verifies connectivity and ensures the uniqueness
// constraints exist.
func NewNeo4jDatabase(ctx context.Context, config Config) (*Neo4jDatabase, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	db := &Neo4jDatabase{driver: driver, batchSize: batchSize}
	if err := db.VerifyConnectivity(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.initializeConstraints(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Neo4jDatabase) VerifyConnectivity(ctx context.Context) error {
	if err := db.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify connectivity: %w", err)
	}
	return nil
}

func (db *Neo4jDatabase) CreateNodes(ctx context.Context, nodes []*Node) (*BatchResult, error) {
	if len(nodes) == 0 {
		return &BatchResult{}, nil
	}

	for _, node := range nodes {
		if len(node.UniqueKey) == 0 {
			return nil, fmt.Errorf("node must have at least one unique key property")
		}
		if len(node.Labels) == 0 {
			return nil, fmt.Errorf("node must have at least one label")
		}
		if err := checkIdentity(node); err != nil {
			return nil, err
		}
	}

	// Group nodes by their labels and unique keys
	groups := make(map[string][]*Node)
	var order []string
	for _, node := range nodes {
		key := getNodeGroupKey(node.Labels, node.UniqueKey)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], node)
	}

	result := &BatchResult{}
	for _, key := range order {
		grouped := groups[key]
		query := buildBatchMergeQuery(grouped[0].Labels, grouped[0].UniqueKey)

		for batch := range chunks(grouped, db.batchSize) {
			params := map[string]any{"nodes": nodeListToParams(batch)}
			br, err := db.write(ctx, query, params)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("batch processing error: %w", err))
				continue
			}
			result.Add(br)
		}
	}
	return result, nil
}

func (db *Neo4jDatabase) CreateRelationships(ctx context.Context, rels []*Relationship) (*BatchResult, error) {
	if len(rels) == 0 {
		return &BatchResult{}, nil
	}

	groups := make(map[string][]*Relationship)
	var order []string
	for _, rel := range rels {
		if len(rel.StartNode.UniqueKey) == 0 || len(rel.EndNode.UniqueKey) == 0 {
			return nil, fmt.Errorf("both start and end nodes must have unique keys")
		}
		if err := checkIdentity(rel.StartNode); err != nil {
			return nil, err
		}
		if err := checkIdentity(rel.EndNode); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%s||%s||%s||%s",
			rel.Type,
			getNodeGroupKey(rel.StartNode.Labels, rel.StartNode.UniqueKey),
			getNodeGroupKey(rel.EndNode.Labels, rel.EndNode.UniqueKey),
			strings.Join(rel.UniqueKey, ":"))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rel)
	}

	result := &BatchResult{}
	for _, key := range order {
		grouped := groups[key]
		// Use first relationship in the group as template for the query
		query := buildRelationshipMergeQuery(grouped[0])
		slog.Debug("query", "cypher", query)

		for batch := range chunks(grouped, db.batchSize) {
			params := make([]map[string]any, len(batch))
			for i, rel := range batch {
				params[i] = map[string]any{
					"startProperties": rel.StartNode.Properties,
					"endProperties":   rel.EndNode.Properties,
					"properties":      rel.Properties,
				}
			}

			br, err := db.write(ctx, query, map[string]any{"rels": params})
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("batch processing error: %w", err))
				continue
			}
			result.Add(br)
		}
	}
	return result, nil
}

func (db *Neo4jDatabase) Close() error {
	if db.driver != nil {
		return db.driver.Close(context.Background())
	}
	return nil
}

// write runs one statement in a managed write transaction and returns its counters
func (db *Neo4jDatabase) write(ctx context.Context, query string, params map[string]any) (*BatchResult, error) {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get query stats: %w", err)
		}
		counters := summary.Counters()
		return &BatchResult{
			NodesCreated:         counters.NodesCreated(),
			PropertiesSet:        counters.PropertiesSet(),
			RelationshipsCreated: counters.RelationshipsCreated(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*BatchResult), nil
}

func (db *Neo4jDatabase) initializeConstraints(ctx context.Context) error {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, constraint := range constraints {
		res, err := session.Run(ctx, constraint, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// checkIdentity rejects nodes missing a unique key value; MERGE on a null
// property fails the whole batch.
func checkIdentity(node *Node) error {
	identity := node.GetIdentity()
	for _, key := range node.UniqueKey {
		if value, ok := identity[key]; !ok || value == nil {
			return fmt.Errorf("%s node is missing unique key property %q", labelString(node.Labels), key)
		}
	}
	return nil
}

func chunks[T any](items []T, size int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for i := 0; i < len(items); i += size {
			if !yield(items[i:min(i+size, len(items))]) {
				return
			}
		}
	}
}

func getNodeGroupKey(labels []string, uniqueKey []string) string {
	return fmt.Sprintf("%s||%s",
		strings.Join(labels, ":"),
		strings.Join(uniqueKey, ":"))
}

func labelString(labels []string) string {
	quoted := make([]string, len(labels))
	for i, label := range labels {
		quoted[i] = "`" + label + "`"
	}
	return strings.Join(quoted, ":")
}

func buildPropsString(uniqueKey []string, prefix string) string {
	parts := make([]string, len(uniqueKey))
	for i, key := range uniqueKey {
		parts[i] = fmt.Sprintf("%s: %s.%s", key, prefix, key)
	}
	return strings.Join(parts, ", ")
}

func buildBatchMergeQuery(labels []string, uniqueKey []string) string {
	return fmt.Sprintf(`
        UNWIND $nodes as node
        MERGE (n:%s {%s})
        ON CREATE SET n = node.properties, n._created = timestamp()
        ON MATCH SET n += node.properties, n._updated = timestamp()
        SET n:%s
    `, labelString(labels[:1]), buildPropsString(uniqueKey, "node.properties"), labelString(labels))
}

func nodeListToParams(nodes []*Node) []map[string]any {
	params := make([]map[string]any, len(nodes))
	for i, node := range nodes {
		params[i] = map[string]any{"properties": node.Properties}
	}
	return params
}

func buildRelationshipMergeQuery(rel *Relationship) string {
	start, end := rel.StartNode, rel.EndNode

	relProps := ""
	if len(rel.UniqueKey) > 0 {
		relProps = " {" + buildPropsString(rel.UniqueKey, "rel.properties") + "}"
	}

	return fmt.Sprintf(`
        UNWIND $rels as rel
        MERGE (start:%s {%s})
        ON CREATE SET start = rel.startProperties
        ON MATCH SET start += rel.startProperties
        SET start:%s

        MERGE (end:%s {%s})
        ON CREATE SET end = rel.endProperties
        ON MATCH SET end += rel.endProperties
        SET end:%s

        MERGE (start)-[r:%s%s]->(end)
        ON CREATE SET r = rel.properties, r._created = timestamp()
        ON MATCH SET r = rel.properties, r._updated = timestamp()
        RETURN count(r) as total
    `,
		labelString(start.Labels[:1]), buildPropsString(start.UniqueKey, "rel.startProperties"), labelString(start.Labels),
		labelString(end.Labels[:1]), buildPropsString(end.UniqueKey, "rel.endProperties"), labelString(end.Labels),
		labelString([]string{rel.Type}), relProps)
}
