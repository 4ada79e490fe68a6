// Package graphdb loads exported directory relationships into a graph database.
package graphdb

import (
	"context"
	"errors"
)

// Node represents a graph node with built-in identity management
type Node struct {
	// Labels for the node; the first label is used to match existing nodes
	Labels []string

	// Properties of the node
	Properties map[string]any

	// UniqueKey specifies which properties form the unique identity of this node
	// Multiple property names mean a composite key
	UniqueKey []string
}

// GetIdentity returns the identity map for this node based on its UniqueKey
func (n *Node) GetIdentity() map[string]any {
	if len(n.UniqueKey) == 0 {
		return nil
	}

	identity := make(map[string]any)
	for _, key := range n.UniqueKey {
		if val, exists := n.Properties[key]; exists {
			identity[key] = val
		}
	}
	return identity
}

// Relationship represents a graph relationship
type Relationship struct {
	// Type of relationship
	Type string

	// Properties of the relationship
	Properties map[string]any

	// UniqueKey lists the relationship properties that tell parallel
	// relationships of the same type apart
	UniqueKey []string

	// Start and end nodes - these must have UniqueKey defined
	StartNode *Node
	EndNode   *Node
}

// BatchResult contains results from a bulk operation
type BatchResult struct {
	NodesCreated         int
	PropertiesSet        int
	RelationshipsCreated int
	// Any errors encountered during the batch operation
	Errors []error
}

// Add folds other into b
func (b *BatchResult) Add(other *BatchResult) {
	if other == nil {
		return
	}
	b.NodesCreated += other.NodesCreated
	b.PropertiesSet += other.PropertiesSet
	b.RelationshipsCreated += other.RelationshipsCreated
	b.Errors = append(b.Errors, other.Errors...)
}

// Err joins the batch errors, or returns nil
func (b *BatchResult) Err() error {
	return errors.Join(b.Errors...)
}

// GraphDatabase defines the core interface for graph operations
type GraphDatabase interface {
	// Bulk node operations - will update existing nodes if they match on UniqueKey
	CreateNodes(ctx context.Context, nodes []*Node) (*BatchResult, error)

	// Bulk relationship operations - will create/update nodes as needed based on UniqueKey
	CreateRelationships(ctx context.Context, rels []*Relationship) (*BatchResult, error)

	// Verify connectivity to the database
	VerifyConnectivity(ctx context.Context) error

	Close() error
}

// Config holds database configuration
type Config struct {
	URI       string `json:"uri"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	BatchSize int    `json:"batchSize"`
}
