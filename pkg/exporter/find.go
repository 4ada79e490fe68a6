package exporter

import (
	"context"
	"fmt"

	"github.com/praetorian-inc/approles/pkg/graph"
	"github.com/praetorian-inc/approles/pkg/paging"
	"github.com/praetorian-inc/approles/pkg/types"
)

// Query narrows the service principals an assignment export can target.
// The first non-empty field wins; an empty Query matches everything.
type Query struct {
	ID     string
	AppID  string
	Name   string
	Prefix string
}

// Filter renders the query as an OData $filter expression
func (q Query) Filter() string {
	switch {
	case q.ID != "":
		return graph.Eq("id", q.ID)
	case q.AppID != "":
		return graph.Eq("appId", q.AppID)
	case q.Name != "":
		return graph.Eq("displayName", q.Name)
	case q.Prefix != "":
		return graph.StartsWith("displayName", q.Prefix)
	default:
		return ""
	}
}

func (q Query) String() string {
	switch {
	case q.ID != "":
		return fmt.Sprintf("object id %q", q.ID)
	case q.AppID != "":
		return fmt.Sprintf("app id %q", q.AppID)
	case q.Name != "":
		return fmt.Sprintf("display name %q", q.Name)
	case q.Prefix != "":
		return fmt.Sprintf("display name prefix %q", q.Prefix)
	default:
		return "any service principal"
	}
}

// NotFoundError means no service principal matched a Query
type NotFoundError struct {
	Query Query
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no service principal matched %s", e.Query)
}

func (e *NotFoundError) Unwrap() error {
	return types.ErrNotFound
}

// FindServicePrincipals lists the service principals matching q, failing with
// *NotFoundError when there are none.
func (e *Exporter) FindServicePrincipals(ctx context.Context, q Query) ([]types.ServicePrincipal, error) {
	sps, err := paging.FetchAll(ctx, "list service principals", e.directory.ServicePrincipals(q.Filter()))
	if err != nil {
		return nil, err
	}
	if len(sps) == 0 {
		return nil, &NotFoundError{Query: q}
	}

	e.logger.Debug("Matched service principals", "query", q.String(), "count", len(sps))
	return sps, nil
}
