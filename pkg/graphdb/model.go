package graphdb

import (
	"fmt"

	"github.com/praetorian-inc/approles/pkg/types"
)

// HasAppRole links a principal to the service principal it holds a role on
const HasAppRole = "HAS_APP_ROLE"

// FromReport maps a report onto nodes and relationships. Service principals
// and applications are keyed by appId, principals by object id.
func FromReport(report *types.Report) ([]*Node, []*Relationship, error) {
	switch report.Kind {
	case types.ReportServicePrincipals:
		return rowNodes(report, "ServicePrincipal", map[string]string{
			"Id":                     "id",
			"AppId":                  "appId",
			"DisplayName":            "displayName",
			"AccountEnabled":         "accountEnabled",
			"ServicePrincipalType":   "servicePrincipalType",
			"AppOwnerOrganizationId": "appOwnerOrganizationId",
			"Homepage":               "homepage",
			"AppRoles":               "appRoles",
		}), nil, nil
	case types.ReportApplications:
		return rowNodes(report, "Application", map[string]string{
			"Id":              "id",
			"AppId":           "appId",
			"DisplayName":     "displayName",
			"SignInAudience":  "signInAudience",
			"CreatedDateTime": "createdDateTime",
			"AppRoles":        "appRoles",
		}), nil, nil
	case types.ReportAssignments:
		return nil, assignmentRelationships(report), nil
	default:
		return nil, nil, fmt.Errorf("report %q has no graph mapping", report.Name)
	}
}

func rowNodes(report *types.Report, label string, columns map[string]string) []*Node {
	nodes := make([]*Node, 0, len(report.Rows))
	for _, row := range report.Rows {
		props := make(map[string]any, len(columns))
		for column, property := range columns {
			props[property] = row[column]
		}
		nodes = append(nodes, &Node{
			Labels:     []string{label},
			Properties: props,
			UniqueKey:  []string{"appId"},
		})
	}
	return nodes
}

func assignmentRelationships(report *types.Report) []*Relationship {
	rels := make([]*Relationship, 0, len(report.Rows))
	for _, row := range report.Rows {
		if row["PrincipalId"] == "" {
			continue
		}

		principal := &Node{
			Labels: []string{"Principal", row["PrincipalType"]},
			Properties: map[string]any{
				"id":          row["PrincipalId"],
				"displayName": row["PrincipalName"],
				"email":       row["PrincipalEmail"],
				"kind":        row["PrincipalType"],
			},
			UniqueKey: []string{"id"},
		}
		app := &Node{
			Labels: []string{"ServicePrincipal"},
			Properties: map[string]any{
				"appId":       row["AppId"],
				"displayName": row["AppName"],
			},
			UniqueKey: []string{"appId"},
		}

		rels = append(rels, &Relationship{
			Type: HasAppRole,
			Properties: map[string]any{
				"appRoleId":       row["AppRoleId"],
				"appRoleName":     row["AppRoleName"],
				"createdDateTime": row["CreatedDateTime"],
			},
			UniqueKey: []string{"appRoleId"},
			StartNode: principal,
			EndNode:   app,
		})
	}
	return rels
}
