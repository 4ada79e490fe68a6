// Package exporter turns directory listings into uniformly shaped reports.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/praetorian-inc/approles/pkg/paging"
	"github.com/praetorian-inc/approles/pkg/resolver"
	"github.com/praetorian-inc/approles/pkg/types"
)

// Directory is the listing side of the directory client
type Directory interface {
	ServicePrincipals(filter string) paging.PageFunc[types.ServicePrincipal]
	Applications(filter string) paging.PageFunc[types.Application]
	AppRoleAssignedTo(servicePrincipalID string) paging.PageFunc[types.RoleAssignment]
}

// Resolver classifies assignment principals
type Resolver interface {
	Resolve(ctx context.Context, id string) resolver.Result
}

type Mode int

const (
	// ModeApplications dumps every service principal or application registration
	ModeApplications Mode = iota
	// ModeAssignments exports the role assignments of one service principal
	ModeAssignments
	// ModeAllAssignments exports the role assignments of every service principal
	ModeAllAssignments
)

func (m Mode) String() string {
	switch m {
	case ModeApplications:
		return "applications"
	case ModeAssignments:
		return "assignments"
	case ModeAllAssignments:
		return "all-assignments"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Source selects what ModeApplications lists
type Source string

const (
	SourceServicePrincipals Source = "serviceprincipals"
	SourceApplications      Source = "applications"
)

// ParseSource validates a --source value
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case "", SourceServicePrincipals:
		return SourceServicePrincipals, nil
	case SourceApplications:
		return SourceApplications, nil
	default:
		return "", fmt.Errorf("unknown source %q, expected %s or %s", s, SourceServicePrincipals, SourceApplications)
	}
}

type Target struct {
	Mode Mode
	// Used by ModeApplications
	Source Source
	// Used by ModeAssignments
	ServicePrincipal types.ServicePrincipal
}

var AssignmentColumns = []string{
	"AppName",
	"AppId",
	"PrincipalId",
	"PrincipalName",
	"PrincipalType",
	"PrincipalEmail",
	"AppRoleId",
	"AppRoleName",
	"CreatedDateTime",
}

var ServicePrincipalColumns = []string{
	"Id",
	"AppId",
	"DisplayName",
	"AccountEnabled",
	"ServicePrincipalType",
	"AppOwnerOrganizationId",
	"Homepage",
	"ReplyUrls",
	"Tags",
	"AppRoles",
}

var ApplicationColumns = []string{
	"Id",
	"AppId",
	"DisplayName",
	"SignInAudience",
	"CreatedDateTime",
	"Homepage",
	"RedirectUris",
	"Tags",
	"AppRoles",
}

type Exporter struct {
	directory Directory
	resolver  Resolver
	logger    *slog.Logger
}

func New(directory Directory, principals Resolver, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		directory: directory,
		resolver:  principals,
		logger:    logger,
	}
}

// Export builds the whole report in memory. Any listing failure discards the
// rows gathered so far.
func (e *Exporter) Export(ctx context.Context, target Target) (*types.Report, error) {
	switch target.Mode {
	case ModeApplications:
		if target.Source == SourceApplications {
			return e.exportApplications(ctx)
		}
		return e.exportServicePrincipals(ctx)
	case ModeAssignments:
		if target.ServicePrincipal.ID == "" {
			return nil, fmt.Errorf("no service principal selected")
		}
		return e.exportAssignments(ctx, assignmentsReportName(target.ServicePrincipal), []types.ServicePrincipal{target.ServicePrincipal})
	case ModeAllAssignments:
		sps, err := paging.FetchAll(ctx, "list service principals", e.directory.ServicePrincipals(""))
		if err != nil {
			return nil, err
		}
		return e.exportAssignments(ctx, "all-assignments", sps)
	default:
		return nil, fmt.Errorf("unsupported export mode %s", target.Mode)
	}
}

func (e *Exporter) exportServicePrincipals(ctx context.Context) (*types.Report, error) {
	sps, err := paging.FetchAll(ctx, "list service principals", e.directory.ServicePrincipals(""))
	if err != nil {
		return nil, err
	}

	report := &types.Report{
		Name:    "service-principals",
		Kind:    types.ReportServicePrincipals,
		Columns: ServicePrincipalColumns,
		Rows:    make([]types.ExportRow, 0, len(sps)),
	}
	for _, sp := range sps {
		report.Rows = append(report.Rows, types.ExportRow{
			"Id":                     sp.ID,
			"AppId":                  sp.AppID,
			"DisplayName":            sp.DisplayName,
			"AccountEnabled":         strconv.FormatBool(sp.AccountEnabled),
			"ServicePrincipalType":   sp.ServicePrincipalType,
			"AppOwnerOrganizationId": sp.AppOwnerOrganizationID,
			"Homepage":               sp.Homepage,
			"ReplyUrls":              joinList(sp.ReplyURLs),
			"Tags":                   joinList(sp.Tags),
			"AppRoles":               roleNames(sp.AppRoles),
		})
	}
	report.Summary.Rows = len(report.Rows)

	e.logger.Info("Exported service principals", "count", len(report.Rows))
	return report, nil
}

func (e *Exporter) exportApplications(ctx context.Context) (*types.Report, error) {
	apps, err := paging.FetchAll(ctx, "list applications", e.directory.Applications(""))
	if err != nil {
		return nil, err
	}

	report := &types.Report{
		Name:    "applications",
		Kind:    types.ReportApplications,
		Columns: ApplicationColumns,
		Rows:    make([]types.ExportRow, 0, len(apps)),
	}
	for _, app := range apps {
		report.Rows = append(report.Rows, types.ExportRow{
			"Id":              app.ID,
			"AppId":           app.AppID,
			"DisplayName":     app.DisplayName,
			"SignInAudience":  app.SignInAudience,
			"CreatedDateTime": formatTime(app.CreatedDateTime),
			"Homepage":        app.Homepage,
			"RedirectUris":    joinList(app.RedirectURIs),
			"Tags":            joinList(app.Tags),
			"AppRoles":        roleNames(app.AppRoles),
		})
	}
	report.Summary.Rows = len(report.Rows)

	e.logger.Info("Exported application registrations", "count", len(report.Rows))
	return report, nil
}

func (e *Exporter) exportAssignments(ctx context.Context, name string, sps []types.ServicePrincipal) (*types.Report, error) {
	report := &types.Report{
		Name:    name,
		Kind:    types.ReportAssignments,
		Columns: AssignmentColumns,
		Rows:    []types.ExportRow{},
	}

	for _, sp := range sps {
		operation := fmt.Sprintf("list app role assignments for %s", sp.DisplayName)
		assignments, err := paging.FetchAll(ctx, operation, e.directory.AppRoleAssignedTo(sp.ID))
		if err != nil {
			return nil, err
		}
		e.logger.Debug("Fetched assignments", "app", sp.DisplayName, "id", sp.ID, "assignments", len(assignments))

		roles := declaredRoles(sp.AppRoles)
		for _, assignment := range assignments {
			// Lookups swallow cancellation as Errored, so check between rows.
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			result := e.resolver.Resolve(ctx, assignment.PrincipalID)
			report.Summary.Principals++
			switch result.Outcome {
			case resolver.Found:
				report.Summary.Resolved++
			case resolver.NotFound:
				report.Summary.NotFound++
			case resolver.Errored:
				report.Summary.LookupErrors++
			}

			role, matched := roleName(assignment, roles)
			if !matched {
				report.Summary.UnmatchedRoles++
				e.logger.Debug("Assignment role not declared by service principal", "app", sp.DisplayName, "appRoleId", assignment.AppRoleID)
			}

			report.Rows = append(report.Rows, types.ExportRow{
				"AppName":         sp.DisplayName,
				"AppId":           sp.AppID,
				"PrincipalId":     assignment.PrincipalID,
				"PrincipalName":   result.Principal.DisplayName,
				"PrincipalType":   string(result.Principal.Kind),
				"PrincipalEmail":  result.Principal.Email,
				"AppRoleId":       assignment.AppRoleID.String(),
				"AppRoleName":     role,
				"CreatedDateTime": formatTime(assignment.CreatedDateTime),
			})
		}
	}
	report.Summary.Rows = len(report.Rows)

	e.logger.Info("Exported app role assignments",
		"report", name,
		"applications", len(sps),
		"rows", report.Summary.Rows,
		"unresolved", report.Summary.Unresolved())
	return report, nil
}

func declaredRoles(roles []types.AppRole) map[string]types.AppRole {
	byID := make(map[string]types.AppRole, len(roles))
	for _, role := range roles {
		byID[role.ID.String()] = role
	}
	return byID
}

// roleName labels an assignment's role. matched is false when the role id is
// neither the default-access sentinel nor declared by the resource, in which
// case the id itself is used as the name.
func roleName(assignment types.RoleAssignment, roles map[string]types.AppRole) (string, bool) {
	if assignment.IsDefaultAccess() {
		return types.DefaultAccessRoleName, true
	}
	role, ok := roles[assignment.AppRoleID.String()]
	if !ok {
		return assignment.AppRoleID.String(), false
	}
	if role.DisplayName != "" {
		return role.DisplayName, true
	}
	if role.Value != "" {
		return role.Value, true
	}
	return assignment.AppRoleID.String(), true
}

func roleNames(roles []types.AppRole) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		name := role.DisplayName
		if name == "" {
			name = role.Value
		}
		names = append(names, name)
	}
	return joinList(names)
}

func joinList(items []string) string {
	return strings.Join(items, ";")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func assignmentsReportName(sp types.ServicePrincipal) string {
	if sp.DisplayName == "" {
		return sp.ID + "-assignments"
	}
	return sp.DisplayName + "-assignments"
}
