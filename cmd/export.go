package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/approles/internal/message"
	"github.com/praetorian-inc/approles/pkg/exporter"
	"github.com/praetorian-inc/approles/pkg/menu"
	"github.com/praetorian-inc/approles/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "export commands",
	Long:  `Export applications and app role assignments from Microsoft Graph.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var exportAppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Export every service principal or application registration",
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceFlag, _ := cmd.Flags().GetString("source")
		source, err := exporter.ParseSource(sourceFlag)
		if err != nil {
			return err
		}

		s, err := newSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		message.Section("Exporting %s", source)
		report, err := s.exporter.Export(cmd.Context(), exporter.Target{Mode: exporter.ModeApplications, Source: source})
		if err != nil {
			return err
		}
		return s.finish(cmd.Context(), report)
	},
}

var exportAssignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Export the app role assignments of one application",
	Long: `Export the app role assignments of one application.

Without a filter every service principal is listed and one is picked from a
paged menu. When a filter matches several service principals the menu is used
to disambiguate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := queryFromFlags(cmd)

		s, err := newSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		sps, err := s.exporter.FindServicePrincipals(cmd.Context(), query)
		if err != nil {
			return err
		}

		sp, err := s.choose(sps, query)
		if errors.Is(err, menu.ErrCancelled) {
			message.Info("Selection cancelled, nothing written")
			return nil
		}
		if err != nil {
			return err
		}

		message.Section("Exporting assignments for %s", sp.DisplayName)
		report, err := s.exporter.Export(cmd.Context(), exporter.Target{Mode: exporter.ModeAssignments, ServicePrincipal: sp})
		if err != nil {
			return err
		}
		return s.finish(cmd.Context(), report)
	},
}

var exportAllAssignmentsCmd = &cobra.Command{
	Use:   "all-assignments",
	Short: "Export the app role assignments of every service principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		message.Section("Exporting assignments for all service principals")
		report, err := s.exporter.Export(cmd.Context(), exporter.Target{Mode: exporter.ModeAllAssignments})
		if err != nil {
			return err
		}
		return s.finish(cmd.Context(), report)
	},
}

func init() {
	exportAppsCmd.Flags().String("source", string(exporter.SourceServicePrincipals), "what to list: serviceprincipals or applications")

	flags := exportAssignmentsCmd.Flags()
	flags.String("app", "", "exact service principal display name")
	flags.String("match", "", "service principal display name prefix")
	flags.String("id", "", "service principal object id")
	flags.String("app-id", "", "application (client) id")
	exportAssignmentsCmd.MarkFlagsMutuallyExclusive("app", "match", "id", "app-id")

	for _, c := range []*cobra.Command{exportAppsCmd, exportAssignmentsCmd, exportAllAssignmentsCmd} {
		c.Flags().String("where", "", `jq expression rows must satisfy, e.g. '.PrincipalType == "User"'`)
		exportCmd.AddCommand(c)
	}
	rootCmd.AddCommand(exportCmd)
}

func queryFromFlags(cmd *cobra.Command) exporter.Query {
	var q exporter.Query
	q.Name, _ = cmd.Flags().GetString("app")
	q.Prefix, _ = cmd.Flags().GetString("match")
	q.ID, _ = cmd.Flags().GetString("id")
	q.AppID, _ = cmd.Flags().GetString("app-id")
	return q
}

// choose picks the export target among the matching service principals
func (s *session) choose(sps []types.ServicePrincipal, query exporter.Query) (types.ServicePrincipal, error) {
	if len(sps) == 1 {
		return sps[0], nil
	}

	sorted := slices.Clone(sps)
	slices.SortStableFunc(sorted, func(a, b types.ServicePrincipal) int {
		return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
	})

	selector := s.selector()
	if _, ok := selector.(menu.First); ok {
		message.Warning("%d service principals matched %s; using %s (%s)", len(sorted), query, sorted[0].DisplayName, sorted[0].AppID)
	}
	return menu.Choose(selector, sorted, servicePrincipalLabel)
}

func servicePrincipalLabel(sp types.ServicePrincipal) string {
	label := fmt.Sprintf("%s (appId %s)", sp.DisplayName, sp.AppID)
	if !sp.AccountEnabled {
		label += " [disabled]"
	}
	return label
}
