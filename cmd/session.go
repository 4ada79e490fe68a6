package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/approles/internal/helpers"
	"github.com/praetorian-inc/approles/internal/jq"
	"github.com/praetorian-inc/approles/internal/message"
	outputproviders "github.com/praetorian-inc/approles/internal/output_providers"
	"github.com/praetorian-inc/approles/pkg/exporter"
	"github.com/praetorian-inc/approles/pkg/graph"
	"github.com/praetorian-inc/approles/pkg/menu"
	"github.com/praetorian-inc/approles/pkg/resolver"
	"github.com/praetorian-inc/approles/pkg/types"
)

// session wires one export run together
type session struct {
	cfg      config
	exporter *exporter.Exporter
	resolver *resolver.PrincipalResolver
	sink     types.OutputProvider
	filter   *jq.RowFilter
}

// newSession validates local settings before authenticating so that typos
// fail fast.
func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	message.Banner()

	var filter *jq.RowFilter
	if where, _ := cmd.Flags().GetString("where"); where != "" {
		if filter, err = jq.Compile(where); err != nil {
			return nil, err
		}
	}

	sink, err := outputproviders.New(ctx, cfg.Format, outputproviders.Options{
		OutputPath: cfg.Output,
		Neo4j:      cfg.Neo4j,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, sink: sink, filter: filter}
	if err := s.connect(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// connect authenticates against the tenant and builds the directory pipeline
func (s *session) connect(ctx context.Context) error {
	cfg := s.cfg

	cred, err := helpers.GetAzureCredentials(cfg.TenantID)
	if err != nil {
		return err
	}
	graphClient, err := helpers.NewGraphClient(cred)
	if err != nil {
		return err
	}

	tenant, err := helpers.GetTenantDetails(ctx, graphClient)
	if err != nil {
		return fmt.Errorf("failed to connect to Microsoft Graph: %s", graph.ErrorMessage(err))
	}
	message.Info("Connected to tenant %s (%s)", message.Emphasize(tenant.Name), tenant.ID)
	slog.Debug("Tenant details", "name", tenant.Name, "id", tenant.ID, "domain", tenant.DefaultDomain)

	logger := slog.Default()
	client := graph.NewClient(graphClient, graph.Options{
		PageSize:          cfg.PageSize,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Retries:           cfg.Retries,
		Logger:            logger,
	})
	s.resolver = resolver.NewDefault(client, logger)
	s.exporter = exporter.New(client, s.resolver, logger)
	return nil
}

// Close releases sinks that hold connections
func (s *session) Close() error {
	if closer, ok := s.sink.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// selector prompts on a terminal and falls back to the first entry otherwise
func (s *session) selector() menu.Selector {
	fd := os.Stdin.Fd()
	if s.cfg.NonInteractive || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		return menu.First{}
	}
	return menu.New(menu.Options{
		Writer:   os.Stdout,
		Reader:   os.Stdin,
		Message:  "Select a service principal",
		PageSize: s.cfg.MenuPageSize,
	})
}

// finish filters, writes and summarizes a report
func (s *session) finish(ctx context.Context, report *types.Report) error {
	if s.filter != nil {
		dropped, err := s.filter.Apply(ctx, report)
		if err != nil {
			return err
		}
		slog.Info("Applied row filter", "kept", len(report.Rows), "dropped", dropped)
	}

	path, err := s.sink.Write(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if s.resolver != nil {
		stats := s.resolver.Stats()
		slog.Debug("Principal resolution", "lookups", stats.Lookups, "cacheHits", stats.CacheHits,
			"found", stats.Found, "notFound", stats.NotFound, "errored", stats.Errored)
	}
	for _, warning := range summaryWarnings(report.Summary) {
		message.Warning("%s", warning)
	}
	message.Success("%s written to %s (%d rows)", report.Name, path, len(report.Rows))
	return nil
}

func summaryWarnings(summary types.Summary) []string {
	var warnings []string
	if unresolved := summary.Unresolved(); unresolved > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d principals could not be resolved (%d not found, %d lookup errors)",
			unresolved, summary.Principals, summary.NotFound, summary.LookupErrors))
	}
	if summary.UnmatchedRoles > 0 {
		warnings = append(warnings, fmt.Sprintf("%d assignments reference an app role the application does not declare; the role id is used as its name",
			summary.UnmatchedRoles))
	}
	return warnings
}
