package outputproviders

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/praetorian-inc/approles/pkg/graphdb"
	"github.com/praetorian-inc/approles/pkg/types"
)

// Format names accepted by --format
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatConsole  = "console"
	FormatNeo4j    = "neo4j"
)

var Formats = []string{FormatCSV, FormatJSON, FormatMarkdown, FormatConsole, FormatNeo4j}

type Options struct {
	// Directory file sinks write under
	OutputPath string
	Neo4j      graphdb.Config
}

// New returns the sink for format. The neo4j sink connects immediately and
// must be closed by the caller.
func New(ctx context.Context, format string, opts Options) (types.OutputProvider, error) {
	switch strings.ToLower(format) {
	case "", FormatCSV:
		return NewCSVFileProvider(opts.OutputPath), nil
	case FormatJSON:
		return NewJsonFileProvider(opts.OutputPath), nil
	case FormatMarkdown, "markdown":
		return NewMarkdownFileProvider(opts.OutputPath), nil
	case FormatConsole:
		return NewConsoleProvider(os.Stdout), nil
	case FormatNeo4j:
		db, err := graphdb.NewNeo4jDatabase(ctx, opts.Neo4j)
		if err != nil {
			return nil, err
		}
		return NewNeo4jProvider(db, opts.Neo4j.URI), nil
	default:
		return nil, fmt.Errorf("unknown output format %q, expected one of %s", format, strings.Join(Formats, ", "))
	}
}

// fileSink holds what every file-backed provider shares
type fileSink struct {
	OutputPath string
	Now        func() time.Time
}

func (s fileSink) create(report *types.Report, ext string) (*os.File, string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return CreateExclusive(s.OutputPath, DefaultFileName(report.Name, ext, now()))
}

// writeAndClose runs write against file and closes it, removing the file if
// either step fails so no truncated report is left behind.
func writeAndClose(file *os.File, fullpath string, write func(w io.Writer) error) error {
	err := write(file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullpath)
		return fmt.Errorf("failed to write %s: %w", fullpath, err)
	}
	return nil
}
