package outputproviders

import (
	"context"
	"fmt"
	"io"

	"github.com/praetorian-inc/approles/pkg/types"
)

// ConsoleProvider prints the report as a markdown table instead of writing a file
type ConsoleProvider struct {
	w io.Writer
}

func NewConsoleProvider(w io.Writer) *ConsoleProvider {
	return &ConsoleProvider{w: w}
}

func (cp *ConsoleProvider) Write(ctx context.Context, report *types.Report) (string, error) {
	if _, err := fmt.Fprintln(cp.w, report.Table().ToString()); err != nil {
		return "", err
	}
	return "stdout", nil
}
