// Package jq filters report rows with a jq boolean expression.
package jq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/praetorian-inc/approles/pkg/types"
)

// RowFilter is a compiled --where expression
type RowFilter struct {
	expr string
	code *gojq.Code
}

func Compile(expr string) (*RowFilter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("jq query is empty")
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	return &RowFilter{expr: expr, code: code}, nil
}

// Match evaluates the expression with the row as input. Only the first
// output counts; null and false reject the row.
func (f *RowFilter) Match(ctx context.Context, row types.ExportRow) (bool, error) {
	input := make(map[string]any, len(row))
	for k, v := range row {
		input[k] = v
	}

	iter := f.code.RunWithContext(ctx, input)
	v, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if err, ok := v.(error); ok {
		var halt *gojq.HaltError
		if errors.As(err, &halt) && halt.Value() == nil {
			return false, nil
		}
		return false, fmt.Errorf("jq expression %q failed: %w", f.expr, err)
	}

	switch v := v.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return true, nil
	}
}

// Apply drops the rows of report that do not match and returns how many were dropped
func (f *RowFilter) Apply(ctx context.Context, report *types.Report) (int, error) {
	kept := make([]types.ExportRow, 0, len(report.Rows))
	for _, row := range report.Rows {
		ok, err := f.Match(ctx, row)
		if err != nil {
			return 0, err
		}
		if ok {
			kept = append(kept, row)
		}
	}

	dropped := len(report.Rows) - len(kept)
	report.Rows = kept
	report.Summary.Rows = len(kept)
	return dropped, nil
}
