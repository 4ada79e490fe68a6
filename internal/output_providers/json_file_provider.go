package outputproviders

import (
	"context"
	"encoding/json"
	"io"

	"github.com/praetorian-inc/approles/pkg/types"
)

type JsonFileProvider struct {
	fileSink
}

func NewJsonFileProvider(outputPath string) *JsonFileProvider {
	return &JsonFileProvider{fileSink{OutputPath: outputPath}}
}

// Write emits an indented array of row objects
func (fp *JsonFileProvider) Write(ctx context.Context, report *types.Report) (string, error) {
	file, fullpath, err := fp.create(report, "json")
	if err != nil {
		return "", err
	}

	rows := report.Rows
	if rows == nil {
		rows = []types.ExportRow{}
	}

	err = writeAndClose(file, fullpath, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	})
	if err != nil {
		return "", err
	}
	return fullpath, nil
}
