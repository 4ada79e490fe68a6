package outputproviders

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/praetorian-inc/approles/pkg/types"
)

type CSVFileProvider struct {
	fileSink
}

func NewCSVFileProvider(outputPath string) *CSVFileProvider {
	return &CSVFileProvider{fileSink{OutputPath: outputPath}}
}

// Write emits the header row followed by every row in column order
func (fp *CSVFileProvider) Write(ctx context.Context, report *types.Report) (string, error) {
	file, fullpath, err := fp.create(report, "csv")
	if err != nil {
		return "", err
	}

	err = writeAndClose(file, fullpath, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(report.Columns); err != nil {
			return fmt.Errorf("error writing CSV header: %w", err)
		}
		for _, row := range report.Rows {
			if err := writer.Write(report.Values(row)); err != nil {
				return fmt.Errorf("error writing CSV row: %w", err)
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return "", err
	}
	return fullpath, nil
}
