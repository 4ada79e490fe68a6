package outputproviders

import (
	"context"
	"io"

	"github.com/praetorian-inc/approles/pkg/types"
)

type MarkdownFileProvider struct {
	fileSink
}

func NewMarkdownFileProvider(outputPath string) *MarkdownFileProvider {
	return &MarkdownFileProvider{fileSink{OutputPath: outputPath}}
}

func (fp *MarkdownFileProvider) Write(ctx context.Context, report *types.Report) (string, error) {
	file, fullpath, err := fp.create(report, "md")
	if err != nil {
		return "", err
	}

	err = writeAndClose(file, fullpath, func(w io.Writer) error {
		_, err := io.WriteString(w, report.Table().ToString())
		return err
	})
	if err != nil {
		return "", err
	}
	return fullpath, nil
}
