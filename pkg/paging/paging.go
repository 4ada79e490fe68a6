// Package paging drains cursor-paginated directory listings.
package paging

import (
	"context"
	"fmt"
	"log/slog"
)

// Page is one response of a paginated listing. An empty NextLink means the
// listing is exhausted.
type Page[T any] struct {
	Items    []T
	NextLink string
}

// PageFunc issues one request. An empty nextLink requests the first page; the
// endpoint, filter and page size are bound by whoever builds the func.
type PageFunc[T any] func(ctx context.Context, nextLink string) (Page[T], error)

// FetchError reports a listing that was aborted part way through. Retrieved
// items are not returned to the caller.
type FetchError struct {
	Operation string
	Retrieved int
	Pages     int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d items in %d pages: %v", e.Operation, e.Retrieved, e.Pages, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchAll follows continuation links until the listing is exhausted and
// returns every item in server order.
func FetchAll[T any](ctx context.Context, operation string, fetch PageFunc[T]) ([]T, error) {
	items := []T{}
	pages := 0
	nextLink := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Operation: operation, Retrieved: len(items), Pages: pages, Err: err}
		}

		page, err := fetch(ctx, nextLink)
		if err != nil {
			return nil, &FetchError{Operation: operation, Retrieved: len(items), Pages: pages, Err: err}
		}
		pages++
		items = append(items, page.Items...)
		slog.Debug("Fetched page", "operation", operation, "page", pages, "objects", len(page.Items), "total", len(items))

		if page.NextLink == "" {
			return items, nil
		}
		if page.NextLink == nextLink {
			return nil, &FetchError{
				Operation: operation,
				Retrieved: len(items),
				Pages:     pages,
				Err:       fmt.Errorf("continuation link did not advance: %s", nextLink),
			}
		}
		nextLink = page.NextLink
	}
}
