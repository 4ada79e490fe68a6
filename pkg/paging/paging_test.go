package paging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeListing serves pre-built pages and records every request it receives.
type fakeListing struct {
	pages    [][]int
	failAt   int
	requests []string
}

func (f *fakeListing) fetch(ctx context.Context, nextLink string) (Page[int], error) {
	f.requests = append(f.requests, nextLink)
	index := 0
	if nextLink != "" {
		if _, err := fmt.Sscanf(nextLink, "page-%d", &index); err != nil {
			return Page[int]{}, err
		}
	}
	if f.failAt > 0 && index == f.failAt {
		return Page[int]{}, errors.New("503 service unavailable")
	}

	page := Page[int]{Items: f.pages[index]}
	if index+1 < len(f.pages) {
		page.NextLink = fmt.Sprintf("page-%d", index+1)
	}
	return page, nil
}

func buildPages(total, size int) [][]int {
	pages := [][]int{}
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		page := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			page = append(page, i)
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		pages = append(pages, []int{})
	}
	return pages
}

func TestFetchAll_ConcatenatesPagesInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 50).Draw(rt, "pageSize")
		total := rapid.IntRange(0, 500).Draw(rt, "total")
		listing := &fakeListing{pages: buildPages(total, size)}

		items, err := FetchAll(context.Background(), "numbers", listing.fetch)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if len(items) != total {
			rt.Fatalf("expected %d items, got %d", total, len(items))
		}
		for i, v := range items {
			if v != i {
				rt.Fatalf("item %d out of order: %d", i, v)
			}
		}
		if len(listing.requests) != len(listing.pages) {
			rt.Fatalf("expected %d requests, got %d", len(listing.pages), len(listing.requests))
		}
	})
}

func TestFetchAll_EmptyFirstPage(t *testing.T) {
	listing := &fakeListing{pages: [][]int{{}}}

	items, err := FetchAll(context.Background(), "numbers", listing.fetch)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, []string{""}, listing.requests)
}

func TestFetchAll_ErrorCarriesPartialCount(t *testing.T) {
	listing := &fakeListing{pages: buildPages(25, 10), failAt: 2}

	items, err := FetchAll(context.Background(), "service principals", listing.fetch)
	require.Error(t, err)
	assert.Nil(t, items)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "service principals", fetchErr.Operation)
	assert.Equal(t, 20, fetchErr.Retrieved)
	assert.Equal(t, 2, fetchErr.Pages)
	assert.Contains(t, err.Error(), "503 service unavailable")
	assert.Len(t, listing.requests, 3)
}

func TestFetchAll_NonAdvancingLink(t *testing.T) {
	calls := 0
	stuck := func(ctx context.Context, nextLink string) (Page[string], error) {
		calls++
		return Page[string]{Items: []string{"a"}, NextLink: "same"}, nil
	}

	_, err := FetchAll(context.Background(), "stuck", stuck)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, fetchErr.Retrieved)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	listing := &fakeListing{pages: buildPages(30, 10)}
	fetch := func(ctx context.Context, nextLink string) (Page[int], error) {
		page, err := listing.fetch(ctx, nextLink)
		cancel()
		return page, err
	}

	_, err := FetchAll(ctx, "numbers", fetch)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, listing.requests, 1)
}
