// Package menu implements a line-based paged selection prompt.
package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ErrCancelled is returned when the operator quits or no choice is possible.
var ErrCancelled = errors.New("selection cancelled")

// InvalidSelectionError describes rejected input. The menu stays on the same page.
type InvalidSelectionError struct {
	Input  string
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	if e.Input == "" {
		return e.Reason
	}
	return fmt.Sprintf("%q: %s", e.Input, e.Reason)
}

type Phase int

const (
	Displaying Phase = iota
	Selected
	Cancelled
)

// State is the whole menu state; transitions never mutate it in place.
type State struct {
	Phase    Phase
	Page     int
	Selected int
}

// PageCount returns how many pages total items occupy. A page size below 1
// holds nothing and yields zero pages.
func PageCount(total, pageSize int) int {
	if total == 0 || pageSize < 1 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// PageBounds returns the half-open index range shown on page
func PageBounds(page, total, pageSize int) (int, int) {
	start := page * pageSize
	end := min(start+pageSize, total)
	return start, end
}

func checkPageSize(pageSize int) error {
	if pageSize < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", pageSize)
	}
	return nil
}

// Next applies one line of operator input to state.
func Next(state State, input string, total, pageSize int) (State, error) {
	if err := checkPageSize(pageSize); err != nil {
		return state, err
	}
	if state.Phase != Displaying {
		return state, nil
	}

	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "n", "next":
		if state.Page >= PageCount(total, pageSize)-1 {
			return state, &InvalidSelectionError{Reason: "already on the last page"}
		}
		state.Page++
		return state, nil
	case "p", "prev", "previous":
		if state.Page == 0 {
			return state, &InvalidSelectionError{Reason: "already on the first page"}
		}
		state.Page--
		return state, nil
	case "q", "quit":
		state.Phase = Cancelled
		return state, nil
	}

	index, err := strconv.Atoi(input)
	if err != nil {
		return state, &InvalidSelectionError{Input: input, Reason: "enter an index, n, p or q"}
	}
	if index < 0 || index >= total {
		return state, &InvalidSelectionError{Input: input, Reason: fmt.Sprintf("index must be between 0 and %d", total-1)}
	}

	state.Phase = Selected
	state.Selected = index
	return state, nil
}

// Selector picks one entry out of a list of labels
type Selector interface {
	Select(labels []string) (int, error)
}

// Options configures a Menu
type Options struct {
	// The writer to use for output (default: os.Stdout)
	Writer io.Writer
	// The reader to use for input (default: os.Stdin)
	Reader io.Reader
	// The message printed above every page
	Message string
	// The number of entries shown per page (default: 10)
	PageSize int
}

// Menu is the interactive Selector
type Menu struct {
	options Options
	warn    *color.Color
	header  *color.Color
}

func New(options Options) *Menu {
	if options.Writer == nil {
		options.Writer = os.Stdout
	}
	if options.Reader == nil {
		options.Reader = os.Stdin
	}
	if options.PageSize == 0 {
		options.PageSize = 10
	}
	return &Menu{
		options: options,
		warn:    color.New(color.FgYellow),
		header:  color.New(color.FgCyan),
	}
}

// Select blocks on the reader until the operator picks an index or quits.
// EOF counts as quitting.
func (m *Menu) Select(labels []string) (int, error) {
	if err := checkPageSize(m.options.PageSize); err != nil {
		return -1, err
	}
	if len(labels) == 0 {
		return -1, ErrCancelled
	}

	scanner := bufio.NewScanner(m.options.Reader)
	state := State{Phase: Displaying}
	total := len(labels)

	for state.Phase == Displaying {
		m.render(labels, state.Page)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return -1, fmt.Errorf("failed to read selection: %w", err)
			}
			return -1, ErrCancelled
		}

		var err error
		state, err = Next(state, scanner.Text(), total, m.options.PageSize)
		if err != nil {
			m.warn.Fprintf(m.options.Writer, "[!] %s\n", err)
		}
	}

	if state.Phase == Cancelled {
		return -1, ErrCancelled
	}
	return state.Selected, nil
}

func (m *Menu) render(labels []string, page int) {
	w := m.options.Writer
	total := len(labels)
	start, end := PageBounds(page, total, m.options.PageSize)

	if m.options.Message != "" {
		m.header.Fprintf(w, "\n%s\n", m.options.Message)
	}
	for i := start; i < end; i++ {
		fmt.Fprintf(w, "  [%d] %s\n", i, labels[i])
	}
	fmt.Fprintf(w, "Page %d of %d (%d total). Index to select, n/p to page, q to quit: ",
		page+1, PageCount(total, m.options.PageSize), total)
}

// First is the non-interactive Selector: it always takes the first entry.
type First struct{}

func (First) Select(labels []string) (int, error) {
	if len(labels) == 0 {
		return -1, ErrCancelled
	}
	return 0, nil
}

// Choose runs selector over items and returns the chosen item
func Choose[T any](selector Selector, items []T, label func(T) string) (T, error) {
	var zero T
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = label(item)
	}

	index, err := selector.Select(labels)
	if err != nil {
		return zero, err
	}
	if index < 0 || index >= len(items) {
		return zero, &InvalidSelectionError{Input: strconv.Itoa(index), Reason: "selector returned an index out of range"}
	}
	return items[index], nil
}
