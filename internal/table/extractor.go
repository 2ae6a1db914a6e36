package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maltedev/creative-center-scraper/internal/dom"
)

const (
	DefaultRowWaitTimeout   = 60 * time.Second
	DefaultMinCells         = 3
	DefaultMinProductLength = 2
)

// ErrTableNotRendered is returned when no data row appears before the wait
// ceiling. It is the only failure Extract reports for a well-formed root.
var ErrTableNotRendered = errors.New("top products table did not render")

// DefaultRowMarker matches the "Details" action every data row carries.
var DefaultRowMarker = regexp.MustCompile(`(?i)Details|Detalhes`)

// Result is the extracted table. Headers and HeaderKeys are parallel.
type Result struct {
	Headers    []string  `json:"headers"`
	HeaderKeys []string  `json:"header_keys"`
	Items      []*Record `json:"items"`
}

type Options struct {
	// RowMarker selects data rows by their rendered text.
	RowMarker *regexp.Regexp
	// ActionLabels are trailing cell texts (lower-case) dropped from a row.
	ActionLabels     []string
	RowWaitTimeout   time.Duration
	MinCells         int
	MinProductLength int
	Mapper           *HeaderMapper
	// FallbackSchema keys cells by position when no header is found.
	FallbackSchema []string
	// HeaderStrategies are tried in order; nil selects DefaultHeaderStrategies.
	HeaderStrategies []HeaderStrategy
}

func DefaultOptions() *Options {
	return &Options{
		RowMarker:        DefaultRowMarker,
		ActionLabels:     []string{"details", "detalhes"},
		RowWaitTimeout:   DefaultRowWaitTimeout,
		MinCells:         DefaultMinCells,
		MinProductLength: DefaultMinProductLength,
		Mapper:           NewHeaderMapper(nil),
		FallbackSchema:   DefaultFallbackSchema(),
		HeaderStrategies: DefaultHeaderStrategies(),
	}
}

// DefaultFallbackSchema is the usual column order of the top-products table.
func DefaultFallbackSchema() []string {
	return []string{KeyProduct, KeyPopularity, KeyPopularityChange, KeyCTR, KeyCVR, KeyCPA}
}

type Extractor struct {
	opts   *Options
	logger *slog.Logger
}

// NewExtractor fills unset options from DefaultOptions.
func NewExtractor(opts *Options, logger *slog.Logger) *Extractor {
	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}
	o := *opts

	if o.RowMarker == nil {
		o.RowMarker = defaults.RowMarker
	}
	if o.ActionLabels == nil {
		o.ActionLabels = defaults.ActionLabels
	}
	if o.RowWaitTimeout <= 0 {
		o.RowWaitTimeout = defaults.RowWaitTimeout
	}
	if o.MinCells <= 0 {
		o.MinCells = defaults.MinCells
	}
	if o.MinProductLength <= 0 {
		o.MinProductLength = defaults.MinProductLength
	}
	if o.Mapper == nil {
		o.Mapper = defaults.Mapper
	}
	if o.FallbackSchema == nil {
		o.FallbackSchema = defaults.FallbackSchema
	}
	if o.HeaderStrategies == nil {
		o.HeaderStrategies = defaults.HeaderStrategies
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		opts:   &o,
		logger: logger.With("component", "table_extractor"),
	}
}

// Extract waits for the data rows under root, resolves the column schema
// and returns one record per accepted row in document order.
//
// The row wait is bounded by Options.RowWaitTimeout, or by the context
// deadline when that is earlier. After the rows appear the rest of the
// extraction runs to completion.
func (e *Extractor) Extract(ctx context.Context, root dom.Root) (*Result, error) {
	started := time.Now()

	timeout, err := e.waitTimeout(ctx)
	if err != nil {
		return nil, err
	}

	rows := root.Locator("tr").FilterHasText(e.opts.RowMarker)

	if err := rows.First().WaitFor(timeout); err != nil {
		return nil, fmt.Errorf("%w after %s: %v", ErrTableNotRendered, time.Since(started).Round(time.Millisecond), err)
	}

	table := root.Locator("table").FilterHas(rows.First()).First()

	headers, strategy := e.resolveHeaders(root, table)
	headerKeys := e.opts.Mapper.Keys(headers)

	rowCount, err := rows.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	items := make([]*Record, 0, rowCount)
	discarded := 0

	for i := 0; i < rowCount; i++ {
		cells, err := e.readCells(rows.Nth(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", i, err)
		}

		record := e.buildRecord(cells, headerKeys)
		if record == nil {
			discarded++
			continue
		}

		items = append(items, record)
	}

	e.logger.Debug("table extracted",
		"header_strategy", strategy,
		"headers", len(headers),
		"rows", rowCount,
		"items", len(items),
		"discarded", discarded,
		"elapsed", time.Since(started),
	)

	return &Result{
		Headers:    headers,
		HeaderKeys: headerKeys,
		Items:      items,
	}, nil
}

// waitTimeout reports a spent context as ErrTableNotRendered so backends
// never see a zero or negative wait.
func (e *Extractor) waitTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTableNotRendered, err)
	}

	timeout := e.opts.RowWaitTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrTableNotRendered, context.DeadlineExceeded)
		}
		timeout = min(timeout, remaining)
	}
	return timeout, nil
}

func (e *Extractor) resolveHeaders(root dom.Root, table dom.Locator) ([]string, string) {
	for _, strategy := range e.opts.HeaderStrategies {
		raw, err := strategy.Resolve(root, table)
		if err != nil {
			e.logger.Debug("header strategy failed", "strategy", strategy.Name, "error", err)
			continue
		}

		headers := cleanNonEmpty(raw)
		if len(headers) > 0 {
			return headers, strategy.Name
		}
	}

	return []string{}, "positional"
}

func (e *Extractor) readCells(row dom.Locator) ([]string, error) {
	cells := row.Locator("td")

	count, err := cells.Count()
	if err != nil {
		return nil, err
	}
	if count < e.opts.MinCells {
		return nil, nil
	}

	texts := make([]string, 0, count)
	for c := 0; c < count; c++ {
		text, err := cells.Nth(c).InnerText()
		if err != nil {
			return nil, err
		}
		texts = append(texts, Clean(text))
	}

	if last := strings.ToLower(texts[len(texts)-1]); e.isActionLabel(last) {
		texts = texts[:len(texts)-1]
	}

	return texts, nil
}

func (e *Extractor) isActionLabel(text string) bool {
	for _, label := range e.opts.ActionLabels {
		if text == label {
			return true
		}
	}
	return false
}

// buildRecord returns nil for rows that are too sparse or have no usable
// product name.
func (e *Extractor) buildRecord(cells []string, headerKeys []string) *Record {
	if cells == nil {
		return nil
	}

	record := NewRecord()

	if len(headerKeys) > 0 {
		for idx, text := range cells {
			key := ""
			if idx < len(headerKeys) {
				key = headerKeys[idx]
			}
			if key == "" {
				key = positionalKey(idx)
			}
			record.Set(key, text)
		}
	} else {
		for idx, key := range e.opts.FallbackSchema {
			value := ""
			if idx < len(cells) {
				value = cells[idx]
			}
			record.Set(key, value)
		}
		for idx := len(e.opts.FallbackSchema); idx < len(cells); idx++ {
			record.Set(positionalKey(idx), cells[idx])
		}
	}

	if utf8.RuneCountInString(record.Get(KeyProduct)) < e.opts.MinProductLength {
		return nil
	}

	return record
}

func positionalKey(idx int) string {
	return fmt.Sprintf("col_%d", idx+1)
}

func cleanNonEmpty(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if c := Clean(t); c != "" {
			out = append(out, c)
		}
	}
	return out
}
