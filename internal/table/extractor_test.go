package table

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(opts *Options) *Extractor {
	return NewExtractor(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustDocument(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.NewDocumentFromString(html)
	require.NoError(t, err)
	return doc
}

func TestExtractWithHeaderRow(t *testing.T) {
	doc := mustDocument(t, `<html><body>
	<table>
		<thead><tr><th>Product</th><th> Popularity </th><th>CTR</th></tr></thead>
		<tbody>
			<tr><td>  Wireless   Earbuds </td><td>12.5K</td><td>3.2%</td><td>Details</td></tr>
			<tr><td>LED Strip
				Lights</td><td>9K</td><td> 2.1% </td><td> Details </td></tr>
		</tbody>
	</table>
	</body></html>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Popularity", "CTR"}, result.Headers)
	assert.Equal(t, []string{"product", "popularity", "ctr"}, result.HeaderKeys)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, []string{"product", "popularity", "ctr"}, first.Keys())
	assert.Equal(t, "Wireless Earbuds", first.Get("product"))
	assert.Equal(t, "12.5K", first.Get("popularity"))
	assert.Equal(t, "3.2%", first.Get("ctr"))

	second := result.Items[1]
	assert.Equal(t, []string{"product", "popularity", "ctr"}, second.Keys())
	assert.Equal(t, "LED Strip Lights", second.Get("product"))
	assert.Equal(t, "2.1%", second.Get("ctr"))

	for _, item := range result.Items {
		assert.False(t, item.Has("col_4"), "trailing Details cell must be dropped")
	}
}

func TestExtractPositionalFallback(t *testing.T) {
	doc := mustDocument(t, `<table>
		<tr><td>Garrafa térmica</td><td>98</td><td>+12%</td><td>1.8%</td><td>4.1%</td><td>R$ 3,20</td><td>Detalhes</td></tr>
		<tr><td>Mini projetor</td><td>87</td><td>-3%</td><td>2.2%</td><td>3.0%</td><td>R$ 5,10</td><td>extra 1</td><td>extra 2</td><td>Detalhes</td></tr>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Empty(t, result.Headers)
	assert.Empty(t, result.HeaderKeys)
	require.Len(t, result.Items, 2)

	assert.Equal(t, []string{"product", "popularity", "popularity_change", "ctr", "cvr", "cpa"}, result.Items[0].Keys())
	assert.Equal(t, "Garrafa térmica", result.Items[0].Get("product"))
	assert.Equal(t, "R$ 3,20", result.Items[0].Get("cpa"))

	assert.Equal(t, []string{"product", "popularity", "popularity_change", "ctr", "cvr", "cpa", "col_7", "col_8"}, result.Items[1].Keys())
	assert.Equal(t, "extra 1", result.Items[1].Get("col_7"))
	assert.Equal(t, "extra 2", result.Items[1].Get("col_8"))
}

func TestExtractPositionalFallbackPadsShortRows(t *testing.T) {
	doc := mustDocument(t, `<table>
		<tr><td>Capinha magnética</td><td>55</td><td>+1%</td><td>Details</td></tr>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, 6, item.Len())
	assert.Equal(t, "+1%", item.Get("popularity_change"))
	assert.True(t, item.Has("cpa"))
	assert.Equal(t, "", item.Get("cpa"))
}

func TestExtractDiscardsSparseAndNamelessRows(t *testing.T) {
	doc := mustDocument(t, `<table>
		<thead><tr><th>Produto</th><th>Popularidade</th><th>CTR</th></tr></thead>
		<tbody>
			<tr><td>X</td><td>10</td><td>1%</td><td>Detalhes</td></tr>
			<tr><td>   </td><td>10</td><td>1%</td><td>Detalhes</td></tr>
			<tr><td>Produto com duas células</td><td>Detalhes</td></tr>
			<tr><td>Fone bluetooth</td><td>10</td><td>1%</td><td>Detalhes</td></tr>
			<tr><td>Sem marcador</td><td>10</td><td>1%</td><td>-</td></tr>
		</tbody>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "Fone bluetooth", result.Items[0].Get("product"))
}

func TestExtractMinProductLengthIsConfigurable(t *testing.T) {
	doc := mustDocument(t, `<table>
		<tr><td>AB</td><td>10</td><td>1%</td><td>Details</td></tr>
		<tr><td>ABCD</td><td>10</td><td>1%</td><td>Details</td></tr>
	</table>`)

	opts := DefaultOptions()
	opts.MinProductLength = 4

	result, err := newTestExtractor(opts).Extract(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "ABCD", result.Items[0].Get("product"))
}

func TestExtractDuplicateHeadersCollapse(t *testing.T) {
	doc := mustDocument(t, `<table>
		<thead><tr><th>Product</th><th>CTR</th><th>Click Through Rate</th></tr></thead>
		<tbody><tr><td>Ring light</td><td>1.1%</td><td>2.2%</td><td>Details</td></tr></tbody>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"product", "ctr", "ctr"}, result.HeaderKeys)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, []string{"product", "ctr"}, item.Keys())
	assert.Equal(t, "2.2%", item.Get("ctr"), "later column overwrites the earlier one")
}

func TestExtractCellsBeyondHeadersArePositional(t *testing.T) {
	doc := mustDocument(t, `<table>
		<thead><tr><th>Product</th><th>CTR</th></tr></thead>
		<tbody><tr><td>Tripé</td><td>1%</td><td>surplus</td><td>Details</td></tr></tbody>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	assert.Equal(t, []string{"product", "ctr", "col_3"}, result.Items[0].Keys())
	assert.Equal(t, "surplus", result.Items[0].Get("col_3"))
}

func TestExtractAnchorsOnTableWithDataRows(t *testing.T) {
	doc := mustDocument(t, `<body>
	<table id="ranking">
		<thead><tr><th>Rank</th><th>Country</th></tr></thead>
		<tbody><tr><td>1</td><td>Brasil</td><td>-</td></tr></tbody>
	</table>
	<table id="products">
		<thead><tr><th>Product</th><th>Popularity</th><th>CVR</th></tr></thead>
		<tbody><tr><td>Mop giratório</td><td>77</td><td>5%</td><td>Details</td></tr></tbody>
	</table>
	</body>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Popularity", "CVR"}, result.Headers)
	assert.Equal(t, []string{"product", "popularity", "cvr"}, result.HeaderKeys)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "5%", result.Items[0].Get("cvr"))
}

func TestExtractFallsBackToDocumentHeaderCells(t *testing.T) {
	// Virtualized grids render the header in a table of its own.
	doc := mustDocument(t, `<body>
	<table class="grid-head"><tr><th>Produto</th><th>Popularidade</th><th>CTR</th></tr></table>
	<table class="grid-body">
		<tr><td>Garrafa térmica</td><td>10K</td><td>1,2%</td><td>Detalhes</td></tr>
	</table>
	</body>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"Produto", "Popularidade", "CTR"}, result.Headers)
	assert.Equal(t, []string{"product", "popularity", "ctr"}, result.HeaderKeys)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "1,2%", result.Items[0].Get("ctr"))
}

func TestExtractDropsEmptyHeaderCells(t *testing.T) {
	doc := mustDocument(t, `<table>
		<thead><tr><th>Product</th><th>  </th><th>CTR</th></tr></thead>
		<tbody><tr><td>Luminária</td><td>3%</td><td>Details</td></tr></tbody>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "CTR"}, result.Headers)
	assert.Equal(t, []string{"product", "ctr"}, result.HeaderKeys)
}

func TestExtractHeaderStrategiesContinueOnFailure(t *testing.T) {
	doc := mustDocument(t, `<table>
		<thead><tr><th>Ignored</th></tr></thead>
		<tbody><tr><td>Caixa de som</td><td>40</td><td>2%</td><td>Details</td></tr></tbody>
	</table>`)

	var calls []string
	opts := DefaultOptions()
	opts.HeaderStrategies = []HeaderStrategy{
		{Name: "broken", Resolve: func(dom.Root, dom.Locator) ([]string, error) {
			calls = append(calls, "broken")
			return nil, errors.New("frame detached")
		}},
		{Name: "blank", Resolve: func(dom.Root, dom.Locator) ([]string, error) {
			calls = append(calls, "blank")
			return []string{" ", ""}, nil
		}},
		{Name: "static", Resolve: func(dom.Root, dom.Locator) ([]string, error) {
			calls = append(calls, "static")
			return []string{"Product", "Likes", "Shares"}, nil
		}},
		{Name: "unreached", Resolve: func(dom.Root, dom.Locator) ([]string, error) {
			calls = append(calls, "unreached")
			return []string{"nope"}, nil
		}},
	}

	result, err := newTestExtractor(opts).Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"broken", "blank", "static"}, calls)
	assert.Equal(t, []string{"product", "likes", "shares"}, result.HeaderKeys)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "40", result.Items[0].Get("likes"))
}

func TestExtractTimesOutWhenTableNeverRenders(t *testing.T) {
	doc := mustDocument(t, `<table><tr><td>Loading…</td><td>-</td><td>-</td></tr></table>`)

	opts := DefaultOptions()
	opts.RowWaitTimeout = 200 * time.Millisecond

	started := time.Now()
	result, err := newTestExtractor(opts).Extract(context.Background(), doc)
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrTableNotRendered)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestExtractWaitIsBoundedByContextDeadline(t *testing.T) {
	doc := mustDocument(t, `<p>empty dashboard</p>`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := newTestExtractor(nil).Extract(ctx, doc)

	assert.ErrorIs(t, err, ErrTableNotRendered)
	assert.Less(t, time.Since(started), 2*time.Second)
}

// recordingRoot never renders rows and remembers every wait it was asked for.
type recordingRoot struct {
	waits []time.Duration
}

func (r *recordingRoot) Locator(string) dom.Locator { return recordingLocator{root: r} }

type recordingLocator struct {
	root *recordingRoot
}

func (l recordingLocator) Locator(string) dom.Locator { return l }
func (l recordingLocator) FilterHasText(*regexp.Regexp) dom.Locator { return l }
func (l recordingLocator) FilterHas(dom.Locator) dom.Locator { return l }
func (l recordingLocator) First() dom.Locator { return l }
func (l recordingLocator) Nth(int) dom.Locator { return l }
func (l recordingLocator) Count() (int, error) { return 0, nil }
func (l recordingLocator) InnerText() (string, error) { return "", dom.ErrNoElement }
func (l recordingLocator) AllInnerTexts() ([]string, error) { return nil, nil }

func (l recordingLocator) WaitFor(timeout time.Duration) error {
	l.root.waits = append(l.root.waits, timeout)
	return dom.ErrWaitTimeout
}

func TestExtractWithSpentContextNeverWaits(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-expired.Done()

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()

	tests := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{"deadline passed", expired, context.DeadlineExceeded},
		{"cancelled", cancelled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := &recordingRoot{}

			result, err := newTestExtractor(nil).Extract(tt.ctx, root)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrTableNotRendered)
			assert.Contains(t, err.Error(), tt.want.Error())
			assert.Empty(t, root.waits)
		})
	}
}

func TestExtractPassesPositiveWaitToBackend(t *testing.T) {
	opts := DefaultOptions()
	opts.RowWaitTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	root := &recordingRoot{}
	_, err := newTestExtractor(opts).Extract(ctx, root)
	assert.ErrorIs(t, err, ErrTableNotRendered)

	require.Len(t, root.waits, 1)
	assert.Greater(t, root.waits[0], time.Duration(0))
	assert.LessOrEqual(t, root.waits[0], 5*time.Second)
}

func TestResultJSONKeepsColumnOrder(t *testing.T) {
	doc := mustDocument(t, `<table>
		<tr><td>Escova secadora</td><td>91</td><td>+8%</td><td>2%</td><td>3%</td><td>R$ 1</td><td>Details</td></tr>
	</table>`)

	result, err := newTestExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"headers": [],
		"header_keys": [],
		"items": [{"product":"Escova secadora","popularity":"91","popularity_change":"+8%","ctr":"2%","cvr":"3%","cpa":"R$ 1"}]
	}`, string(data))
	assert.Contains(t, string(data), `{"product":"Escova secadora","popularity":"91","popularity_change":"+8%","ctr":"2%","cvr":"3%","cpa":"R$ 1"}`)
}
