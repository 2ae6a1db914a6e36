package table

import (
	"github.com/maltedev/creative-center-scraper/internal/dom"
)

// HeaderStrategy reads raw header labels. Table is the table holding the
// first data row. Strategies are tried in order; an error or an empty result
// moves on to the next one.
type HeaderStrategy struct {
	Name    string
	Resolve func(root dom.Root, table dom.Locator) ([]string, error)
}

// DefaultHeaderStrategies reads the selected table's head row first and
// falls back to every header cell in the document.
func DefaultHeaderStrategies() []HeaderStrategy {
	return []HeaderStrategy{
		{Name: "thead", Resolve: tableHeadCells},
		{Name: "document", Resolve: documentHeaderCells},
	}
}

func tableHeadCells(_ dom.Root, table dom.Locator) ([]string, error) {
	return allTextsIfAny(table.Locator("thead tr th"))
}

func documentHeaderCells(root dom.Root, _ dom.Locator) ([]string, error) {
	return allTextsIfAny(root.Locator("th"))
}

func allTextsIfAny(cells dom.Locator) ([]string, error) {
	count, err := cells.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return cells.AllInnerTexts()
}
