package dom

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPollInterval is how often Document re-evaluates a locator while waiting.
const DefaultPollInterval = 50 * time.Millisecond

// Document is a Root over a parsed HTML snapshot.
type Document struct {
	doc          *goquery.Document
	pollInterval time.Duration
}

func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Document{
		doc:          doc,
		pollInterval: DefaultPollInterval,
	}, nil
}

func NewDocumentFromString(html string) (*Document, error) {
	return NewDocument(strings.NewReader(html))
}

func (d *Document) Locator(selector string) Locator {
	return &selectionLocator{
		doc:  d,
		desc: selector,
		resolve: func() *goquery.Selection {
			return d.doc.Find(selector)
		},
	}
}

type selectionLocator struct {
	doc     *Document
	desc    string
	resolve func() *goquery.Selection
}

func (l *selectionLocator) derive(desc string, fn func(*goquery.Selection) *goquery.Selection) *selectionLocator {
	parent := l.resolve
	return &selectionLocator{
		doc:  l.doc,
		desc: l.desc + " >> " + desc,
		resolve: func() *goquery.Selection {
			return fn(parent())
		},
	}
}

func (l *selectionLocator) Locator(selector string) Locator {
	return l.derive(selector, func(s *goquery.Selection) *goquery.Selection {
		return s.Find(selector)
	})
}

func (l *selectionLocator) FilterHasText(pattern *regexp.Regexp) Locator {
	return l.derive("has-text="+pattern.String(), func(s *goquery.Selection) *goquery.Selection {
		return s.FilterFunction(func(_ int, el *goquery.Selection) bool {
			return pattern.MatchString(el.Text())
		})
	})
}

func (l *selectionLocator) FilterHas(inner Locator) Locator {
	in, ok := inner.(*selectionLocator)
	if !ok {
		return brokenLocator{err: fmt.Errorf("%w: cannot combine %T with a document locator", ErrNoElement, inner)}
	}

	return l.derive("has="+in.desc, func(s *goquery.Selection) *goquery.Selection {
		return s.HasSelection(in.resolve())
	})
}

func (l *selectionLocator) First() Locator {
	return l.derive("first", func(s *goquery.Selection) *goquery.Selection {
		return s.First()
	})
}

func (l *selectionLocator) Nth(index int) Locator {
	return l.derive(fmt.Sprintf("nth=%d", index), func(s *goquery.Selection) *goquery.Selection {
		return s.Eq(index)
	})
}

func (l *selectionLocator) Count() (int, error) {
	return l.resolve().Length(), nil
}

func (l *selectionLocator) InnerText() (string, error) {
	sel := l.resolve()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoElement, l.desc)
	}
	return sel.First().Text(), nil
}

func (l *selectionLocator) AllInnerTexts() ([]string, error) {
	return l.resolve().Map(func(_ int, el *goquery.Selection) string {
		return el.Text()
	}), nil
}

// WaitFor polls the snapshot. A static document never changes, so a miss
// costs the full timeout, matching what a live page would report.
func (l *selectionLocator) WaitFor(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if l.resolve().Length() > 0 {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s after %s", ErrWaitTimeout, l.desc, timeout)
		}

		time.Sleep(min(l.doc.pollInterval, remaining))
	}
}
