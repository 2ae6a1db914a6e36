// Package dom describes the small slice of a rendered document the table
// extractor needs: scoped lookups, text filters, waits with a timeout,
// inner text reads and counts. Document serves static HTML snapshots with
// goquery; Frame serves live playwright pages and frames.
package dom

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrNoElement   = errors.New("no element matches locator")
	ErrWaitTimeout = errors.New("timed out waiting for element")
)

// Root is a document region: a whole page or an embedded frame.
type Root interface {
	Locator(selector string) Locator
}

// Locator is a lazy query. Nothing is resolved until Count, InnerText,
// AllInnerTexts or WaitFor is called.
type Locator interface {
	// Locator narrows to descendants matching a CSS selector.
	Locator(selector string) Locator
	// FilterHasText keeps elements whose text matches pattern.
	FilterHasText(pattern *regexp.Regexp) Locator
	// FilterHas keeps elements containing an element matched by inner.
	FilterHas(inner Locator) Locator
	First() Locator
	Nth(index int) Locator
	Count() (int, error)
	InnerText() (string, error)
	AllInnerTexts() ([]string, error)
	// WaitFor blocks until at least one element matches or timeout elapses.
	WaitFor(timeout time.Duration) error
}

// brokenLocator is returned when a locator from another backend is mixed in.
type brokenLocator struct {
	err error
}

func (b brokenLocator) Locator(string) Locator { return b }
func (b brokenLocator) FilterHasText(*regexp.Regexp) Locator { return b }
func (b brokenLocator) FilterHas(Locator) Locator { return b }
func (b brokenLocator) First() Locator { return b }
func (b brokenLocator) Nth(int) Locator { return b }
func (b brokenLocator) Count() (int, error) { return 0, b.err }
func (b brokenLocator) InnerText() (string, error) { return "", b.err }
func (b brokenLocator) AllInnerTexts() ([]string, error) { return nil, b.err }
func (b brokenLocator) WaitFor(time.Duration) error { return b.err }
