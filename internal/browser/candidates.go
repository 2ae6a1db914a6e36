package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Candidate is one way of finding a control on a page. UI automation tries
// a list of candidates in order because the dashboard renders different
// markup per locale and layout.
type Candidate struct {
	Name    string
	Locator playwright.Locator
}

type ClickOptions struct {
	VisibleTimeout time.Duration
	ClickTimeout   time.Duration
	// Pause after a successful click.
	Pause time.Duration
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func visible(c Candidate, timeout time.Duration) bool {
	if c.Locator == nil {
		return false
	}
	err := c.Locator.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	return err == nil
}

func click(c Candidate, opts ClickOptions) bool {
	if !visible(c, opts.VisibleTimeout) {
		return false
	}
	if err := c.Locator.First().Click(playwright.LocatorClickOptions{
		Timeout: millis(opts.ClickTimeout),
	}); err != nil {
		return false
	}
	if opts.Pause > 0 {
		time.Sleep(opts.Pause)
	}
	return true
}

// FirstVisible returns the first candidate that becomes visible within timeout.
func FirstVisible(candidates []Candidate, timeout time.Duration) (Candidate, bool) {
	for _, c := range candidates {
		if visible(c, timeout) {
			return c, true
		}
	}
	return Candidate{}, false
}

// ClickFirst clicks the first candidate that is visible and accepts the
// click. It returns the name of the clicked candidate.
func ClickFirst(candidates []Candidate, opts ClickOptions) (string, bool) {
	for _, c := range candidates {
		if click(c, opts) {
			return c.Name, true
		}
	}
	return "", false
}

// ClickEach clicks every visible candidate and returns the names clicked.
func ClickEach(candidates []Candidate, opts ClickOptions) []string {
	var clicked []string
	for _, c := range candidates {
		if click(c, opts) {
			clicked = append(clicked, c.Name)
		}
	}
	return clicked
}
