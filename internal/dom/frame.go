package dom

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Frame is a Root over a live playwright frame. Use page.MainFrame() for
// the whole page.
type Frame struct {
	frame playwright.Frame
}

func NewFrame(frame playwright.Frame) *Frame {
	return &Frame{frame: frame}
}

func (f *Frame) Locator(selector string) Locator {
	return &frameLocator{loc: f.frame.Locator(selector)}
}

type frameLocator struct {
	loc playwright.Locator
}

func (l *frameLocator) Locator(selector string) Locator {
	return &frameLocator{loc: l.loc.Locator(selector)}
}

func (l *frameLocator) FilterHasText(pattern *regexp.Regexp) Locator {
	return &frameLocator{loc: l.loc.Filter(playwright.LocatorFilterOptions{
		HasText: pattern,
	})}
}

func (l *frameLocator) FilterHas(inner Locator) Locator {
	in, ok := inner.(*frameLocator)
	if !ok {
		return brokenLocator{err: fmt.Errorf("%w: cannot combine %T with a frame locator", ErrNoElement, inner)}
	}

	return &frameLocator{loc: l.loc.Filter(playwright.LocatorFilterOptions{
		Has: in.loc,
	})}
}

func (l *frameLocator) First() Locator {
	return &frameLocator{loc: l.loc.First()}
}

func (l *frameLocator) Nth(index int) Locator {
	return &frameLocator{loc: l.loc.Nth(index)}
}

func (l *frameLocator) Count() (int, error) {
	count, err := l.loc.Count()
	if err != nil {
		return 0, fmt.Errorf("failed to count elements: %w", err)
	}
	return count, nil
}

func (l *frameLocator) InnerText() (string, error) {
	text, err := l.loc.InnerText()
	if err != nil {
		return "", fmt.Errorf("failed to read inner text: %w", err)
	}
	return text, nil
}

func (l *frameLocator) AllInnerTexts() ([]string, error) {
	texts, err := l.loc.AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("failed to read inner texts: %w", err)
	}
	return texts, nil
}

func (l *frameLocator) WaitFor(timeout time.Duration) error {
	err := l.loc.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(waitMillis(timeout)),
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return fmt.Errorf("failed to wait for element: %w", err)
}

// waitMillis converts timeout for playwright, where 0 disables the timeout.
func waitMillis(timeout time.Duration) float64 {
	return float64(max(timeout.Milliseconds(), 1))
}
