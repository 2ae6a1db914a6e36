package creativecenter

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/browser"
	"github.com/playwright-community/playwright-go"
)

// ErrRegionControlNotFound is returned when the frame has neither a region
// dropdown nor a field to type the region into.
var ErrRegionControlNotFound = errors.New("region control not found")

var (
	filterLabel        = regexp.MustCompile(`(?i)filter|filtro`)
	regionButtonLabel  = regexp.MustCompile(`(?i)brasil|brazil|portugal|mexico|united states|canada|japan`)
	regionButtonText   = regexp.MustCompile(`(?i)Brasil|Brazil|United States|Canada|Mexico|Japan`)
	applyLabel         = regexp.MustCompile(`(?i)apply|confirm|ok|done|aplicar|confirmar|concluir`)
	knownTimeRangeText = `últimos\s+7\s+dias|ultimos\s+7\s+dias|last\s+7\s+days|últimos\s+30\s+dias|last\s+30\s+days`
)

var (
	openClick   = browser.ClickOptions{VisibleTimeout: 2500 * time.Millisecond, ClickTimeout: 15 * time.Second}
	optionClick = browser.ClickOptions{VisibleTimeout: 6 * time.Second, ClickTimeout: 15 * time.Second, Pause: 800 * time.Millisecond}
	applyClick  = browser.ClickOptions{VisibleTimeout: 1200 * time.Millisecond, ClickTimeout: 8 * time.Second, Pause: 800 * time.Millisecond}
)

// OpenFiltersPanel expands the filter sidebar when the layout hides it.
func OpenFiltersPanel(frame playwright.Frame) bool {
	_, ok := browser.ClickFirst([]browser.Candidate{
		{Name: "role:filter", Locator: button(frame, filterLabel)},
		{Name: "text:Filter", Locator: buttonWithText(frame, "Filter")},
		{Name: "text:Filtro", Locator: buttonWithText(frame, "Filtro")},
		{Name: "aria:button", Locator: frame.Locator("button[aria-label*='filter' i]")},
		{Name: "aria:any", Locator: frame.Locator("[aria-label*='filter' i]")},
	}, browser.ClickOptions{VisibleTimeout: 2 * time.Second, ClickTimeout: 15 * time.Second, Pause: 800 * time.Millisecond})
	return ok
}

// SelectRegion opens the region control, picks region and applies the
// filter. Failing to find the option or the apply button is not an error
// because the dashboard may already show the requested region.
func SelectRegion(frame playwright.Frame, region string, logger *slog.Logger) error {
	if OpenFiltersPanel(frame) {
		logger.Debug("filters panel opened")
	}

	opened, ok := browser.ClickFirst([]browser.Candidate{
		{Name: "role:region", Locator: button(frame, regionButtonLabel)},
		{Name: "text:region", Locator: frame.Locator("button").Filter(playwright.LocatorFilterOptions{HasText: regionButtonText})},
	}, openClick)

	if ok {
		logger.Debug("region dropdown opened", "candidate", opened)
	} else {
		field, found := browser.FirstVisible(regionFieldCandidates(frame), 2*time.Second)
		if !found {
			return fmt.Errorf("%w: no dropdown, combobox or input in frame %s", ErrRegionControlNotFound, frame.URL())
		}

		if err := field.Locator.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(15000)}); err != nil {
			return fmt.Errorf("failed to focus region field: %w", err)
		}
		if err := field.Locator.Fill(region, playwright.LocatorFillOptions{Timeout: playwright.Float(15000)}); err != nil {
			return fmt.Errorf("failed to type region: %w", err)
		}
		logger.Debug("region typed", "candidate", field.Name)
		time.Sleep(600 * time.Millisecond)
	}

	if name, ok := browser.ClickFirst(optionCandidates(frame, region), optionClick); ok {
		logger.Info("region selected", "region", region, "candidate", name)
	} else {
		logger.Warn("region option not found", "region", region)
	}

	applyCandidates := []browser.Candidate{{Name: "role:apply", Locator: button(frame, applyLabel)}}
	for _, text := range []string{"Apply", "Confirm", "Done", "Aplicar", "Confirmar", "Concluir"} {
		applyCandidates = append(applyCandidates, browser.Candidate{Name: "text:" + text, Locator: buttonWithText(frame, text)})
	}
	browser.ClickFirst(applyCandidates, applyClick)

	return nil
}

func regionFieldCandidates(frame playwright.Frame) []browser.Candidate {
	candidates := []browser.Candidate{
		{Name: "role:combobox", Locator: frame.GetByRole(*playwright.AriaRoleCombobox).First()},
	}
	for _, hint := range []string{"Reg", "Region", "Pa", "Country", "Pesq", "Search"} {
		candidates = append(candidates, browser.Candidate{
			Name:    "placeholder:" + hint,
			Locator: frame.Locator(`input[placeholder*="` + hint + `" i]`).First(),
		})
	}
	return append(candidates, browser.Candidate{Name: "input:text", Locator: frame.Locator(`input[type="text"]`).First()})
}

// optionCandidates finds a dropdown entry labelled label.
func optionCandidates(frame playwright.Frame, label string) []browser.Candidate {
	exact := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(label) + `$`)
	return []browser.Candidate{
		{Name: "role:option", Locator: frame.GetByRole(*playwright.AriaRoleOption, playwright.FrameGetByRoleOptions{Name: exact})},
		{Name: "option", Locator: frame.Locator(`[role="option"]`).Filter(playwright.LocatorFilterOptions{HasText: label}).First()},
		{Name: "li", Locator: frame.Locator("li").Filter(playwright.LocatorFilterOptions{HasText: label}).First()},
		{Name: "text", Locator: frame.GetByText(label).First()},
	}
}

// timeRangePattern matches the time-range control whatever range it
// currently shows.
func timeRangePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + knownTimeRangeText + `|` + regexp.QuoteMeta(label))
}

// SelectTimeRange picks the time-range option labelled label. A missing
// control or option leaves the dashboard default in place.
func SelectTimeRange(frame playwright.Frame, label string, logger *slog.Logger) {
	pattern := timeRangePattern(label)

	if _, ok := browser.ClickFirst([]browser.Candidate{
		{Name: "role:time-range", Locator: button(frame, pattern)},
		{Name: "text:time-range", Locator: frame.Locator("button").Filter(playwright.LocatorFilterOptions{HasText: pattern})},
	}, openClick); !ok {
		logger.Info("time-range control not found, continuing with default UI state")
		return
	}

	if name, ok := browser.ClickFirst(optionCandidates(frame, label), optionClick); ok {
		logger.Info("time range selected", "time_range", label, "candidate", name)
		return
	}

	logger.Info("time-range option not found, continuing", "time_range", label)
}
