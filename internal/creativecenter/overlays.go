package creativecenter

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/browser"
	"github.com/playwright-community/playwright-go"
)

var (
	consentEnglish    = regexp.MustCompile(`(?i)accept|agree|allow all|ok`)
	consentPortuguese = regexp.MustCompile(`(?i)aceitar|concordo|permitir tudo|permitir|ok`)
)

func button(frame playwright.Frame, name *regexp.Regexp) playwright.Locator {
	return frame.GetByRole(*playwright.AriaRoleButton, playwright.FrameGetByRoleOptions{Name: name})
}

func buttonWithText(frame playwright.Frame, text string) playwright.Locator {
	return frame.Locator("button:has-text('" + text + "')")
}

// DismissOverlays clicks every visible cookie or consent button and returns
// how many it clicked.
func DismissOverlays(frame playwright.Frame, logger *slog.Logger) int {
	candidates := []browser.Candidate{
		{Name: "role:consent-en", Locator: button(frame, consentEnglish)},
		{Name: "role:consent-pt", Locator: button(frame, consentPortuguese)},
	}
	for _, text := range []string{"Accept", "Agree", "Allow all", "Aceitar", "Concordo", "Permitir tudo"} {
		candidates = append(candidates, browser.Candidate{Name: "text:" + text, Locator: buttonWithText(frame, text)})
	}

	clicked := browser.ClickEach(candidates, browser.ClickOptions{
		VisibleTimeout: 1500 * time.Millisecond,
		ClickTimeout:   5 * time.Second,
		Pause:          400 * time.Millisecond,
	})

	if len(clicked) > 0 {
		logger.Info("dismissed overlays", "buttons", clicked)
	}
	return len(clicked)
}
