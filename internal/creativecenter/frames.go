package creativecenter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/browser"
	"github.com/playwright-community/playwright-go"
)

const (
	frameProbeTimeout = 800 * time.Millisecond
	buttonSampleLimit = 50
)

var detailsLabel = regexp.MustCompile(`(?i)^\s*(details|detalhes)\s*$`)

// ScoreFrameURL ranks a frame by how likely it is to host the dashboard.
func ScoreFrameURL(url string) int {
	if url == "" {
		return -999
	}

	score := 0
	if strings.Contains(url, "ads.tiktok.com") {
		score += 5
	}
	if strings.Contains(url, "creativecenter") {
		score += 5
	}
	if strings.Contains(url, "top-products") {
		score += 4
	}
	if strings.HasPrefix(url, "about:blank") {
		score -= 5
	}
	return score
}

// bestByURL returns the highest scoring item. Ties keep document order.
func bestByURL[T any](items []T, url func(T) string) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}

	ranked := make([]T, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ScoreFrameURL(url(ranked[i])) > ScoreFrameURL(url(ranked[j]))
	})
	return ranked[0], true
}

// PickFrame returns the frame that renders the products table. A frame
// already showing a Details action wins. Otherwise the best URL score
// decides, and the main frame is the last resort.
func PickFrame(page playwright.Page, logger *slog.Logger) playwright.Frame {
	frames := page.Frames()

	for _, f := range frames {
		probe := []browser.Candidate{{Name: "details", Locator: f.GetByText(detailsLabel)}}
		if _, ok := browser.FirstVisible(probe, frameProbeTimeout); ok {
			logger.Info("picked frame by content", "frame_url", f.URL())
			return f
		}
	}

	if best, ok := bestByURL(frames, func(f playwright.Frame) string { return f.URL() }); ok {
		logger.Info("picked frame by url", "frame_url", best.URL(), "score", ScoreFrameURL(best.URL()))
		return best
	}

	return page.MainFrame()
}

// FrameInfo describes a frame for diagnostics.
type FrameInfo struct {
	URL           string   `json:"frame_url"`
	Score         int      `json:"score"`
	ButtonsSample []string `json:"buttons_sample"`
	ButtonsCount  int      `json:"buttons_count"`
}

const visibleButtonsScript = `() => {
	const visible = (el) => {
		const s = window.getComputedStyle(el);
		const r = el.getBoundingClientRect();
		return s.visibility !== "hidden" && s.display !== "none" && r.width > 0 && r.height > 0;
	};
	return Array.from(document.querySelectorAll("button"))
		.filter(visible)
		.map((b) => (b.innerText || "").replace(/\s+/g, " ").trim())
		.filter((t) => t.length > 0)
		.slice(0, 150);
}`

func describeFrames(frames []playwright.Frame) []FrameInfo {
	out := make([]FrameInfo, 0, len(frames))
	for _, f := range frames {
		buttons, err := visibleButtons(f)
		if err != nil {
			buttons = []string{}
		}
		out = append(out, newFrameInfo(f.URL(), buttons))
	}
	return out
}

func newFrameInfo(url string, buttons []string) FrameInfo {
	sample := buttons
	if len(sample) > buttonSampleLimit {
		sample = sample[:buttonSampleLimit]
	}
	return FrameInfo{
		URL:           url,
		Score:         ScoreFrameURL(url),
		ButtonsSample: sample,
		ButtonsCount:  len(buttons),
	}
}

func visibleButtons(f playwright.Frame) ([]string, error) {
	val, err := f.Evaluate(visibleButtonsScript)
	if err != nil {
		return nil, fmt.Errorf("failed to list buttons: %w", err)
	}

	var buttons []string
	if err := decodeEvaluated(val, &buttons); err != nil {
		return nil, err
	}
	return buttons, nil
}

// decodeEvaluated converts a value returned by Evaluate into out.
func decodeEvaluated(val interface{}, out interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode evaluated value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode evaluated value: %w", err)
	}
	return nil
}
