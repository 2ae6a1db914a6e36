package creativecenter

import (
	"context"
	"fmt"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/browser"
)

const (
	snapshotTextLimit   = 800
	snapshotExtraSettle = 500 * time.Millisecond
)

type OpenResult struct {
	OK       bool   `json:"ok"`
	Title    string `json:"title"`
	FinalURL string `json:"finalUrl"`
	MS       int64  `json:"ms"`
}

type FramesResult struct {
	OK     bool        `json:"ok"`
	Frames []FrameInfo `json:"frames"`
}

type ElementCounts struct {
	Buttons int `json:"buttons"`
	Links   int `json:"links"`
	Inputs  int `json:"inputs"`
	Selects int `json:"selects"`
	Tables  int `json:"tables"`
	Trs     int `json:"trs"`
}

type Snapshot struct {
	OK               bool          `json:"ok"`
	Title            string        `json:"title"`
	FinalURL         string        `json:"finalUrl"`
	HTMLLen          int           `json:"htmlLen"`
	TextSample       string        `json:"textSample"`
	Counts           ElementCounts `json:"counts"`
	ScreenshotBase64 string        `json:"screenshotBase64"`
}

// Open loads the dashboard and reports where the browser ended up.
func (s *Service) Open(ctx context.Context) (*OpenResult, error) {
	started := s.now()

	session, release, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	title, err := session.Page.Title()
	if err != nil {
		return nil, fmt.Errorf("failed to get page title: %w", err)
	}

	return &OpenResult{
		OK:       true,
		Title:    title,
		FinalURL: session.Page.URL(),
		MS:       s.now().Sub(started).Milliseconds(),
	}, nil
}

// Frames lists every frame with its URL score and a sample of its visible
// buttons.
func (s *Service) Frames(ctx context.Context) (*FramesResult, error) {
	session, release, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return &FramesResult{
		OK:     true,
		Frames: describeFrames(session.Page.Frames()),
	}, nil
}

const snapshotScript = `(limit) => ({
	htmlLen: document.documentElement.outerHTML.length,
	textSample: (document.body?.innerText || "").replace(/\s+/g, " ").trim().slice(0, limit),
	counts: {
		buttons: document.querySelectorAll("button").length,
		links: document.querySelectorAll("a").length,
		inputs: document.querySelectorAll("input").length,
		selects: document.querySelectorAll("select").length,
		tables: document.querySelectorAll("table").length,
		trs: document.querySelectorAll("tr").length,
	},
})`

// Snapshot captures page statistics and a full-page screenshot.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	session, release, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := browser.Sleep(ctx, snapshotExtraSettle); err != nil {
		return nil, err
	}

	page := session.Page

	title, err := page.Title()
	if err != nil {
		return nil, fmt.Errorf("failed to get page title: %w", err)
	}

	val, err := page.Evaluate(snapshotScript, snapshotTextLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect page: %w", err)
	}

	snap := &Snapshot{OK: true, Title: title, FinalURL: page.URL()}
	if err := decodeEvaluated(val, snap); err != nil {
		return nil, err
	}

	if snap.ScreenshotBase64, err = screenshot(page); err != nil {
		return nil, err
	}

	return snap, nil
}
