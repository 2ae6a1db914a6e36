package creativecenter

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/creative-center-scraper/internal/browser"
	"github.com/maltedev/creative-center-scraper/internal/config"
	"github.com/maltedev/creative-center-scraper/internal/delivery"
	"github.com/maltedev/creative-center-scraper/internal/dom"
	"github.com/maltedev/creative-center-scraper/internal/ratelimit"
	"github.com/maltedev/creative-center-scraper/internal/table"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"
)

const Source = "creative_center"

// Launcher opens isolated browser sessions and loads pages in them.
type Launcher interface {
	NewSession() (*browser.Session, error)
	Navigate(ctx context.Context, page playwright.Page, url string) error
}

type Request struct {
	Region            string `json:"region"`
	TimeRangeLabel    string `json:"timeRangeLabel"`
	IncludeScreenshot bool   `json:"includeScreenshot"`
}

// Result is the scrape payload handed to the spreadsheet pipeline.
type Result struct {
	OK               bool            `json:"ok"`
	RunID            string          `json:"run_id"`
	Source           string          `json:"source"`
	PageURL          string          `json:"page_url"`
	Region           string          `json:"region"`
	TimeRange        string          `json:"time_range"`
	CollectedAt      string          `json:"collected_at"`
	Headers          []string        `json:"headers"`
	HeaderKeys       []string        `json:"header_keys"`
	Count            int             `json:"count"`
	MS               int64           `json:"ms"`
	Items            []*table.Record `json:"items"`
	ScreenshotBase64 string          `json:"screenshotBase64,omitempty"`
}

type Service struct {
	launcher  Launcher
	extractor *table.Extractor
	publisher delivery.Publisher
	spacer    *ratelimit.Spacer
	slots     *semaphore.Weighted
	cfg       config.ScraperConfig
	logger    *slog.Logger
	now       func() time.Time

	// pipeline and capture act on the opened page.
	pipeline func(ctx context.Context, page playwright.Page, req Request, logger *slog.Logger) (*table.Result, error)
	capture  func(page playwright.Page) (string, error)
}

func NewService(cfg config.ScraperConfig, launcher Launcher, publisher delivery.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = delivery.Discard{}
	}
	if cfg.ConcurrentLimit < 1 {
		cfg.ConcurrentLimit = 1
	}

	opts := table.DefaultOptions()
	opts.RowWaitTimeout = cfg.RowWaitTimeout
	opts.MinProductLength = cfg.MinProductLength

	s := &Service{
		launcher:  launcher,
		extractor: table.NewExtractor(opts, logger),
		publisher: publisher,
		spacer:    ratelimit.NewSpacer(cfg.RateLimitMin, cfg.RateLimitMax),
		slots:     semaphore.NewWeighted(int64(cfg.ConcurrentLimit)),
		cfg:       cfg,
		logger:    logger.With("component", "creative_center"),
		now:       time.Now,
		capture:   screenshot,
	}
	s.pipeline = s.run
	return s
}

// Normalize fills the request defaults.
func (s *Service) Normalize(req Request) Request {
	if strings.TrimSpace(req.Region) == "" {
		req.Region = s.cfg.DefaultRegion
	}
	if strings.TrimSpace(req.TimeRangeLabel) == "" {
		req.TimeRangeLabel = s.cfg.DefaultTimeRange
	}
	return req
}

// session acquires a scrape slot, waits for the navigation gap and opens
// the target page. The returned release must always be called.
func (s *Service) session(ctx context.Context) (*browser.Session, func(), error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("failed to acquire scrape slot: %w", err)
	}

	if err := s.spacer.Wait(ctx); err != nil {
		s.slots.Release(1)
		return nil, nil, fmt.Errorf("failed waiting for rate limit: %w", err)
	}

	session, err := s.launcher.NewSession()
	if err != nil {
		s.slots.Release(1)
		s.spacer.RecordError()
		return nil, nil, fmt.Errorf("failed to open browser session: %w", err)
	}

	release := func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("failed to close browser session", "error", err)
		}
		s.slots.Release(1)
	}

	if err := s.launcher.Navigate(ctx, session.Page, s.cfg.TargetURL); err != nil {
		release()
		s.spacer.RecordError()
		return nil, nil, err
	}

	return session, release, nil
}

// ScrapeTopProducts runs the whole pipeline in a fresh browser session:
// navigate, pick the dashboard frame, dismiss overlays, apply filters and
// extract the table.
func (s *Service) ScrapeTopProducts(ctx context.Context, req Request) (*Result, error) {
	started := s.now()
	req = s.Normalize(req)
	runID := uuid.New().String()
	logger := s.logger.With("run_id", runID, "region", req.Region, "time_range", req.TimeRangeLabel)

	logger.Info("starting scrape")

	session, release, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	extracted, err := s.pipeline(ctx, session.Page, req, logger)
	if err != nil {
		s.spacer.RecordError()
		return nil, err
	}
	s.spacer.RecordSuccess()

	collectedAt := s.now().UTC()
	result := &Result{
		OK:          true,
		RunID:       runID,
		Source:      Source,
		PageURL:     s.cfg.TargetURL,
		Region:      req.Region,
		TimeRange:   req.TimeRangeLabel,
		CollectedAt: collectedAt.Format(time.RFC3339),
		Headers:     extracted.Headers,
		HeaderKeys:  extracted.HeaderKeys,
		Count:       len(extracted.Items),
		Items:       extracted.Items,
		MS:          s.now().Sub(started).Milliseconds(),
	}

	if req.IncludeScreenshot {
		shot, err := s.capture(session.Page)
		if err != nil {
			return nil, err
		}
		result.ScreenshotBase64 = shot
	}

	s.publish(ctx, result, collectedAt, logger)

	logger.Info("scrape completed", "count", result.Count, "ms", result.MS)

	return result, nil
}

func (s *Service) run(ctx context.Context, page playwright.Page, req Request, logger *slog.Logger) (*table.Result, error) {
	frame := PickFrame(page, logger)

	DismissOverlays(frame, logger)

	logger.Info("selecting region")
	if err := SelectRegion(frame, req.Region, logger); err != nil {
		return nil, fmt.Errorf("failed to select region: %w", err)
	}

	logger.Info("selecting time range")
	SelectTimeRange(frame, req.TimeRangeLabel, logger)

	logger.Info("extracting table")
	extracted, err := s.extractor.Extract(ctx, dom.NewFrame(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to extract table: %w", err)
	}
	return extracted, nil
}

// publish never fails the scrape; delivery problems are only logged.
func (s *Service) publish(ctx context.Context, result *Result, collectedAt time.Time, logger *slog.Logger) {
	payload := *result
	payload.ScreenshotBase64 = ""

	err := s.publisher.Publish(ctx, &delivery.Event{
		RunID:       result.RunID,
		Region:      result.Region,
		TimeRange:   result.TimeRange,
		Count:       result.Count,
		CollectedAt: collectedAt,
		Payload:     payload,
	})
	if err != nil {
		logger.Error("failed to publish scrape result", "error", err)
	}
}

func screenshot(page playwright.Page) (string, error) {
	png, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypePng,
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
