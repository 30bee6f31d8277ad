package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/wordscan/internal/crawler"
	"github.com/nao1215/wordscan/internal/model"
	"github.com/nao1215/wordscan/internal/report"
)

// CrawlStep crawls the seed of the report and records the outcome.
// A failed crawl marks the report as failed and returns the crawl error.
type CrawlStep struct {
	controller *crawler.Controller
}

// NewCrawlStep creates a CrawlStep that crawls with controller.
func NewCrawlStep(controller *crawler.Controller) *CrawlStep {
	return &CrawlStep{controller: controller}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl.
func (s *CrawlStep) Do(ctx context.Context, r *model.CrawlReport) error {
	r.Limit = s.controller.Limit()
	r.TopN = s.controller.TopN()
	r.MinWordLength = s.controller.MinWordLength()
	r.StartedAt = time.Now()

	result, err := s.controller.Crawl(ctx, r.Seed)
	if result != nil {
		r.PagesCrawled = result.PagesCrawled
		r.PagesSkipped = result.PagesSkipped
		r.URLsVisited = result.Visited
	}
	if err != nil {
		r.Fail(err)
		return err
	}

	r.Complete(result.TopWords)
	return nil
}

// ReportStep writes the report with a report.Writer.
// One ReportStep can be shared by the pipelines of a batch; writes are
// serialized so reports never interleave.
type ReportStep struct {
	mu     sync.Mutex
	writer report.Writer
}

// NewReportStep creates a ReportStep that writes with w.
func NewReportStep(w report.Writer) *ReportStep {
	return &ReportStep{writer: w}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, r *model.CrawlReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReportStore persists crawl reports.
// database.CrawlDB implements it.
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.CrawlReport) error
}

// ErrNilStore is returned by SaveStep when it has no store.
var ErrNilStore = errors.New("no report store configured")

// SaveStep stores the report in the history database.
type SaveStep struct {
	store ReportStore
}

// NewSaveStep creates a SaveStep that stores reports in store.
func NewSaveStep(store ReportStore) *SaveStep {
	return &SaveStep{store: store}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the report.
func (s *SaveStep) Do(ctx context.Context, r *model.CrawlReport) error {
	if s.store == nil {
		return ErrNilStore
	}
	if err := s.store.SaveReport(ctx, r); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
