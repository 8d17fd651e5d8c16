// Package pipeline runs the fetch-map-write load cycle across all configured
// districts. Failures are collected into the cycle report instead of aborting
// the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"groundwatch/internal/models"
	"groundwatch/internal/observability"
)

// Fetcher retrieves raw readings for one district.
type Fetcher interface {
	FetchDistrict(ctx context.Context, district models.DistrictRef, w models.DateWindow) ([]models.RawReading, error)
}

// Writer replaces the full stored row set.
type Writer interface {
	ReplaceAll(ctx context.Context, records []models.GroundwaterRecord) (models.WriteReport, error)
}

// WindowFunc derives the fetch date range from the cycle start time.
type WindowFunc func(now time.Time) models.DateWindow

// Pipeline orchestrates one load cycle at a time. It holds no mutable state
// between runs; the remote store is the only system of record.
type Pipeline struct {
	fetcher    Fetcher
	writer     Writer
	districts  []models.DistrictRef
	window     WindowFunc
	fetchDelay time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline over the given districts.
func New(
	fetcher Fetcher,
	writer Writer,
	districts []models.DistrictRef,
	window WindowFunc,
	fetchDelay time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		writer:     writer,
		districts:  districts,
		window:     window,
		fetchDelay: fetchDelay,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run executes one full load cycle and always returns a report. A district
// whose fetch fails is recorded and skipped; the write happens once at the
// end over everything that was collected. When the context expires before
// the write stage the store is left untouched, so the previous cycle's rows
// keep serving reads.
func (p *Pipeline) Run(ctx context.Context) models.CycleReport {
	start := p.clock.Now()
	report := models.CycleReport{StartedAt: start.UTC()}
	window := p.window(start)

	p.logger.Info("load cycle started",
		"districts", len(p.districts),
		"start_date", window.StartDate(),
		"end_date", window.EndDate(),
	)

	records := make([]models.GroundwaterRecord, 0, 1024)

	for i, district := range p.districts {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("cycle cancelled before %s: %v", district.District, ctx.Err()))
			break
		}

		readings, err := p.fetcher.FetchDistrict(ctx, district, window)
		if err != nil {
			report.DistrictsFailed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", district.District, err))
			p.metrics.DistrictsFailed.Inc()
			p.logger.Warn("district fetch failed", "district", district.District, "error", err)
		} else {
			report.DistrictsProcessed++
			report.RecordsFetched += len(readings)
			for _, raw := range readings {
				rec, ok := MapReading(raw, district)
				if !ok {
					report.RecordsDropped++
					p.metrics.RecordsDropped.Inc()
					continue
				}
				records = append(records, rec)
			}
		}

		if i < len(p.districts)-1 {
			p.pause(ctx)
		}
	}

	if ctx.Err() != nil {
		report.Errors = append(report.Errors, "skipping write: cycle deadline exceeded")
		p.finish(&report, start)
		return report
	}

	writeReport, err := p.writer.ReplaceAll(ctx, records)
	report.Write = writeReport
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("store: %v", err))
		p.metrics.StoreErrors.Inc()
		p.logger.Error("store replace failed", "error", err)
	}
	p.metrics.RecordsWritten.Add(float64(writeReport.RecordsWritten))

	p.finish(&report, start)
	return report
}

func (p *Pipeline) finish(report *models.CycleReport, start time.Time) {
	report.Duration = p.clock.Since(start)
	report.DurationSeconds = report.Duration.Seconds()

	p.metrics.CyclesTotal.Inc()
	p.metrics.CycleDuration.Observe(report.Duration.Seconds())

	p.logger.Info("load cycle finished",
		"districts_processed", report.DistrictsProcessed,
		"districts_failed", report.DistrictsFailed,
		"records_fetched", report.RecordsFetched,
		"records_dropped", report.RecordsDropped,
		"records_written", report.Write.RecordsWritten,
		"batches_failed", report.Write.BatchesFailed,
		"duration", report.Duration.String(),
	)
}

// pause waits the configured delay between district requests so the upstream
// is not hammered.
func (p *Pipeline) pause(ctx context.Context) {
	if p.fetchDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-p.clock.After(p.fetchDelay):
	}
}
