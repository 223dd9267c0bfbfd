package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/naming"
)

type ReportTarget struct {
	Name  string
	Store domain.ReportStore
}

// Reporter writes run reports to local storage and then fans them out to the
// remote targets. A failing remote target is logged, never returned.
type Reporter struct {
	local      domain.ReportStore
	targets    []ReportTarget
	compressor domain.Compressor
	logger     Logger
}

func NewReporter(
	local domain.ReportStore,
	targets []ReportTarget,
	compressor domain.Compressor,
	logger Logger,
) *Reporter {
	return &Reporter{
		local:      local,
		targets:    targets,
		compressor: compressor,
		logger:     logger,
	}
}

func NewReport(op domain.Operation, instant, startedAt time.Time) *domain.Report {
	return &domain.Report{
		ID:        uuid.NewString(),
		Operation: op,
		Instant:   instant.UTC(),
		StartedAt: startedAt.UTC(),
	}
}

func (uc *Reporter) Publish(ctx context.Context, report *domain.Report) (string, error) {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now().UTC()
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	name := reportName(report)
	if uc.compressor != nil {
		compressed, err := uc.compressor.Compress(body)
		if err != nil {
			return "", fmt.Errorf("compress report: %w", err)
		}
		uc.logger.Infof("Report compressed to %.1f%% of original", float64(len(compressed))/float64(len(body))*100)
		body = compressed
		name += uc.compressor.Extension()
	}

	if uc.local != nil {
		if err := uc.local.Put(ctx, name, body); err != nil {
			return "", fmt.Errorf("local report: %w", err)
		}
	}

	if len(uc.targets) > 0 {
		uc.publishToTargets(ctx, name, body)
	}

	return name, nil
}

func (uc *Reporter) publishToTargets(ctx context.Context, name string, body []byte) {
	var wg sync.WaitGroup

	for _, target := range uc.targets {
		wg.Add(1)
		go func(t ReportTarget) {
			defer wg.Done()

			if err := t.Store.Put(ctx, name, body); err != nil {
				uc.logger.Errorf("Failed to publish report %s to %s: %v", name, t.Name, err)
			} else {
				uc.logger.Infof("Published report %s to %s", name, t.Name)
			}
		}(target)
	}

	wg.Wait()
}

// reportName embeds the run start and a short run id, so two runs of the same
// operation within one second do not overwrite each other.
func reportName(report *domain.Report) string {
	name := fmt.Sprintf("bqvault_%s_%s", report.Operation, report.StartedAt.UTC().Format(naming.Layout))
	if short := shortID(report.ID); short != "" {
		name += "_" + short
	}
	return name + ".json"
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Summarize fills the success flag from the collected results.
func Summarize(report *domain.Report) {
	report.Success = report.Error == ""
	for _, b := range report.Backups {
		if !b.Success() {
			report.Success = false
		}
	}
	for _, r := range report.Restores {
		if !r.Success {
			report.Success = false
		}
	}
	if report.Deletion != nil && !report.Deletion.Success() {
		report.Success = false
	}
}
