package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/imagecatalog/internal/domain/catalog"
	"github.com/okian/imagecatalog/pkg/logger"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	reportInterval          = time.Second
)

// ErrChecksFailed is returned when at least one listed link did not answer
// with a redirect or a catalog error.
var ErrChecksFailed = errors.New("redirect checks failed")

type target struct {
	os   string
	link string
}

// Run executes the complete probe and returns its statistics. A link that
// fails transport or answers outside 3xx/400 fails the run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")

	log.Info(ctx, "starting catalog probe",
		logger.String("baseURL", config.BaseURL),
		logger.Any("os", config.OSes),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client, err := NewHTTPClient(config.BaseURL, config.Timeout)
	if err != nil {
		return stats, err
	}

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	targets, err := collectTargets(ctx, client, config.OSes, stats, log)
	if err != nil {
		return stats, err
	}

	checks := followTargets(ctx, client, config, targets, log)
	for _, c := range checks {
		switch c.Outcome {
		case OutcomeRedirect:
			stats.Redirects++
		case OutcomeRejected:
			stats.Rejected++
		default:
			stats.Failed++
			log.Warn(ctx, "link check failed",
				logger.String("os", c.OS),
				logger.String("link", c.Link),
				logger.String("reason", c.Message))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrChecksFailed, stats.Failed, len(checks))
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	u, err := client.Resolve("/healthz")
	if err != nil {
		return err
	}
	resp, err := client.Get(ctx, u.String())
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// collectTargets lists each OS and returns the links of its valid entries.
// An OS without values is counted, not fatal.
func collectTargets(ctx context.Context, client *HTTPClient, oses []string, stats *Stats, log logger.Logger) ([]target, error) {
	var targets []target
	for _, os := range oses {
		entries, err := client.List(ctx, os)
		switch {
		case errors.Is(err, ErrNoValues):
			stats.OSesEmpty++
			log.Info(ctx, "nothing listed", logger.String("os", os))
			continue
		case err != nil:
			return nil, err
		}
		stats.OSesListed++
		for _, e := range entries {
			if e.Status != catalog.StatusValid {
				stats.ErrorEntries++
				continue
			}
			stats.ValidEntries++
			targets = append(targets, target{os: os, link: e.URL})
		}
		log.Info(ctx, "listed", logger.String("os", os), logger.Int("entries", len(entries)))
	}
	return targets, nil
}

// followTargets checks every target using a bounded worker pool. Results
// keep the order of targets.
func followTargets(ctx context.Context, client *HTTPClient, config *Config, targets []target, log logger.Logger) []Check {
	checks := make([]Check, len(targets))
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		done       int64
		lastReport atomic.Int64
		wg         sync.WaitGroup
	)
	indexChan := make(chan int, workers*workerChannelMultiplier)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				t := targets[index]
				checks[index] = client.Follow(ctx, t.os, t.link)
				n := atomic.AddInt64(&done, 1)

				if config.Verbose {
					log.Debug(ctx, "checked link",
						logger.String("link", t.link),
						logger.String("outcome", string(checks[index].Outcome)),
						logger.String("location", checks[index].Location))
				}
				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress", logger.Int("checked", int(n)), logger.Int("total", len(targets)))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range targets {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	// Targets never dispatched because ctx ended still count as failures.
	for i := range checks {
		if checks[i].Outcome == "" {
			checks[i] = Check{OS: targets[i].os, Link: targets[i].link, Outcome: OutcomeFailed, Message: "not checked"}
		}
	}
	return checks
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("osesListed", stats.OSesListed),
		logger.Int("osesEmpty", stats.OSesEmpty),
		logger.Int("validEntries", stats.ValidEntries),
		logger.Int("errorEntries", stats.ErrorEntries),
		logger.Int("redirects", stats.Redirects),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
}
