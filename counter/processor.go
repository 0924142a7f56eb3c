// Package counter turns CDN access log objects into merged gem download
// counts. The fetcher streams the log object, the parser accumulates
// per version counts and the processor drives the claim, resolve, merge
// and mark done sequence around them.
package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gemstats/download-counter/config"
	"github.com/gemstats/download-counter/marker"
	"github.com/gemstats/download-counter/storage"
	"github.com/gemstats/download-counter/storage/data"
)

var (
	// ErrFetchFailed is returned when the log object could not be retrieved
	// or read to its end; the task is safe to retry since no claim was taken
	ErrFetchFailed = errors.New("could not fetch log object")
	// ErrMergeFailed is returned when resolution or the bulk merge failed
	// after the claim was taken; the processing marker is left to expire
	ErrMergeFailed = errors.New("could not merge download counts")

	// ProcessorInjector is the injector for the log processing module
	ProcessorInjector = wire.NewSet(NewBucketOpener, NewFetcher, NewLogProcessor, wire.Bind(new(Processor), new(*LogProcessor)))
)

// Processor executes one log processing task end to end
type Processor interface {
	Process(ctx context.Context, task *data.ProcessingTask) error
}

// LogProcessor is the Processor implementation wiring the fetcher, the
// marker store and the relational repositories together
type LogProcessor struct {
	fetcher       *Fetcher
	markerRepo    marker.Repository
	dataAccessor  storage.DataAccessor
	counterConfig config.CounterConfig
}

// NewLogProcessor creates the processor from its collaborators
func NewLogProcessor(fetcher *Fetcher, markerRepo marker.Repository, dataAccessor storage.DataAccessor, counterConfig config.CounterConfig) *LogProcessor {
	return &LogProcessor{fetcher: fetcher, markerRepo: markerRepo, dataAccessor: dataAccessor, counterConfig: counterConfig}
}

// Process fetches and parses the task's log object, then claims it in the
// marker store, resolves version full names to gem names, merges the counts
// and marks the object done. Fetch and parse run before the claim so a
// transient storage error never burns the claim; a failure after the claim
// leaves the short-lived processing marker to expire on its own, after which
// the queue's redelivery gets a fresh attempt.
func (processor *LogProcessor) Process(ctx context.Context, task *data.ProcessingTask) error {
	logger := log.With().Str("bucket", task.Bucket).Str("objectKey", task.ObjectKey).Logger()
	iterator, err := processor.fetcher.Fetch(ctx, task.Bucket, task.ObjectKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer iterator.Close()
	counts, err := ParseDownloads(iterator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !processor.counterConfig.IsDownloadCountsEnabled() {
		logger.Info().Int("versions", len(counts)).Int64("downloads", totalDownloads(counts)).Msg("download counting disabled, log object parsed and dropped")
		return nil
	}
	if err = processor.markerRepo.TryClaim(task.Bucket, task.ObjectKey); err != nil {
		return err
	}
	entries, err := processor.resolveEntries(counts, &logger)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		if err = processor.dataAccessor.GetDownloadCountRepository().BulkIncrement(entries); err != nil {
			return fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
	}
	if err = processor.markerRepo.MarkDone(task.Bucket, task.ObjectKey); err != nil {
		return err
	}
	logger.Info().Int("versions", len(entries)).Int64("downloads", totalDownloads(counts)).Msg("download counts merged")
	return nil
}

// resolveEntries maps version full names to their gem and drops versions the
// index does not know about; any other resolution error aborts the batch
func (processor *LogProcessor) resolveEntries(counts map[string]int64, logger *zerolog.Logger) ([]*data.VersionDownload, error) {
	versionRepo := processor.dataAccessor.GetVersionRepository()
	entries := make([]*data.VersionDownload, 0, len(counts))
	for fullName, count := range counts {
		gemName, err := versionRepo.ResolveGemName(fullName)
		if errors.Is(err, storage.ErrVersionNotFound) {
			logger.Warn().Str("fullName", fullName).Int64("downloads", count).Msg("unknown version, dropping its downloads")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
		entry, err := data.NewVersionDownload(gemName, fullName, count)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func totalDownloads(counts map[string]int64) (total int64) {
	for _, count := range counts {
		total += count
	}
	return total
}
