package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"factorsync/internal/classifier"
	"factorsync/internal/domain"
	"factorsync/internal/feed"
	"factorsync/internal/port"
)

// UpdateOptions selects what one run processes. Empty Sectors means the
// configured active sectors.
type UpdateOptions struct {
	Sectors []string
	DryRun  bool
}

// SectorSummary is the per-sector outcome of a run.
type SectorSummary struct {
	Sector    string
	Found     int
	Created   int
	Updated   int
	Unchanged int
	Err       error
}

// UpdateReport summarizes a run.
type UpdateReport struct {
	URL             string
	Version         string
	DryRun          bool
	ArchiveLocation string
	Extract         feed.ExtractStats
	Sectors         []SectorSummary
	TotalCreated    int
	TotalUpdated    int
}

// UpdateSettings holds the run options that come from application config.
type UpdateSettings struct {
	ParallelSectors bool
	ArchiveEnabled  bool
	ArchivePrefix   string
}

// UpdateService defines the feed update contract.
type UpdateService interface {
	Run(ctx context.Context, opts UpdateOptions) (*UpdateReport, error)
}

type updateService struct {
	configs    FeedConfigService
	source     port.FeedSource
	classifier *classifier.Classifier
	reconciler *Reconciler
	archive    port.ObjectStorage
	lock       port.RunLock
	settings   UpdateSettings
	log        *zap.Logger
	now        func() time.Time
}

// NewUpdateService creates a new UpdateService implementation. archive and
// lock may be nil to disable archiving and run locking.
func NewUpdateService(
	configs FeedConfigService,
	source port.FeedSource,
	cls *classifier.Classifier,
	store port.FactorStore,
	archive port.ObjectStorage,
	lock port.RunLock,
	settings UpdateSettings,
	log *zap.Logger,
) UpdateService {
	return &updateService{
		configs:    configs,
		source:     source,
		classifier: cls,
		reconciler: NewReconciler(store, log),
		archive:    archive,
		lock:       lock,
		settings:   settings,
		log:        log,
		now:        time.Now,
	}
}

func (s *updateService) Run(ctx context.Context, opts UpdateOptions) (*UpdateReport, error) {
	if s.lock != nil {
		release, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading feed configuration: %w", err)
	}

	requested := opts.Sectors
	if len(requested) == 0 {
		requested = cfg.ActiveSectors
	}
	sectors := normalizeSectors(requested)
	if len(sectors) == 0 {
		return nil, domain.ErrNoActiveSectors
	}
	for _, sector := range sectors {
		if !s.classifier.HasSector(sector) {
			s.log.Warn("sector has no rules, it will match nothing", zap.String("sector", sector))
		}
	}

	report := &UpdateReport{
		URL:     cfg.CSVURL,
		Version: VersionFromURL(cfg.CSVURL),
		DryRun:  opts.DryRun,
	}

	payload, err := s.source.Fetch(ctx, cfg.CSVURL)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		report.ArchiveLocation = s.archivePayload(ctx, payload, report.Version)
	}

	candidates, stats, err := feed.ExtractAll(payload.Text, s.log)
	report.Extract = stats
	if err != nil {
		return report, err
	}

	results := s.classifier.Partition(candidates, sectors, classifier.NewQuotaTracker(), s.settings.ParallelSectors)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	var errs []error
	for _, r := range results {
		res, err := s.reconciler.Reconcile(ctx, r.Sector, r.Candidates(), opts.DryRun)
		summary := SectorSummary{
			Sector:    r.Sector,
			Found:     res.Found,
			Created:   res.Created,
			Updated:   res.Updated,
			Unchanged: res.Unchanged,
			Err:       err,
		}
		report.Sectors = append(report.Sectors, summary)
		report.TotalCreated += res.Created
		report.TotalUpdated += res.Updated

		if err != nil {
			errs = append(errs, fmt.Errorf("sector %s: %w", r.Sector, err))
			if ctx.Err() != nil {
				break
			}
			s.log.Error("sector failed, continuing with the next one",
				zap.String("sector", r.Sector), zap.Error(err))
		}
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}

	if !opts.DryRun {
		if err := s.configs.MarkUpdated(ctx, s.now(), report.Version); err != nil {
			return report, fmt.Errorf("recording update: %w", err)
		}
	}

	s.log.Info("update finished",
		zap.Int("created", report.TotalCreated),
		zap.Int("updated", report.TotalUpdated),
		zap.Bool("dry_run", opts.DryRun))
	return report, nil
}

// archivePayload keeps a copy of the raw feed. Failures are logged only.
func (s *updateService) archivePayload(ctx context.Context, payload *feed.Payload, version string) string {
	if s.archive == nil || !s.settings.ArchiveEnabled {
		return ""
	}
	if version == "" {
		version = "unversioned"
	}
	key := path.Join(s.settings.ArchivePrefix, version, s.now().UTC().Format("20060102T150405Z")+".csv")

	location, err := s.archive.Put(ctx, key, payload.Raw, "text/csv; charset=iso-8859-1")
	if err != nil {
		s.log.Warn("archiving feed failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	s.log.Info("feed archived", zap.String("location", location))
	return location
}
