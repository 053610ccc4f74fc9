package formationsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cmformation/formation-portal/pkg/audit"
	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
	"github.com/cmformation/formation-portal/pkg/wordpress"
)

// Canonical taxonomy keys stored in taxonomy_terms
const (
	TaxonomyProvince       = "province"
	TaxonomyPosition       = "position"
	TaxonomyFormationState = "formation_state"
)

// Jobs
const (
	JobTerms   = "terms"
	JobMembers = "members"
	JobAll     = "all"
)

// ACF fields read from each member
const (
	FieldEmail     = "email"
	FieldPhoto     = "photo"
	FieldBirthDate = "birth_date"
)

// ErrRunning is returned when a sync is requested while another one runs
var ErrRunning = errors.New("a sync is already running")

// ErrUnknownJob is returned for job names other than terms, members and all
var ErrUnknownJob = errors.New("unknown sync job")

// Source is the WordPress side of the sync
type Source interface {
	EachTerm(ctx context.Context, taxonomy string, fn func([]wordpress.Term) error) error
	EachMember(ctx context.Context, postType string, fn func([]wordpress.Member) error) error
}

// Options controls a sync run
type Options struct {
	// DryRun computes the report without writing directory rows or terms
	DryRun bool
	// Prune removes directory rows absent from the matched set
	Prune bool
	// Actor is recorded in the audit trail
	Actor string
}

// Report summarizes a sync run
type Report struct {
	RunID           int64          `json:"run_id"`
	Job             string         `json:"job"`
	DryRun          bool           `json:"dry_run"`
	Terms           map[string]int `json:"terms,omitempty"`
	TermsUpserted   int            `json:"terms_upserted,omitempty"`
	Fetched         int            `json:"fetched"`
	Matched         int            `json:"matched"`
	Upserted        int            `json:"upserted"`
	Pruned          int            `json:"pruned"`
	UnresolvedTerms int            `json:"unresolved_terms"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// Service runs the WordPress to directory sync. Runs are serialized.
type Service struct {
	source     Source
	store      store.FormationStore
	taxonomies map[string]string
	memberType string
	logger     *zap.Logger
	now        func() time.Time

	mu sync.Mutex
}

// New creates a sync Service reading the member post type and taxonomies named in cfg
func New(source Source, formation store.FormationStore, cfg *config.PortalConfig, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		store:  formation,
		taxonomies: map[string]string{
			TaxonomyProvince:       cfg.WordPressTaxonomies.Province,
			TaxonomyPosition:       cfg.WordPressTaxonomies.Position,
			TaxonomyFormationState: cfg.WordPressTaxonomies.FormationState,
		},
		memberType: cfg.WordPressMemberType,
		logger:     logger.Named("sync"),
		now:        time.Now,
	}
}

// Run dispatches a job by name
func (s *Service) Run(ctx context.Context, job string, opts Options) (*Report, error) {
	switch job {
	case JobTerms:
		return s.SyncTerms(ctx, opts)
	case JobMembers:
		return s.SyncMembers(ctx, opts)
	case JobAll:
		return s.SyncAll(ctx, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
}

// SyncTerms refreshes taxonomy_terms from every configured taxonomy.
// Fetched and Upserted count terms.
func (s *Service) SyncTerms(ctx context.Context, opts Options) (*Report, error) {
	return s.track(ctx, JobTerms, opts, func(ctx context.Context, report *Report) error {
		byTaxonomy, err := s.fetchTerms(ctx)
		if err != nil {
			return err
		}
		fetched, upserted, err := s.syncTerms(opts, byTaxonomy, report)
		report.Fetched = fetched
		report.Upserted = upserted
		return err
	})
}

// SyncMembers rebuilds the confreres_in_formation directory
func (s *Service) SyncMembers(ctx context.Context, opts Options) (*Report, error) {
	return s.track(ctx, JobMembers, opts, func(ctx context.Context, report *Report) error {
		byTaxonomy, err := s.fetchTerms(ctx)
		if err != nil {
			return err
		}
		return s.syncMembers(ctx, opts, byTaxonomy, report)
	})
}

// SyncAll refreshes terms and then members in a single run over one fetch of
// the taxonomies. Fetched, Matched and Upserted count members; term counts are
// reported in Terms and TermsUpserted.
func (s *Service) SyncAll(ctx context.Context, opts Options) (*Report, error) {
	return s.track(ctx, JobAll, opts, func(ctx context.Context, report *Report) error {
		byTaxonomy, err := s.fetchTerms(ctx)
		if err != nil {
			return err
		}
		if _, _, err := s.syncTerms(opts, byTaxonomy, report); err != nil {
			return err
		}
		return s.syncMembers(ctx, opts, byTaxonomy, report)
	})
}

// track serializes runs and records each one in sync_runs and the audit trail
func (s *Service) track(ctx context.Context, job string, opts Options, fn func(context.Context, *Report) error) (*Report, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunning
	}
	defer s.mu.Unlock()

	run, err := s.store.StartRun(job, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("recording sync run: %w", err)
	}

	report := &Report{
		RunID:     run.ID,
		Job:       job,
		DryRun:    opts.DryRun,
		StartedAt: run.StartedAt,
	}
	log := s.logger.With(zap.Int64("run", run.ID), zap.String("job", job), zap.Bool("dry_run", opts.DryRun))
	log.Info("sync started")

	runErr := fn(ctx, report)
	report.FinishedAt = s.now().UTC()

	result := store.RunResult{
		Status:   model.SyncSucceeded,
		Fetched:  report.Fetched,
		Matched:  report.Matched,
		Upserted: report.Upserted,
		Pruned:   report.Pruned,
	}
	if runErr != nil {
		result.Status = model.SyncFailed
		result.Error = runErr.Error()
	}
	if err := s.store.FinishRun(run.ID, result); err != nil {
		log.Error("failed to record sync result", zap.Error(err))
	}

	actor := opts.Actor
	if actor == "" {
		actor = "system"
	}
	audit.Log(audit.SyncEvent{
		ActorID:      actor,
		RunID:        run.ID,
		Job:          job,
		DryRun:       opts.DryRun,
		Fetched:      report.Fetched,
		Matched:      report.Matched,
		Upserted:     report.Upserted,
		Pruned:       report.Pruned,
		Success:      runErr == nil,
		ErrorMessage: result.Error,
	})

	if runErr != nil {
		log.Error("sync failed", zap.Error(runErr))
		return report, runErr
	}
	log.Info("sync finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("matched", report.Matched),
		zap.Int("upserted", report.Upserted),
		zap.Int("pruned", report.Pruned),
		zap.Int("unresolved_terms", report.UnresolvedTerms),
	)
	return report, nil
}

// fetchTerms downloads every configured taxonomy concurrently, keyed by canonical taxonomy
func (s *Service) fetchTerms(ctx context.Context) (map[string][]wordpress.Term, error) {
	keys := []string{TaxonomyProvince, TaxonomyPosition, TaxonomyFormationState}
	results := make([][]wordpress.Term, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		restBase := s.taxonomies[key]
		if restBase == "" {
			continue
		}
		i := i
		g.Go(func() error {
			return s.source.EachTerm(ctx, restBase, func(terms []wordpress.Term) error {
				results[i] = append(results[i], terms...)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byTaxonomy := make(map[string][]wordpress.Term, len(keys))
	for i, key := range keys {
		byTaxonomy[key] = results[i]
	}
	return byTaxonomy, nil
}

// syncTerms stores byTaxonomy and returns the number of terms fetched and upserted
func (s *Service) syncTerms(opts Options, byTaxonomy map[string][]wordpress.Term, report *Report) (int, int, error) {
	now := s.now().UTC()
	report.Terms = map[string]int{}
	var rows []model.TaxonomyTerm
	for taxonomy, terms := range byTaxonomy {
		report.Terms[taxonomy] = len(terms)
		for _, t := range terms {
			rows = append(rows, model.TaxonomyTerm{
				Taxonomy: taxonomy,
				WPID:     t.ID,
				Name:     wordpress.PlainText(t.Name),
				Slug:     t.Slug,
				Parent:   t.Parent,
				Count:    t.Count,
				SyncedAt: now,
			})
		}
	}

	if opts.DryRun {
		return len(rows), 0, nil
	}
	n, err := s.store.UpsertTerms(rows)
	if err != nil {
		return len(rows), 0, fmt.Errorf("upserting terms: %w", err)
	}
	report.TermsUpserted = n
	return len(rows), n, nil
}

func (s *Service) syncMembers(ctx context.Context, opts Options, byTaxonomy map[string][]wordpress.Term, report *Report) error {
	settings, err := s.store.Settings()
	if err != nil {
		return fmt.Errorf("loading formation settings: %w", err)
	}

	f := newFilter(settings, byTaxonomy, s.taxonomies)

	now := s.now().UTC()
	fetched := 0
	var rows []model.ConfrereInFormation
	err = s.source.EachMember(ctx, s.memberType, func(members []wordpress.Member) error {
		fetched += len(members)
		for i := range members {
			if row, ok := f.build(&members[i], now); ok {
				rows = append(rows, row)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	report.Fetched = fetched
	report.Matched = len(rows)
	report.UnresolvedTerms = f.unresolved

	if opts.DryRun {
		return nil
	}

	n, err := s.store.UpsertConfreres(rows)
	if err != nil {
		return fmt.Errorf("upserting confreres: %w", err)
	}
	report.Upserted = n

	// An empty fetch never prunes the directory
	if (opts.Prune || settings.PruneMissing) && fetched > 0 {
		keep := make([]int64, 0, len(rows))
		for _, row := range rows {
			keep = append(keep, row.WPID)
		}
		pruned, err := s.store.PruneConfreres(keep)
		if err != nil {
			return fmt.Errorf("pruning confreres: %w", err)
		}
		report.Pruned = pruned
	}

	if err := s.store.MarkSynced(now); err != nil {
		return fmt.Errorf("stamping last sync: %w", err)
	}
	return nil
}
