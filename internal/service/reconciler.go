package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"factorsync/internal/domain"
	"factorsync/internal/feed"
	"factorsync/internal/port"
)

const subcategoryMaxRunes = 50

var subcategoryReplacer = strings.NewReplacer(
	" ", "_",
	"-", "_",
	"(", "",
	")", "",
	"é", "e",
	"è", "e",
	"à", "a",
	"ô", "o",
)

// SubcategoryKey derives the stable identity of a factor within its sector.
// The same label always produces the same key, which is what makes a rerun
// over an unchanged feed a no-op.
func SubcategoryKey(name, sector string) string {
	clean := subcategoryReplacer.Replace(strings.ToLower(name))
	if utf8.RuneCountInString(clean) > subcategoryMaxRunes {
		clean = string([]rune(clean)[:subcategoryMaxRunes])
	}
	return sector + "_" + clean
}

// ReconcileResult counts the decisions taken for one sector.
type ReconcileResult struct {
	Found     int
	Created   int
	Updated   int
	Unchanged int
}

// Reconciler turns admitted candidates into create/update decisions against a FactorStore.
type Reconciler struct {
	store port.FactorStore
	log   *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(store port.FactorStore, log *zap.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Reconcile processes candidates in order. In dry-run mode decisions are
// counted but the store is only read. On a store failure or cancellation the
// counts reached so far are returned with the error; records already written
// stay written.
func (r *Reconciler) Reconcile(ctx context.Context, sector string, candidates []feed.Candidate, dryRun bool) (ReconcileResult, error) {
	res := ReconcileResult{Found: len(candidates)}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c := candidates[i]
		key := SubcategoryKey(c.Name, sector)

		existing, err := r.store.FindByKey(ctx, key, sector)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return res, fmt.Errorf("%w: find %s/%s: %w", domain.ErrReconcile, sector, key, err)
		}

		var factor *domain.EmissionFactor
		switch {
		case existing == nil:
			factor = &domain.EmissionFactor{
				Name:        c.Name,
				Category:    sector,
				Subcategory: key,
				Unit:        c.Unit,
				FactorValue: c.Value,
				Source:      domain.FactorSource,
				IsActive:    true,
			}
			res.Created++
		case !existing.FactorValue.Equal(c.Value):
			r.log.Debug("factor value changed",
				zap.String("subcategory", key),
				zap.Stringer("old", existing.FactorValue),
				zap.Stringer("new", c.Value))
			factor = existing
			factor.FactorValue = c.Value
			factor.Name = c.Name
			factor.IsActive = true
			res.Updated++
		default:
			res.Unchanged++
			continue
		}

		if dryRun {
			continue
		}
		if _, err := r.store.Upsert(ctx, factor); err != nil {
			if existing == nil {
				res.Created--
			} else {
				res.Updated--
			}
			return res, fmt.Errorf("%w: upsert %s/%s: %w", domain.ErrReconcile, sector, key, err)
		}
	}

	r.log.Info("sector reconciled",
		zap.String("sector", sector),
		zap.Int("found", res.Found),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Bool("dry_run", dryRun))
	return res, nil
}
