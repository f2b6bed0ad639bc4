package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mariogalvez/roamly-backend/pkg/logger"
	"github.com/mariogalvez/roamly-backend/pkg/storage/gcs"
)

const (
	stagedPrefix           = "temp/"
	defaultStagedRetention = 48 * time.Hour
)

type objectLister interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]gcs.ObjectInfo, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// StagedSweepJobParams configure the staged-object sweeper.
type StagedSweepJobParams struct {
	Logger    *logger.Logger
	Store     objectLister
	Bucket    string
	Retention time.Duration
}

// NewStagedSweepJob builds the job that removes staged uploads which were
// never finalized or discarded within the retention window.
func NewStagedSweepJob(params StagedSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultStagedRetention
	}
	return &stagedSweepJob{
		logg:      params.Logger,
		store:     params.Store,
		bucket:    params.Bucket,
		retention: retention,
		now:       time.Now,
	}, nil
}

type stagedSweepJob struct {
	logg      *logger.Logger
	store     objectLister
	bucket    string
	retention time.Duration
	now       func() time.Time
}

func (j *stagedSweepJob) Name() string {
	return "staged_media_sweep"
}

// Run lists the temporary namespace and deletes anything older than the
// retention window. Individual delete failures are collected so one bad
// object does not shield the rest of the sweep.
func (j *stagedSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	objects, err := j.store.ListObjects(ctx, j.bucket, stagedPrefix)
	if err != nil {
		return fmt.Errorf("list staged objects: %w", err)
	}

	var (
		swept int
		errs  error
	)
	for _, obj := range objects {
		if obj.Updated.After(cutoff) {
			continue
		}
		if err := j.store.DeleteObject(ctx, j.bucket, obj.Name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", obj.Name, err))
			continue
		}
		swept++
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"swept":    swept,
		"scanned":  len(objects),
		"retained": len(objects) - swept,
	})
	if errs != nil {
		j.logg.Warn(ctx, "staged sweep finished with failures")
		return errs
	}
	j.logg.Info(ctx, "staged sweep finished")
	return nil
}
