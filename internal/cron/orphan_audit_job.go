package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/mariogalvez/roamly-backend/pkg/logger"
	"github.com/mariogalvez/roamly-backend/pkg/storage/gcs"
)

const permanentPrefix = "packages/"

type permanentLister interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]gcs.ObjectInfo, error)
}

type mediaKeyChecker interface {
	ExistsByStorageKey(ctx context.Context, key string) (bool, error)
}

// OrphanAuditJobParams configure the permanent-object audit.
type OrphanAuditJobParams struct {
	Logger *logger.Logger
	Store  permanentLister
	Media  mediaKeyChecker
	Bucket string
}

// NewOrphanAuditJob builds the job that reports permanent objects with no
// owning media record. It never deletes: orphans under the permanent prefix
// indicate a finalize bug and deserve a human look before cleanup.
func NewOrphanAuditJob(params OrphanAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	return &orphanAuditJob{
		logg:   params.Logger,
		store:  params.Store,
		media:  params.Media,
		bucket: params.Bucket,
	}, nil
}

type orphanAuditJob struct {
	logg   *logger.Logger
	store  permanentLister
	media  mediaKeyChecker
	bucket string
}

func (j *orphanAuditJob) Name() string {
	return "orphaned_media_audit"
}

// Run walks the permanent namespace and checks every key against the media
// table. Lookup failures are collected so one bad key does not abort the
// whole audit.
func (j *orphanAuditJob) Run(ctx context.Context) error {
	objects, err := j.store.ListObjects(ctx, j.bucket, permanentPrefix)
	if err != nil {
		return fmt.Errorf("list permanent objects: %w", err)
	}

	var (
		orphans int
		errs    error
	)
	for _, obj := range objects {
		exists, err := j.media.ExistsByStorageKey(ctx, obj.Name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("check %s: %w", obj.Name, err))
			continue
		}
		if exists {
			continue
		}
		orphans++
		j.logg.Warn(j.logg.WithField(ctx, "object", obj.Name), "permanent object has no media record")
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"scanned":  len(objects),
		"orphaned": orphans,
	})
	if errs != nil {
		j.logg.Warn(ctx, "orphan audit finished with failures")
		return errs
	}
	j.logg.Info(ctx, "orphan audit finished")
	return nil
}
