package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mariogalvez/roamly-backend/pkg/db/models"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/storage/gcs"
)

// Finalize moves a batch of staged objects into their permanent locations
// under the target package and records the matching media rows, all inside a
// single transaction. Storage moves cannot be rolled back by the database, so
// any failure triggers best effort deletion of the objects already moved.
//
// Each staged key is consumed exactly once: the source is deleted after a
// confirmed copy, so replaying the same references fails on the missing
// source instead of silently duplicating media.
func (s *service) Finalize(ctx context.Context, packageID, uploaderID uuid.UUID, refs []StagedFile) ([]FinalizedMedia, error) {
	started := s.now()
	if packageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package_id required")
	}
	if uploaderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploader_id required")
	}
	if len(refs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one staged file required")
	}
	for i, ref := range refs {
		if strings.TrimSpace(ref.Key) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("files[%d]: key required", i))
		}
		if !strings.HasPrefix(ref.Key, tempPrefix) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("files[%d]: key must reference a staged object", i))
		}
		if !ref.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("files[%d]: unknown upload role %q", i, ref.Role))
		}
	}

	ctx = s.logg.WithPackageID(ctx, packageID.String())
	var (
		moved     []string
		finalized []FinalizedMedia
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stops, err := s.stops.ListForPackageWithTx(tx, packageID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stops")
		}
		if len(stops) == 0 {
			return pkgerrors.New(pkgerrors.CodePrecondition, "package has no stops to attach media to")
		}

		for i, ref := range refs {
			permKey, err := PermanentKey(ref, packageID, s.now())
			if err != nil {
				return err
			}
			if err := s.store.CopyObject(ctx, s.bucket, ref.Key, permKey); err != nil {
				if errors.Is(err, gcs.ErrObjectNotFound) {
					return pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("files[%d]: staged object missing, already finalized or expired", i))
				}
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("files[%d]: copy staged object", i))
			}
			moved = append(moved, permKey)
			if err := s.store.DeleteObject(ctx, s.bucket, ref.Key); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("files[%d]: delete staged source", i))
			}

			media := &models.Media{
				ID:              uuid.New(),
				StorageKey:      permKey,
				URL:             s.store.PublicURL(s.bucket, permKey),
				Kind:            ref.Role.MediaKind(),
				UploaderID:      uploaderID,
				FileName:        ref.FileName,
				Format:          ref.Format,
				SizeBytes:       ref.SizeBytes,
				DurationSeconds: ref.DurationSeconds,
			}
			if media.FileName == "" {
				media.FileName = fileNameTail(permKey)
			}
			if err := s.media.CreateWithTx(tx, media); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("files[%d]: persist media", i))
			}

			if ref.Role.IsStopScoped() {
				if ref.StopIndex == nil || *ref.StopIndex < 0 || *ref.StopIndex >= len(stops) {
					return pkgerrors.New(pkgerrors.CodePrecondition, fmt.Sprintf("files[%d]: stop index out of range for %d stops", i, len(stops)))
				}
				if err := s.media.LinkStopWithTx(tx, stops[*ref.StopIndex].ID, media.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("files[%d]: link stop media", i))
				}
			} else {
				if err := s.stops.SetCoverWithTx(tx, packageID, media.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("files[%d]: set cover", i))
				}
			}

			finalized = append(finalized, FinalizedMedia{
				MediaID:    media.ID,
				StorageKey: permKey,
				URL:        media.URL,
				Role:       ref.Role,
				StopIndex:  ref.StopIndex,
			})
		}
		return nil
	})
	if err != nil {
		s.compensateMoves(ctx, moved)
		s.storageMetrics.ObserveFinalize("failure", s.now().Sub(started))
		s.storageMetrics.IncFinalizeFailure(failureReason(err))
		return nil, err
	}

	s.storageMetrics.ObserveFinalize("success", s.now().Sub(started))
	s.storageMetrics.AddFinalizedFiles(len(finalized))
	s.logg.Info(s.logg.WithField(ctx, "files", len(finalized)), "media finalized")
	return finalized, nil
}

// compensateMoves deletes objects that were copied into permanent locations
// during a finalization attempt that later failed. The database transaction
// has already rolled back, so these objects are unreferenced. Failures here
// are logged and swallowed; the original error is what the caller needs.
func (s *service) compensateMoves(ctx context.Context, keys []string) {
	var errs error
	for _, key := range keys {
		if err := s.store.DeleteObject(ctx, s.bucket, key); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if errs != nil {
		s.logg.Error(s.logg.WithField(ctx, "orphaned", len(multierr.Errors(errs))), "finalize compensation incomplete", errs)
	}
}

func failureReason(err error) string {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
		return "validation"
	case pkgerrors.HasCode(err, pkgerrors.CodePrecondition):
		return "precondition"
	case pkgerrors.HasCode(err, pkgerrors.CodeStorage):
		return "storage"
	default:
		return "internal"
	}
}
