package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/carphotos/carphotos/internal/diskstore"
	"github.com/carphotos/carphotos/internal/pathmodel"
)

func isConflict(err error) bool {
	return errors.Is(err, diskstore.ErrConflict)
}

// ArchiveCar moves car (region, vin) into the reserved ALL archive
// region, renaming its folder to the underscore form that encodes the
// original region, updating _CAR.json with archive provenance, and
// moving its _REGION.json membership from the source region to ALL.
func (e *Engine) ArchiveCar(ctx context.Context, region, vin, archivedBy string) (*Car, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	vin = strings.ToUpper(strings.TrimSpace(vin))

	carRoot, err := e.resolveCarRoot(ctx, region, vin)
	if err != nil {
		return nil, err
	}

	var car Car
	if err := e.store.GetJSON(ctx, carRoot+"/"+carJSON, &car); err != nil {
		return nil, newOpError(KindCarNotFound, "archiveCar", carRoot, nil, err)
	}

	archivedRoot := pathmodel.ArchiveCarRoot(e.baseDir, region, car.Make, car.Model, vin)

	if err := e.moveWithConflictRetry(ctx, carRoot, archivedRoot); err != nil {
		return nil, err
	}

	now := e.clock()
	car.Region = pathmodel.ArchiveRegion
	car.OriginalRegion = region
	car.ArchivedAt = &now
	car.ArchivedBy = archivedBy
	car.DiskRootPath = archivedRoot
	car.Name = pathmodel.ArchivedCarName(region, car.Make, car.Model, vin)

	if err := e.store.PutJSON(ctx, archivedRoot+"/"+carJSON, &car); err != nil {
		return nil, newOpError(KindRemoteTransient, "archiveCar_car", archivedRoot, nil, err)
	}

	if err := e.removeFromRegionIndex(ctx, region, vin); err != nil {
		return nil, newOpError(KindRemoteTransient, "archiveCar_sourceIndex", carRoot, nil, err)
	}

	if err := e.upsertRegionIndex(ctx, pathmodel.ArchiveRegion, RegionCarEntry{
		Region:       pathmodel.ArchiveRegion,
		Make:         car.Make,
		Model:        car.Model,
		VIN:          vin,
		DiskRootPath: archivedRoot,
		CreatedBy:    car.CreatedBy,
		CreatedAt:    valueOrZero(car.CreatedAt),
	}); err != nil {
		return nil, newOpError(KindRemoteTransient, "archiveCar_archiveIndex", archivedRoot, nil, err)
	}

	return &car, nil
}

// RestoreCar moves an archived car back into targetRegion (which must
// not be the archive region), renaming its folder back to the space
// form. Fails with AlreadyExists if targetRegion already has a car
// with this VIN.
func (e *Engine) RestoreCar(ctx context.Context, vin, targetRegion, restoredBy string) (*Car, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	targetRegion = strings.ToUpper(strings.TrimSpace(targetRegion))

	if strings.EqualFold(targetRegion, pathmodel.ArchiveRegion) {
		return nil, newOpError(KindSlotInvalid, "restoreCar", targetRegion, map[string]any{"reason": "target region must not be ALL"}, nil)
	}

	archivedRoot, err := e.resolveCarRoot(ctx, pathmodel.ArchiveRegion, vin)
	if err != nil {
		return nil, err
	}

	var car Car
	if err := e.store.GetJSON(ctx, archivedRoot+"/"+carJSON, &car); err != nil {
		return nil, newOpError(KindCarNotFound, "restoreCar", archivedRoot, nil, err)
	}

	targetRoot := pathmodel.CarRoot(e.baseDir, targetRegion, car.Make, car.Model, vin)

	if _, err := e.resolveCarRoot(ctx, targetRegion, vin); err == nil {
		return nil, newOpError(KindAlreadyExists, "restoreCar", targetRegion, nil, nil)
	}

	if exists, err := e.store.Exists(ctx, targetRoot); err == nil && exists {
		return nil, newOpError(KindAlreadyExists, "restoreCar", targetRoot, nil, nil)
	}

	if err := e.moveWithConflictRetry(ctx, archivedRoot, targetRoot); err != nil {
		return nil, err
	}

	now := e.clock()
	car.Region = targetRegion
	car.OriginalRegion = ""
	car.RestoredAt = &now
	car.RestoredBy = restoredBy
	car.DiskRootPath = targetRoot
	car.Name = pathmodel.CarName(car.Make, car.Model, vin)

	if err := e.store.PutJSON(ctx, targetRoot+"/"+carJSON, &car); err != nil {
		return nil, newOpError(KindRemoteTransient, "restoreCar_car", targetRoot, nil, err)
	}

	if err := e.removeFromRegionIndex(ctx, pathmodel.ArchiveRegion, vin); err != nil {
		return nil, newOpError(KindRemoteTransient, "restoreCar_archiveIndex", archivedRoot, nil, err)
	}

	if err := e.upsertRegionIndex(ctx, targetRegion, RegionCarEntry{
		Region:       targetRegion,
		Make:         car.Make,
		Model:        car.Model,
		VIN:          vin,
		DiskRootPath: targetRoot,
		CreatedBy:    car.CreatedBy,
		CreatedAt:    valueOrZero(car.CreatedAt),
	}); err != nil {
		return nil, newOpError(KindRemoteTransient, "restoreCar_targetIndex", targetRoot, nil, err)
	}

	return &car, nil
}

// moveWithConflictRetry implements the archive/restore move policy:
// transient failures of a move are retried inside the store adapter (up
// to 3 attempts); on a 409 (destination conflict) the move is retried
// once with overwrite=true, then aborted.
func (e *Engine) moveWithConflictRetry(ctx context.Context, from, to string) error {
	err := e.store.Move(ctx, from, to, false)
	if err == nil {
		return nil
	}

	if !isConflict(err) {
		return newOpError(KindRemoteTransient, "move", from, nil, err)
	}

	if err := e.store.Move(ctx, from, to, true); err != nil {
		return newOpError(KindAlreadyExists, "move", to, nil, err)
	}

	return nil
}
