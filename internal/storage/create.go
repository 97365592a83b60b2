package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/carphotos/carphotos/internal/pathmodel"
)

// slotTypeFolders are the three top-level folders created directly
// under a car root, independent of the 14 individual slot directories
// nested beneath them.
var slotTypeFolders = []pathmodel.SlotType{pathmodel.SlotDealer, pathmodel.SlotBuyout, pathmodel.SlotDummies}

// CreateCar creates a new car in region: its root folder, _CAR.json,
// the three slot-type folders, and all 14 slot directories, then
// synchronously upserts it into the region's _REGION.json. A failure
// updating _REGION.json is surfaced as a distinct error — the folder
// and _CAR.json already exist, so the caller should retry rather than
// re-create.
func (e *Engine) CreateCar(ctx context.Context, region, make_, model, vin, createdBy string) (*Car, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	vin = strings.ToUpper(strings.TrimSpace(vin))

	if !vinPattern.MatchString(vin) {
		return nil, newOpError(KindSlotInvalid, "createCar", vin, map[string]any{"reason": "VIN must be 17 alphanumeric characters"}, nil)
	}

	carRoot := pathmodel.CarRoot(e.baseDir, region, make_, model, vin)
	carName := pathmodel.CarName(make_, model, vin)

	if exists, err := e.store.Exists(ctx, carRoot); err == nil && exists {
		return nil, newOpError(KindAlreadyExists, "createCar", carRoot, nil, nil)
	}

	if err := e.store.EnsureDir(ctx, carRoot); err != nil {
		return nil, newOpError(KindRemoteTransient, "createCar", carRoot, nil, err)
	}

	now := e.clock()
	car := &Car{
		Region:       region,
		Make:         make_,
		Model:        model,
		VIN:          vin,
		CreatedAt:    &now,
		CreatedBy:    createdBy,
		DiskRootPath: carRoot,
		Name:         carName,
	}

	if err := e.store.PutJSON(ctx, carRoot+"/"+carJSON, car); err != nil {
		return nil, newOpError(KindRemoteTransient, "createCar", carRoot, nil, err)
	}

	for _, t := range slotTypeFolders {
		folderPath := carRoot + "/" + pathmodel.SlotFolderName(t)
		if err := e.store.EnsureDir(ctx, folderPath); err != nil {
			return nil, newOpError(KindRemoteTransient, "createCar", folderPath, nil, err)
		}
	}

	descriptors, err := pathmodel.GetAllSlotPaths(carRoot, carName)
	if err != nil {
		return nil, newOpError(KindSlotInvalid, "createCar", carRoot, nil, err)
	}

	for _, d := range descriptors {
		if err := e.store.EnsureDir(ctx, d.Path); err != nil {
			return nil, newOpError(KindRemoteTransient, "createCar", d.Path, nil, err)
		}
	}

	if err := e.assertFourteenSlots(ctx, carRoot, carName); err != nil {
		return nil, err
	}

	if err := e.upsertRegionIndex(ctx, region, RegionCarEntry{
		Region:       region,
		Make:         make_,
		Model:        model,
		VIN:          vin,
		DiskRootPath: carRoot,
		CreatedBy:    createdBy,
		CreatedAt:    now,
	}); err != nil {
		return nil, newOpError(KindRemoteTransient, "createCar_regionIndex", carRoot, nil, err)
	}

	return car, nil
}

// assertFourteenSlots re-lists the car's slot-type folders and confirms
// exactly 14 slot directories exist in the expected 1+8+5 shape.
func (e *Engine) assertFourteenSlots(ctx context.Context, carRoot, carName string) error {
	count := 0

	for _, t := range slotTypeFolders {
		entries, err := e.store.ListAll(ctx, carRoot+"/"+pathmodel.SlotFolderName(t))
		if err != nil {
			return newOpError(KindRemoteTransient, "createCar_verify", carRoot, nil, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				count++
			}
		}
	}

	if count != pathmodel.TotalSlotCount {
		return newOpError(KindSlotInvalid, "createCar_verify", carRoot,
			map[string]any{"expected": pathmodel.TotalSlotCount, "found": count}, nil)
	}

	return nil
}

// upsertRegionIndex reads _REGION.json, inserts or replaces entry by
// VIN, and rewrites it. Used by CreateCar's synchronous index
// maintenance requirement, and by archive/restore.
func (e *Engine) upsertRegionIndex(ctx context.Context, region string, entry RegionCarEntry) error {
	regionDir := e.baseDir + "/" + region

	var idx RegionIndex

	if err := e.store.GetJSON(ctx, regionDir+"/"+regionJSON, &idx); err != nil {
		idx = RegionIndex{Version: schemaVersion}
	}

	replaced := false

	for i, c := range idx.Cars {
		if strings.EqualFold(c.VIN, entry.VIN) {
			idx.Cars[i] = entry
			replaced = true

			break
		}
	}

	if !replaced {
		idx.Cars = append(idx.Cars, entry)
	}

	idx.Version = schemaVersion
	idx.UpdatedAt = e.clock()

	if err := e.store.PutJSON(ctx, regionDir+"/"+regionJSON, &idx); err != nil {
		return fmt.Errorf("writing region index for %s: %w", region, err)
	}

	return nil
}

// removeFromRegionIndex deletes the entry matching vin from region's
// _REGION.json, if present.
func (e *Engine) removeFromRegionIndex(ctx context.Context, region, vin string) error {
	regionDir := e.baseDir + "/" + region

	var idx RegionIndex
	if err := e.store.GetJSON(ctx, regionDir+"/"+regionJSON, &idx); err != nil {
		return nil
	}

	out := idx.Cars[:0]

	for _, c := range idx.Cars {
		if !strings.EqualFold(c.VIN, vin) {
			out = append(out, c)
		}
	}

	idx.Cars = out
	idx.Version = schemaVersion
	idx.UpdatedAt = e.clock()

	return e.store.PutJSON(ctx, regionDir+"/"+regionJSON, &idx)
}
