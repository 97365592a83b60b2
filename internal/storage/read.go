package storage

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/carphotos/carphotos/internal/pathmodel"
)

// slotFanoutLimit bounds how many slots' stats are resolved concurrently
// per car. A car has at most 14 slots; capping below that still gives
// every LoadCarSlotCounts call a predictable ceiling on
// concurrent remote-store connections — the read path never opens more
// than this many in-flight requests on behalf of one caller.
const slotFanoutLimit = 8

// GetCarWithSlots opens a car by (region, VIN) and returns its record
// plus its 14 slot descriptors, in O(1) remote calls for the car itself
// — slot stats are resolved lazily by LoadSlotStats.
func (e *Engine) GetCarWithSlots(ctx context.Context, region, vin string) (*CarWithSlots, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	vin = strings.ToUpper(strings.TrimSpace(vin))

	carRoot, err := e.resolveCarRoot(ctx, region, vin)
	if err != nil {
		return nil, err
	}

	var car Car
	if err := e.store.GetJSON(ctx, carRoot+"/"+carJSON, &car); err != nil {
		return nil, newOpError(KindCarNotFound, "getCarWithSlots", carRoot, nil, err)
	}

	car.DiskRootPath = carRoot
	car.Name = pathmodel.CarName(car.Make, car.Model, car.VIN)
	if strings.EqualFold(region, pathmodel.ArchiveRegion) {
		car.Name = pathmodel.ArchivedCarName(car.OriginalRegion, car.Make, car.Model, car.VIN)
	}

	descriptors, err := pathmodel.GetAllSlotPaths(carRoot, car.Name)
	if err != nil {
		return nil, newOpError(KindSlotInvalid, "getCarWithSlots", carRoot, nil, err)
	}

	slots := make([]Slot, len(descriptors))
	for i, d := range descriptors {
		slots[i] = Slot{Type: d.Type, Index: d.Index, Path: d.Path}
	}

	e.logger.Debug("car opened", slog.String("region", region), slog.String("vin", vin), slog.String("root", carRoot))

	return &CarWithSlots{Car: car, Slots: slots}, nil
}

// resolveCarRoot finds a car's root path within region by VIN, first
// consulting the region index and falling back to a folder-name scan
// when the index is absent, stale, or doesn't (yet) know the car.
func (e *Engine) resolveCarRoot(ctx context.Context, region, vin string) (string, error) {
	regionDir := e.baseDir + "/" + region

	if root, ok := e.lookupRegionIndex(ctx, regionDir, vin); ok {
		return root, nil
	}

	root, ok, err := e.scanRegionForVIN(ctx, region, regionDir, vin)
	if err != nil {
		return "", newOpError(KindRemoteTransient, "resolveCarRoot", regionDir, nil, err)
	}

	if !ok {
		return "", newOpError(KindCarNotFound, "resolveCarRoot", regionDir, map[string]any{"vin": vin}, nil)
	}

	return root, nil
}

func (e *Engine) lookupRegionIndex(ctx context.Context, regionDir, vin string) (string, bool) {
	var idx RegionIndex
	if err := e.store.GetJSON(ctx, regionDir+"/"+regionJSON, &idx); err != nil {
		return "", false
	}

	if idx.Version != schemaVersion {
		return "", false
	}

	if e.clock().Sub(idx.UpdatedAt) > e.ttl.RegionIndexTTL {
		return "", false
	}

	for _, c := range idx.Cars {
		if strings.EqualFold(c.VIN, vin) {
			return c.DiskRootPath, true
		}
	}

	return "", false
}

func (e *Engine) scanRegionForVIN(ctx context.Context, region, regionDir, vin string) (string, bool, error) {
	entries, err := e.store.ListAll(ctx, regionDir)
	if err != nil {
		return "", false, err
	}

	archived := strings.EqualFold(region, pathmodel.ArchiveRegion)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		parsed, ok := parseCarFolderName(entry.Name, archived)
		if !ok || !strings.EqualFold(parsed.VIN, vin) {
			continue
		}

		return regionDir + "/" + entry.Name, true, nil
	}

	return "", false, nil
}

// loadPhotoIndex reads and schema-validates <slotPath>/_PHOTOS.json.
// Returns (nil, false) when absent, invalid, or past TTL — the
// caller falls back to the next priority source or rebuilds.
func (e *Engine) loadPhotoIndex(ctx context.Context, slotPath string, bypassTTL bool) (*PhotoIndex, bool) {
	var idx PhotoIndex
	if err := e.store.GetJSON(ctx, slotPath+"/"+photosJSON, &idx); err != nil {
		return nil, false
	}

	if !idx.Valid() || idx.Limit != e.photoCap {
		return nil, false
	}

	if !bypassTTL && e.clock().Sub(idx.UpdatedAt) > e.ttl.PhotosIndexTTL {
		return nil, false
	}

	return &idx, true
}

func (e *Engine) loadSlotStats(ctx context.Context, slotPath string, bypassTTL bool) (*SlotStats, bool) {
	var stats SlotStats
	if err := e.store.GetJSON(ctx, slotPath+"/"+slotJSON, &stats); err != nil {
		return nil, false
	}

	if !bypassTTL && e.clock().Sub(stats.UpdatedAt) > e.ttl.SlotStatsTTL {
		return nil, false
	}

	return &stats, true
}

func (e *Engine) loadLock(ctx context.Context, slotPath string) (*Lock, bool) {
	var lock Lock
	if err := e.store.GetJSON(ctx, slotPath+"/"+lockJSON, &lock); err != nil {
		return nil, false
	}

	return &lock, true
}

// LoadSlotStats resolves stats for a single slot in the read path's
// priority order: fresh PhotoIndex, then SlotStats, then an unexpired
// _LOCK.json (the slot is reported Locked with its counts left unloaded;
// no stats are derived from the lock), and finally a full reconcileSlot
// rebuild.
func (e *Engine) LoadSlotStats(ctx context.Context, slot *Slot) error {
	if idx, ok := e.loadPhotoIndex(ctx, slot.Path, false); ok {
		applyPhotoIndexToSlot(slot, idx)
		slot.Locked = e.isLocked(ctx, slot.Path)

		return nil
	}

	if stats, ok := e.loadSlotStats(ctx, slot.Path, false); ok {
		slot.CountsLoaded = true
		slot.Count = stats.Count
		slot.Cover = stats.Cover
		slot.TotalSizeMB = stats.TotalSizeMB
		slot.Locked = e.isLocked(ctx, slot.Path)

		return nil
	}

	if lock, ok := e.loadLock(ctx, slot.Path); ok && !lock.Expired(e.clock()) {
		slot.CountsLoaded = false
		slot.Locked = true

		return nil
	}

	result, err := e.reconcileSlot(ctx, slot.Path)
	if err != nil {
		return newOpError(KindRemoteTransient, "loadSlotStats", slot.Path, nil, err)
	}

	applyPhotoIndexToSlot(slot, result.index)
	slot.Locked = e.isLocked(ctx, slot.Path)

	return nil
}

// LoadCarSlotCounts resolves stats for every slot of slots concurrently,
// bounded by slotFanoutLimit, typically run separately from
// GetCarWithSlots so a caller can render placeholder counts first.
// Cancelling ctx aborts every in-flight remote call; the first
// slot-level error is returned and the rest of the fan-out is
// abandoned, matching errgroup's fail-fast semantics.
func (e *Engine) LoadCarSlotCounts(ctx context.Context, slots []Slot) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(slotFanoutLimit)

	for i := range slots {
		slot := &slots[i]

		g.Go(func() error {
			return e.LoadSlotStats(gctx, slot)
		})
	}

	return g.Wait()
}

func (e *Engine) isLocked(ctx context.Context, slotPath string) bool {
	lock, ok := e.loadLock(ctx, slotPath)
	if !ok {
		return false
	}

	return !lock.Expired(e.clock())
}

func applyPhotoIndexToSlot(slot *Slot, idx *PhotoIndex) {
	slot.CountsLoaded = true
	slot.Count = idx.Count
	slot.Limit = idx.Limit
	slot.Cover = idx.Cover

	var totalBytes int64
	for _, item := range idx.Items {
		totalBytes += item.Size
	}

	slot.TotalSizeMB = float64(totalBytes) / (1024 * 1024)
}
