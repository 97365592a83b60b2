package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carphotos/carphotos/internal/pathmodel"
)

// regionReconcileFanoutLimit bounds how many cars' slot reconciliation
// runs concurrently during a region-depth pass, the same cap style as
// LoadCarSlotCounts's slotFanoutLimit in read.go.
const regionReconcileFanoutLimit = 8

// ReconcileDepth selects how much of the tree a single Reconcile call
// rebuilds.
type ReconcileDepth string

const (
	DepthSlot   ReconcileDepth = "slot"
	DepthCar    ReconcileDepth = "car"
	DepthRegion ReconcileDepth = "region"
)

// ReconcileResult reports what a reconcile pass did, for observability
// and for the operator-facing reconcile command.
type ReconcileResult struct {
	ActionsPerformed []string
	RepairedFiles    int
	Errors           []error

	// OnAction, if set, is invoked synchronously for every action as it
	// happens (not just once at the end), letting a caller stream
	// progress from a single long-running region reconcile — e.g. the
	// operator CLI's reconcile --watch.
	OnAction func(action string)

	// mu guards concurrent note/addRepaired/addError calls made from the
	// bounded per-car fan-out inside reconcileRegionInto.
	mu sync.Mutex
}

func (r *ReconcileResult) note(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ActionsPerformed = append(r.ActionsPerformed, action)

	// Invoked under mu so a streaming consumer observes actions in the
	// same order ActionsPerformed records them, even during the
	// concurrent per-car fan-out.
	if r.OnAction != nil {
		r.OnAction(action)
	}
}

func (r *ReconcileResult) addError(err error) {
	r.mu.Lock()
	r.Errors = append(r.Errors, err)
	r.mu.Unlock()
}

func (r *ReconcileResult) addRepaired(n int) {
	r.mu.Lock()
	r.RepairedFiles += n
	r.mu.Unlock()
}

type slotReconcileResult struct {
	index *PhotoIndex
	stats *SlotStats
}

// Reconcile is the single entry point for rebuilding derived indexes
// from the authoritative directory listing, at the requested depth.
// It is idempotent: running it twice against unchanged store state
// produces the same items and counts both times; the updatedAt
// timestamps written into the rebuilt indexes come from the engine's
// clock and differ between runs.
func (e *Engine) Reconcile(ctx context.Context, path string, depth ReconcileDepth) (*ReconcileResult, error) {
	return e.ReconcileStream(ctx, path, depth, nil)
}

// ReconcileStream is Reconcile with an optional onAction callback fired
// as each action happens, for operator tooling that wants to display
// progress on a reconcile pass before it completes (e.g. a region with
// many cars).
func (e *Engine) ReconcileStream(ctx context.Context, path string, depth ReconcileDepth, onAction func(string)) (*ReconcileResult, error) {
	canonical, err := pathmodel.AssertDiskPath(path, "reconcile")
	if err != nil {
		return nil, newOpError(KindPathSyntax, "reconcile", path, nil, err)
	}

	result := &ReconcileResult{OnAction: onAction}

	switch depth {
	case DepthSlot:
		if _, err := e.reconcileSlotInto(ctx, canonical, result); err != nil {
			result.addError(err)
		}
	case DepthCar:
		e.reconcileCarInto(ctx, canonical, result)
	case DepthRegion:
		e.reconcileRegionInto(ctx, canonical, result)
	default:
		return nil, newOpError(KindSlotInvalid, "reconcile", path, map[string]any{"depth": depth}, nil)
	}

	return result, nil
}

// reconcileSlot rebuilds a single slot's PhotoIndex and SlotStats from
// its directory listing, without threading a shared ReconcileResult —
// used internally by the read path and write pipeline.
func (e *Engine) reconcileSlot(ctx context.Context, slotPath string) (slotReconcileResult, error) {
	result := &ReconcileResult{}

	return e.reconcileSlotInto(ctx, slotPath, result)
}

func (e *Engine) reconcileSlotInto(ctx context.Context, slotPath string, result *ReconcileResult) (slotReconcileResult, error) {
	entries, err := e.store.ListAll(ctx, slotPath)
	if err != nil {
		return slotReconcileResult{}, fmt.Errorf("listing slot %s: %w", slotPath, err)
	}

	var items []PhotoItem

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name, "_") {
			continue
		}

		items = append(items, PhotoItem{Name: entry.Name, Size: entry.Size, Modified: entry.Modified})
	}

	var cover *string
	if len(items) > 0 {
		cover = &items[0].Name
	}

	now := e.clock()

	index := &PhotoIndex{
		Version:   schemaVersion,
		UpdatedAt: now,
		Count:     len(items),
		Limit:     e.photoCap,
		Cover:     cover,
		Items:     items,
	}

	if err := e.store.PutJSON(ctx, slotPath+"/"+photosJSON, index); err != nil {
		return slotReconcileResult{}, fmt.Errorf("writing photo index for %s: %w", slotPath, err)
	}

	var totalBytes int64
	for _, item := range items {
		totalBytes += item.Size
	}

	stats := &SlotStats{
		Count:       len(items),
		Cover:       cover,
		TotalSizeMB: float64(totalBytes) / (1024 * 1024),
		UpdatedAt:   now,
	}

	if err := e.store.PutJSON(ctx, slotPath+"/"+slotJSON, stats); err != nil {
		return slotReconcileResult{}, fmt.Errorf("writing slot stats for %s: %w", slotPath, err)
	}

	if exists, _ := e.store.Exists(ctx, slotPath+"/"+dirtyJSON); exists {
		_ = e.store.Delete(ctx, slotPath+"/"+dirtyJSON)
		result.note("cleared dirty marker: " + slotPath)
	}

	e.logger.Debug("reconciled slot", slog.String("slot_path", slotPath), slog.Int("items", len(items)))

	result.note("reconciled slot: " + slotPath)
	result.addRepaired(len(items))

	return slotReconcileResult{index: index, stats: stats}, nil
}

// reconcileCar validates _CAR.json and the fixed 14-slot shape, then
// recursively reconciles every slot.
func (e *Engine) reconcileCarInto(ctx context.Context, carRoot string, result *ReconcileResult) {
	var car Car
	if err := e.store.GetJSON(ctx, carRoot+"/"+carJSON, &car); err != nil {
		result.addError(fmt.Errorf("reconcileCar %s: missing or invalid _CAR.json: %w", carRoot, err))

		return
	}

	if car.Region == "" || car.Make == "" || car.Model == "" || car.VIN == "" {
		result.addError(fmt.Errorf("reconcileCar %s: _CAR.json missing required fields", carRoot))

		return
	}

	carName := pathmodel.CarName(car.Make, car.Model, car.VIN)
	if strings.EqualFold(car.Region, pathmodel.ArchiveRegion) {
		carName = pathmodel.ArchivedCarName(car.OriginalRegion, car.Make, car.Model, car.VIN)
	}

	descriptors, err := pathmodel.GetAllSlotPaths(carRoot, carName)
	if err != nil {
		result.addError(fmt.Errorf("reconcileCar %s: %w", carRoot, err))

		return
	}

	if len(descriptors) != pathmodel.TotalSlotCount {
		result.addError(fmt.Errorf("reconcileCar %s: expected %d slots, got %d", carRoot, pathmodel.TotalSlotCount, len(descriptors)))

		return
	}

	for _, d := range descriptors {
		exists, err := e.store.Exists(ctx, d.Path)
		if err != nil {
			result.addError(fmt.Errorf("reconcileCar %s: checking slot %s: %w", carRoot, d.Path, err))

			continue
		}

		if !exists {
			result.addError(fmt.Errorf("reconcileCar %s: slot directory missing: %s", carRoot, d.Path))

			continue
		}

		if _, err := e.reconcileSlotInto(ctx, d.Path, result); err != nil {
			result.addError(err)
		}
	}

	result.note("reconciled car: " + carRoot)
}

// rebuildRegionIndex lists every car folder in regionDir, reads each
// _CAR.json, and rewrites _REGION.json from scratch. Cars whose record
// is unreadable are skipped and reported through result; only the
// listing and the index write itself are fatal. This is the narrow
// rebuild the region read path falls back to — it never touches slot
// contents.
func (e *Engine) rebuildRegionIndex(ctx context.Context, regionDir string, result *ReconcileResult) (*RegionIndex, error) {
	region := regionDir[strings.LastIndex(regionDir, "/")+1:]
	archived := strings.EqualFold(region, pathmodel.ArchiveRegion)

	entries, err := e.store.ListAll(ctx, regionDir)
	if err != nil {
		return nil, fmt.Errorf("reconcileRegion %s: %w", regionDir, err)
	}

	var cars []RegionCarEntry

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		parsed, ok := parseCarFolderName(entry.Name, archived)
		if !ok {
			continue
		}

		carRoot := regionDir + "/" + entry.Name

		var car Car
		if err := e.store.GetJSON(ctx, carRoot+"/"+carJSON, &car); err != nil {
			result.addError(fmt.Errorf("reconcileRegion %s: reading %s: %w", regionDir, carRoot, err))

			continue
		}

		cars = append(cars, RegionCarEntry{
			Region:       car.Region,
			Make:         parsed.Make,
			Model:        parsed.Model,
			VIN:          parsed.VIN,
			DiskRootPath: carRoot,
			CreatedBy:    car.CreatedBy,
			CreatedAt:    valueOrZero(car.CreatedAt),
		})
	}

	idx := &RegionIndex{Version: schemaVersion, UpdatedAt: e.clock(), Cars: cars}
	if err := e.store.PutJSON(ctx, regionDir+"/"+regionJSON, idx); err != nil {
		return nil, fmt.Errorf("reconcileRegion %s: writing index: %w", regionDir, err)
	}

	e.logger.Debug("rebuilt region index", slog.String("region", region), slog.Int("cars", len(cars)))

	result.note(fmt.Sprintf("rebuilt region index %s: %d cars", region, len(cars)))

	return idx, nil
}

// reconcileRegion rebuilds _REGION.json from the region folder listing,
// then reconciles every listed car's slots.
func (e *Engine) reconcileRegionInto(ctx context.Context, regionDir string, result *ReconcileResult) {
	region := regionDir[strings.LastIndex(regionDir, "/")+1:]

	idx, err := e.rebuildRegionIndex(ctx, regionDir, result)
	if err != nil {
		result.addError(err)

		return
	}

	// Reconcile every car's slots concurrently, bounded the same way
	// LoadCarSlotCounts bounds its stat fan-out: a region can hold
	// hundreds of cars, and each car's 14-slot reconcile is its own
	// independent round-trip to the store.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(regionReconcileFanoutLimit)

	for _, car := range idx.Cars {
		carRoot := car.DiskRootPath
		g.Go(func() error {
			e.reconcileCarInto(gctx, carRoot, result)

			return nil
		})
	}

	_ = g.Wait()

	result.note(fmt.Sprintf("reconciled region %s: %d cars", region, len(idx.Cars)))
}

func valueOrZero[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}

	return *p
}
