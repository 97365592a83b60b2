// Package api is the thin Boundary layer (L4): it adapts the storage
// engine's slot-path-centric operations to the caller-facing shape an
// HTTP handler (or the operator CLI) wants to call with — (region,
// VIN, slotType, slotIndex) — and nothing else. It holds
// no state of its own; every method resolves the slot path via the
// engine's own read path and delegates.
package api

import (
	"context"
	"fmt"

	"github.com/carphotos/carphotos/internal/pathmodel"
	"github.com/carphotos/carphotos/internal/storage"
)

// Boundary exposes the storage engine's operations as the API surface
// exposed to the HTTP layer. One Boundary is constructed at process
// start over a single *storage.Engine, mirroring the engine's own "no
// process-wide singletons" construction pattern.
type Boundary struct {
	engine *storage.Engine
	limits UploadLimits
}

// UploadLimits are per-request caps applied by the Boundary before any
// engine work starts, distinct from the engine's own per-slot limits.
// Zero values disable the corresponding check.
type UploadLimits struct {
	MaxFileSizeMB        int
	MaxFilesPerUpload    int
	MaxTotalUploadSizeMB int
}

// Option configures a Boundary at construction time.
type Option func(*Boundary)

// WithUploadLimits sets the per-request upload caps, normally sourced
// from MAX_FILE_SIZE_MB / MAX_FILES_PER_UPLOAD / MAX_TOTAL_UPLOAD_SIZE_MB.
func WithUploadLimits(l UploadLimits) Option {
	return func(b *Boundary) { b.limits = l }
}

// New constructs a Boundary over engine.
func New(engine *storage.Engine, opts ...Option) *Boundary {
	b := &Boundary{engine: engine}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// CarSummary is the row shape ListCarsByRegion returns: a region car
// entry plus whether its slot counts have been resolved.
type CarSummary = storage.RegionCarSummary

// ListCarsByRegion lists every car known in region.
func (b *Boundary) ListCarsByRegion(ctx context.Context, region string) ([]CarSummary, error) {
	return b.engine.ListCarsByRegion(ctx, region)
}

// GetCarWithSlots opens a car and returns its 14 slot descriptors with
// placeholder (unloaded) counts. Call LoadCarSlotCounts to populate them.
func (b *Boundary) GetCarWithSlots(ctx context.Context, region, vin string) (*storage.CarWithSlots, error) {
	return b.engine.GetCarWithSlots(ctx, region, vin)
}

// LoadCarSlotCounts populates cws's slot stats via the engine's bounded
// fan-out, typically run asynchronously after GetCarWithSlots.
func (b *Boundary) LoadCarSlotCounts(ctx context.Context, cws *storage.CarWithSlots) error {
	return b.engine.LoadCarSlotCounts(ctx, cws.Slots)
}

// CreateCar creates a new car and its 14 slots in region.
func (b *Boundary) CreateCar(ctx context.Context, region, make_, model, vin, createdBy string) (*storage.Car, error) {
	return b.engine.CreateCar(ctx, region, make_, model, vin, createdBy)
}

// ArchiveCar moves a car from region to the ALL archive scope.
func (b *Boundary) ArchiveCar(ctx context.Context, region, vin, actor string) (string, error) {
	car, err := b.engine.ArchiveCar(ctx, region, vin, actor)
	if err != nil {
		return "", err
	}

	return car.DiskRootPath, nil
}

// RestoreCar moves an archived car back into targetRegion.
func (b *Boundary) RestoreCar(ctx context.Context, vin, targetRegion, actor string) (*storage.Car, error) {
	return b.engine.RestoreCar(ctx, vin, targetRegion, actor)
}

// resolveSlotPath finds a car's slot path for (slotType, slotIndex),
// the one piece of translation every per-slot Boundary method needs: the
// engine's write-pipeline and marker operations all key on a slot path,
// not on (region, VIN, slotType, slotIndex).
func (b *Boundary) resolveSlotPath(ctx context.Context, region, vin string, slotType pathmodel.SlotType, slotIndex int) (string, error) {
	if err := pathmodel.ValidateSlot(slotType, slotIndex); err != nil {
		return "", err
	}

	cws, err := b.engine.GetCarWithSlots(ctx, region, vin)
	if err != nil {
		return "", err
	}

	for _, s := range cws.Slots {
		if s.Type == slotType && s.Index == slotIndex {
			return s.Path, nil
		}
	}

	return "", fmt.Errorf("api: slot %s/%d not found on car %s", slotType, slotIndex, vin)
}

// UploadToSlot resolves (region, VIN, slotType, slotIndex) to a slot path
// and runs the four-stage write pipeline over files.
func (b *Boundary) UploadToSlot(
	ctx context.Context,
	region, vin string,
	slotType pathmodel.SlotType,
	slotIndex int,
	files []storage.UploadFile,
	actor string,
) (*storage.PipelineOutcome, error) {
	if err := b.checkUploadLimits(files); err != nil {
		return nil, err
	}

	slotPath, err := b.resolveSlotPath(ctx, region, vin, slotType, slotIndex)
	if err != nil {
		return nil, err
	}

	return b.engine.UploadToSlot(ctx, slotPath, files, actor)
}

// checkUploadLimits rejects a request whose shape exceeds the
// per-request caps, before any remote call is made — the same
// fail-before-bytes-move stance the engine's preflight takes for the
// per-slot limits.
func (b *Boundary) checkUploadLimits(files []storage.UploadFile) error {
	const mib = 1024 * 1024

	l := b.limits

	if l.MaxFilesPerUpload > 0 && len(files) > l.MaxFilesPerUpload {
		return &storage.OpError{
			Kind:  storage.KindPhotoLimitExceeded,
			Stage: "uploadRequest",
			Info:  map[string]any{"files": len(files), "maxFilesPerUpload": l.MaxFilesPerUpload},
		}
	}

	var total int64

	for _, f := range files {
		size := int64(len(f.Data))
		total += size

		if l.MaxFileSizeMB > 0 && size > int64(l.MaxFileSizeMB)*mib {
			return &storage.OpError{
				Kind:  storage.KindSlotSizeExceeded,
				Stage: "uploadRequest",
				Path:  f.Name,
				Info:  map[string]any{"sizeMB": float64(size) / mib, "maxFileSizeMB": l.MaxFileSizeMB},
			}
		}
	}

	if l.MaxTotalUploadSizeMB > 0 && total > int64(l.MaxTotalUploadSizeMB)*mib {
		return &storage.OpError{
			Kind:  storage.KindSlotSizeExceeded,
			Stage: "uploadRequest",
			Info:  map[string]any{"totalMB": float64(total) / mib, "maxTotalUploadSizeMB": l.MaxTotalUploadSizeMB},
		}
	}

	return nil
}

// MarkSlotUsed sets the administrative "used" flag on a slot.
func (b *Boundary) MarkSlotUsed(ctx context.Context, region, vin string, slotType pathmodel.SlotType, slotIndex int, actor string) error {
	slotPath, err := b.resolveSlotPath(ctx, region, vin, slotType, slotIndex)
	if err != nil {
		return err
	}

	return b.engine.MarkSlotUsed(ctx, slotPath, actor)
}

// MarkSlotUnused clears the administrative "used" flag on a slot.
func (b *Boundary) MarkSlotUnused(ctx context.Context, region, vin string, slotType pathmodel.SlotType, slotIndex int, actor string) error {
	slotPath, err := b.resolveSlotPath(ctx, region, vin, slotType, slotIndex)
	if err != nil {
		return err
	}

	return b.engine.MarkSlotUnused(ctx, slotPath, actor)
}

// PublishSlot publishes every photo currently in a slot.
func (b *Boundary) PublishSlot(ctx context.Context, region, vin string, slotType pathmodel.SlotType, slotIndex int) (map[string]string, error) {
	slotPath, err := b.resolveSlotPath(ctx, region, vin, slotType, slotIndex)
	if err != nil {
		return nil, err
	}

	return b.engine.PublishSlot(ctx, slotPath)
}

// GetSlotDownloadURL resolves a short-lived download URL for one photo.
func (b *Boundary) GetSlotDownloadURL(ctx context.Context, region, vin string, slotType pathmodel.SlotType, slotIndex int, name string) (string, error) {
	slotPath, err := b.resolveSlotPath(ctx, region, vin, slotType, slotIndex)
	if err != nil {
		return "", err
	}

	return b.engine.GetSlotDownloadURL(ctx, slotPath, name)
}

// ListLinks returns a car's external links.
func (b *Boundary) ListLinks(ctx context.Context, region, vin string) ([]storage.Link, error) {
	cws, err := b.engine.GetCarWithSlots(ctx, region, vin)
	if err != nil {
		return nil, err
	}

	return b.engine.ListLinks(ctx, cws.Car.DiskRootPath)
}

// CreateLink adds a new external link to a car.
func (b *Boundary) CreateLink(ctx context.Context, region, vin, title, url, createdBy string) (*storage.Link, error) {
	cws, err := b.engine.GetCarWithSlots(ctx, region, vin)
	if err != nil {
		return nil, err
	}

	return b.engine.CreateLink(ctx, cws.Car.DiskRootPath, title, url, createdBy)
}

// DeleteLink removes a link from a car by id.
func (b *Boundary) DeleteLink(ctx context.Context, region, vin, linkID string) error {
	cws, err := b.engine.GetCarWithSlots(ctx, region, vin)
	if err != nil {
		return err
	}

	return b.engine.DeleteLink(ctx, cws.Car.DiskRootPath, linkID)
}

// Reconcile runs the self-healing reconciliation at the given depth over
// path, exposed for operator tooling.
func (b *Boundary) Reconcile(ctx context.Context, path string, depth storage.ReconcileDepth) (*storage.ReconcileResult, error) {
	return b.engine.Reconcile(ctx, path, depth)
}

// ReconcileStream is Reconcile with a progress callback invoked as each
// action happens, used by the operator CLI's reconcile --watch.
func (b *Boundary) ReconcileStream(ctx context.Context, path string, depth storage.ReconcileDepth, onAction func(string)) (*storage.ReconcileResult, error) {
	return b.engine.ReconcileStream(ctx, path, depth, onAction)
}
