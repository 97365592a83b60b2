package storage

import (
	"context"
	"strings"
)

// RegionCarSummary is one row in a region listing: it may or may not
// have slot counts loaded, matching the read path's "index present and
// fresh ⇒ placeholders; otherwise ⇒ full listing" behavior.
type RegionCarSummary struct {
	RegionCarEntry
	CountsLoaded bool
}

// ListCarsByRegion returns every car in region. If _REGION.json is
// present, schema-valid, and within TTL, its cars[] are returned with
// CountsLoaded=false (slot counts are not part of the region index and
// must be loaded per-car via GetCarWithSlots/LoadSlotStats). Otherwise
// the region folder is listed, each car's _CAR.json is read, and
// _REGION.json is written back.
func (e *Engine) ListCarsByRegion(ctx context.Context, region string) ([]RegionCarSummary, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	regionDir := e.baseDir + "/" + region

	var idx RegionIndex

	if err := e.store.GetJSON(ctx, regionDir+"/"+regionJSON, &idx); err == nil &&
		idx.Version == schemaVersion && e.clock().Sub(idx.UpdatedAt) <= e.ttl.RegionIndexTTL {
		summaries := make([]RegionCarSummary, len(idx.Cars))
		for i, c := range idx.Cars {
			summaries[i] = RegionCarSummary{RegionCarEntry: c, CountsLoaded: false}
		}

		return summaries, nil
	}

	// Index absent, stale, or malformed: rebuild it from the folder
	// listing and serve the freshly-built cars directly — the caller who
	// triggered the rebuild gets a TTL-bypass view of what was just
	// written. Cars with an unreadable _CAR.json are skipped, not fatal.
	result := &ReconcileResult{}

	rebuilt, err := e.rebuildRegionIndex(ctx, regionDir, result)
	if err != nil {
		return nil, newOpError(KindRemoteTransient, "listCarsByRegion", regionDir, nil, err)
	}

	summaries := make([]RegionCarSummary, len(rebuilt.Cars))
	for i, c := range rebuilt.Cars {
		summaries[i] = RegionCarSummary{RegionCarEntry: c, CountsLoaded: false}
	}

	return summaries, nil
}
