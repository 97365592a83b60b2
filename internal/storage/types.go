// Package storage implements the Disk-as-Truth storage engine (L3): a
// JSON-first read path with TTL-bounded caching, a four-stage write
// pipeline, per-slot TTL locking, and self-healing reconciliation at
// slot/car/region depth. The remote store is the only place persistent
// state lives; the engine itself holds nothing beyond in-flight request
// state and the bounded TTL caches described in its config.
package storage

import (
	"time"

	"github.com/carphotos/carphotos/internal/pathmodel"
)

// PhotoCap is the default per-slot photo count limit.
const PhotoCap = 40

// MaxSlotSizeMB is the default per-slot total content size limit.
const MaxSlotSizeMB = 20

const schemaVersion = 1

// Car is the persistent record stored at <carRoot>/_CAR.json.
type Car struct {
	Region         string     `json:"region"`
	Make           string     `json:"make"`
	Model          string     `json:"model"`
	VIN            string     `json:"vin"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	CreatedBy      string     `json:"created_by,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	ArchivedBy     string     `json:"archived_by,omitempty"`
	OriginalRegion string     `json:"original_region,omitempty"`
	RestoredAt     *time.Time `json:"restored_at,omitempty"`
	RestoredBy     string     `json:"restored_by,omitempty"`

	// DiskRootPath and Name are derived, not persisted as such, but kept
	// on the in-memory record for caller convenience.
	DiskRootPath string `json:"-"`
	Name         string `json:"-"`
}

// PhotoItem describes one file inside a slot's PhotoIndex.
type PhotoItem struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// PhotoIndex is the authoritative per-slot content index,
// <slotPath>/_PHOTOS.json.
type PhotoIndex struct {
	Version   int         `json:"version"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Count     int         `json:"count"`
	Limit     int         `json:"limit"`
	Cover     *string     `json:"cover"`
	Items     []PhotoItem `json:"items"`
}

// Valid reports whether the index passes structural schema checks:
// version matches, count matches item length, and every item carries a
// name and a non-negative size. The limit field is checked by the
// engine against its configured cap.
func (p *PhotoIndex) Valid() bool {
	if p == nil {
		return false
	}

	if p.Version != schemaVersion || p.Count != len(p.Items) {
		return false
	}

	for _, item := range p.Items {
		if item.Size < 0 || item.Name == "" {
			return false
		}
	}

	return true
}

// SlotStats is the derived summary at <slotPath>/_SLOT.json.
type SlotStats struct {
	Count       int       `json:"count"`
	Cover       *string   `json:"cover"`
	TotalSizeMB float64   `json:"total_size_mb"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lock is the per-slot mutual-exclusion record at
// <slotPath>/_LOCK.json. Token disambiguates writers that share a
// locked_by identity: the store offers no atomic create, so a writer
// confirms acquisition by re-reading the lock and checking its own
// token survived.
type Lock struct {
	LockedBy  string    `json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Operation string    `json:"operation"`
	SlotPath  string    `json:"slot_path"`
	Token     string    `json:"token,omitempty"`
}

// Expired reports whether the lock may be reacquired at the given time.
func (l *Lock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// DirtyMarker flags a slot whose PhotoIndex may disagree with the
// on-store files, at <slotPath>/_DIRTY.json.
type DirtyMarker struct {
	MarkedAt time.Time `json:"marked_at"`
	Reason   string    `json:"reason"`
	SlotPath string    `json:"slot_path"`
}

// RegionCarEntry is one car's summary inside a RegionIndex.
type RegionCarEntry struct {
	Region       string    `json:"region"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	VIN          string    `json:"vin"`
	DiskRootPath string    `json:"diskRootPath"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegionIndex is the per-region car listing at <region>/_REGION.json.
type RegionIndex struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Cars      []RegionCarEntry `json:"cars"`
}

// Link is one external reference attached to a car.
type Link struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

// LinkIndex is the per-car links file at <carRoot>/_LINKS.json.
type LinkIndex struct {
	Links     []Link    `json:"links"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublishedMarker is the optional per-slot sidecar at
// <slotPath>/_PUBLISHED.json caching each published photo's public URL
// by file name.
type PublishedMarker struct {
	URLs        map[string]string `json:"urls"`
	PublishedAt time.Time         `json:"published_at"`
}

// UsedMarker is the optional per-slot administrative "used" flag at
// <slotPath>/_USED.json.
type UsedMarker struct {
	Used  bool      `json:"used"`
	SetBy string    `json:"set_by,omitempty"`
	SetAt time.Time `json:"set_at"`
}

// Slot is the in-memory descriptor of one of a car's 14 fixed slots,
// as returned on the read path.
type Slot struct {
	Type          pathmodel.SlotType
	Index         int
	Path          string
	CountsLoaded  bool
	Count         int
	Limit         int
	Cover         *string
	TotalSizeMB   float64
	Locked        bool
	Used          bool
	PublishedURLs map[string]string
}

// CarWithSlots is the result of opening a car: the car record plus its
// 14 slots.
type CarWithSlots struct {
	Car   Car
	Slots []Slot
}
