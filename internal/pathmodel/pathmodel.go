// Package pathmodel holds the pure, side-effect-free functions that map
// the car/slot domain model onto canonical paths on the remote store.
// The engine passes the slot path of an upload and the path given to a
// reconcile through AssertDiskPath; the other paths it sends to the
// store's adapter are built by this package's constructors and are not
// normalized again.
package pathmodel

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SlotType identifies one of the three fixed slot categories.
type SlotType string

const (
	SlotDealer  SlotType = "dealer"
	SlotBuyout  SlotType = "buyout"
	SlotDummies SlotType = "dummies"
)

// SlotCardinality is the fixed number of slots of each type, totaling
// the 1+8+5=14 slot taxonomy.
var SlotCardinality = map[SlotType]int{
	SlotDealer:  1,
	SlotBuyout:  8,
	SlotDummies: 5,
}

// TotalSlotCount is the total number of slot directories under a car root.
const TotalSlotCount = 14

// ArchiveRegion is the reserved region tag cars move to on archive.
const ArchiveRegion = "ALL"

// SlotFolderName returns the slot-type folder name the three
// categories live under, e.g. "1. Dealer photos".
func SlotFolderName(t SlotType) string {
	switch t {
	case SlotDealer:
		return "1. Dealer photos"
	case SlotBuyout:
		return "2. Buyout photos"
	case SlotDummies:
		return "3. Dummy photos"
	default:
		return ""
	}
}

// PathError reports a malformed path, tagged with the call site stage
// that rejected it.
type PathError struct {
	Kind  string // e.g. "PathTraversal", "SegmentSyntax", "Empty"
	Stage string
	Path  string
}

func (e *PathError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %q", e.Stage, e.Kind, e.Path)
	}

	return fmt.Sprintf("%s: %q", e.Kind, e.Path)
}

// Normalize canonicalizes a store path: trims whitespace, converts
// backslashes to forward slashes, collapses repeated slashes, strips
// spaces adjacent to slashes, ensures a single leading slash, and
// strips a leading host-scheme artifact such as "disk:". It rejects
// ".." path-traversal segments and segments containing ":".
func Normalize(p string) (string, error) {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return "", &PathError{Kind: "Empty", Path: p}
	}

	trimmed = strings.ReplaceAll(trimmed, "\\", "/")

	// The scheme artifact appears both bare ("disk:/x") and after a
	// leading slash ("/disk:/x"), depending on which store response the
	// path was copied out of.
	if rest, ok := strings.CutPrefix(trimmed, "disk:"); ok {
		trimmed = rest
	} else if rest, ok := strings.CutPrefix(trimmed, "/disk:"); ok {
		trimmed = rest
	}

	segments := strings.Split(trimmed, "/")
	clean := make([]string, 0, len(segments))

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		if seg == ".." {
			return "", &PathError{Kind: "PathTraversal", Path: p}
		}

		if strings.Contains(seg, ":") {
			return "", &PathError{Kind: "SegmentSyntax", Path: p}
		}

		clean = append(clean, seg)
	}

	return "/" + norm.NFC.String(strings.Join(clean, "/")), nil
}

// AssertDiskPath normalizes p and tags any resulting error with stage,
// matching the [stageName] prefix convention used throughout the
// storage engine's error messages.
func AssertDiskPath(p, stage string) (string, error) {
	canonical, err := Normalize(p)
	if err != nil {
		var pathErr *PathError
		if errors.As(err, &pathErr) {
			pathErr.Stage = stage

			return "", pathErr
		}

		return "", err
	}

	return canonical, nil
}

// unsafeSegmentChars is the character class that must never appear in a
// single path segment or filename written to the store.
const unsafeSegmentChars = `/\:*?"<>|`

// SanitizeSegment replaces characters unsafe for a path segment with
// "_", strips any ".." substring, and truncates to 255 bytes.
func SanitizeSegment(s string) string {
	return truncateBytes(stripTraversal(replaceUnsafe(s)), 255)
}

// SanitizeFilename behaves like SanitizeSegment but preserves the final
// "." extension when truncating, so files keep a usable suffix.
func SanitizeFilename(s string) string {
	cleaned := stripTraversal(replaceUnsafe(s))

	if len(cleaned) <= 255 {
		return cleaned
	}

	ext := ""
	if dot := strings.LastIndex(cleaned, "."); dot >= 0 && dot > len(cleaned)-16 {
		ext = cleaned[dot:]
	}

	base := truncateBytes(cleaned, 255-len(ext))

	return base + ext
}

func replaceUnsafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(unsafeSegmentChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func stripTraversal(s string) string {
	return strings.ReplaceAll(s, "..", "")
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}

	b := []byte(s)[:max]

	// Avoid truncating in the middle of a multi-byte UTF-8 rune.
	for len(b) > 0 && !isUTF8Boundary(b) {
		b = b[:len(b)-1]
	}

	return string(b)
}

func isUTF8Boundary(b []byte) bool {
	last := b[len(b)-1]

	return last&0b1100_0000 != 0b1000_0000
}

// CarName returns the canonical on-store folder name for a car living
// in an ordinary (non-archive) region: space-separated.
func CarName(make_, model, vin string) string {
	return fmt.Sprintf("%s %s %s", make_, model, vin)
}

// ArchivedCarName returns the folder name a car takes on once archived,
// carrying its original region as an underscore-separated prefix.
func ArchivedCarName(origRegion, make_, model, vin string) string {
	return fmt.Sprintf("%s_%s_%s_%s", strings.ToUpper(origRegion), make_, model, vin)
}

// CarRoot returns the canonical root path for a car living in an
// ordinary region, rooted at baseDir.
func CarRoot(baseDir, region, make_, model, vin string) string {
	return fmt.Sprintf("%s/%s/%s", baseDir, strings.ToUpper(region), CarName(make_, model, vin))
}

// ArchiveCarRoot returns the canonical root path for a car after it has
// been archived into the reserved ALL region, keeping its original
// region as part of the folder name.
func ArchiveCarRoot(baseDir, origRegion, make_, model, vin string) string {
	return fmt.Sprintf("%s/%s/%s", baseDir, ArchiveRegion, ArchivedCarName(origRegion, make_, model, vin))
}

// SlotPath returns the directory path of a single slot under carRoot.
// Dealer has a single unnumbered slot; buyout and dummies slots carry a
// 1-based numeric prefix ahead of the car's own name.
func SlotPath(carRoot, carName string, slotType SlotType, index int) (string, error) {
	if err := ValidateSlot(slotType, index); err != nil {
		return "", err
	}

	folder := SlotFolderName(slotType)

	if slotType == SlotDealer {
		return fmt.Sprintf("%s/%s/%s", carRoot, folder, carName), nil
	}

	return fmt.Sprintf("%s/%s/%d. %s", carRoot, folder, index, carName), nil
}

// ValidateSlot rejects slot types or indexes outside the fixed 1+8+5
// taxonomy.
func ValidateSlot(slotType SlotType, index int) error {
	card, ok := SlotCardinality[slotType]
	if !ok {
		return fmt.Errorf("pathmodel: unknown slot type %q", slotType)
	}

	if slotType == SlotDealer {
		if index != 1 {
			return fmt.Errorf("pathmodel: dealer slot index must be 1, got %d", index)
		}

		return nil
	}

	if index < 1 || index > card {
		return fmt.Errorf("pathmodel: %s slot index %d out of range [1,%d]", slotType, index, card)
	}

	return nil
}

// SlotDescriptor names one of the 14 fixed slots of a car.
type SlotDescriptor struct {
	Type  SlotType
	Index int
	Path  string
}

// GetAllSlotPaths deterministically yields all 14 slot descriptors for
// a car, in the fixed order dealer, buyout(1..8), dummies(1..5).
func GetAllSlotPaths(carRoot, carName string) ([]SlotDescriptor, error) {
	descriptors := make([]SlotDescriptor, 0, TotalSlotCount)

	order := []SlotType{SlotDealer, SlotBuyout, SlotDummies}
	for _, t := range order {
		for i := 1; i <= SlotCardinality[t]; i++ {
			p, err := SlotPath(carRoot, carName, t, i)
			if err != nil {
				return nil, err
			}

			descriptors = append(descriptors, SlotDescriptor{Type: t, Index: i, Path: p})
		}
	}

	return descriptors, nil
}
