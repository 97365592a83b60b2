package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carphotos/carphotos/internal/pathmodel"
)

// UploadFile is one file submitted to UploadToSlot.
type UploadFile struct {
	Name        string
	Data        []byte
	ContentType string
}

// PipelineOutcome reports the stage a write pipeline run reached, for
// callers that need more than "error or not" (e.g. to log stage-tagged
// metrics).
type PipelineOutcome struct {
	Stage string
	Index *PhotoIndex
}

// UploadToSlot runs the four-stage write pipeline against slotPath:
// Preflight, CommitData, CommitIndex, Verify. A Preflight rejection
// never reaches CommitData — no upload URL is obtained and no bytes
// leave the caller. A Verify failure never fails the call; it marks
// the slot dirty for the next reconcile instead.
func (e *Engine) UploadToSlot(ctx context.Context, slotPath string, files []UploadFile, uploadedBy string) (*PipelineOutcome, error) {
	canonical, err := pathmodel.AssertDiskPath(slotPath, "uploadToSlot")
	if err != nil {
		return nil, newOpError(KindPathSyntax, "uploadToSlot", slotPath, nil, err)
	}

	current, err := e.preflight(ctx, canonical, files)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("write pipeline preflight passed",
		slog.String("slot_path", canonical),
		slog.Int("current_count", current.Count),
		slog.Int("incoming", len(files)),
	)

	uploaded, err := e.commitData(ctx, canonical, files)
	if err != nil {
		e.rollbackUploaded(ctx, canonical, uploaded)

		return nil, newOpError(KindRemoteTransient, "commitData_error", canonical, nil, err)
	}

	index, err := e.commitIndex(ctx, canonical, current, files, uploadedBy)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("write pipeline committed",
		slog.String("slot_path", canonical),
		slog.Int("count", index.Count),
	)

	e.verify(ctx, canonical, files)

	return &PipelineOutcome{Stage: "done", Index: index}, nil
}

// preflight is Stage A: ensure the slot exists, load (or rebuild) its
// current PhotoIndex, and reject the whole request if the incoming
// files would push the slot over its photo-count or total-size limits.
func (e *Engine) preflight(ctx context.Context, slotPath string, files []UploadFile) (*PhotoIndex, error) {
	if err := e.store.EnsureDir(ctx, slotPath); err != nil {
		return nil, newOpError(KindRemoteTransient, "preflight", slotPath, nil, err)
	}

	current, ok := e.loadPhotoIndex(ctx, slotPath, true)
	if !ok {
		rebuilt, err := e.reconcileSlot(ctx, slotPath)
		if err != nil {
			return nil, newOpError(KindRemoteTransient, "preflight", slotPath, nil, err)
		}

		current = rebuilt.index
	}

	newCount := current.Count + len(files)
	if newCount > e.photoCap {
		return nil, newOpError(KindPhotoLimitExceeded, "preflight", slotPath,
			PhotoLimitExceededInfo(current.Count, e.photoCap), nil)
	}

	var incomingBytes int64
	for _, f := range files {
		incomingBytes += int64(len(f.Data))
	}

	var existingBytes int64
	for _, item := range current.Items {
		existingBytes += item.Size
	}

	newSizeMB := float64(existingBytes+incomingBytes) / (1024 * 1024)
	if newSizeMB > float64(e.maxSlotSizeMB) {
		return nil, newOpError(KindSlotSizeExceeded, "preflight", slotPath,
			map[string]any{"currentSizeMB": float64(existingBytes) / (1024 * 1024), "maxSizeMB": e.maxSlotSizeMB}, nil)
	}

	return current, nil
}

// commitData is Stage B: uploads every file's bytes. On any file's
// terminal failure it returns the names already uploaded so the caller
// can roll them back.
func (e *Engine) commitData(ctx context.Context, slotPath string, files []UploadFile) ([]string, error) {
	uploaded := make([]string, 0, len(files))

	for _, f := range files {
		path := slotPath + "/" + f.Name

		if err := e.store.PutBytes(ctx, path, f.Data, f.ContentType); err != nil {
			return uploaded, fmt.Errorf("uploading %s: %w", f.Name, err)
		}

		uploaded = append(uploaded, f.Name)
	}

	return uploaded, nil
}

func (e *Engine) rollbackUploaded(ctx context.Context, slotPath string, names []string) {
	for _, name := range names {
		_ = e.store.Delete(ctx, slotPath+"/"+name)
	}
}

// commitIndex is Stage C: acquire the per-slot lock, merge the newly
// uploaded files into the PhotoIndex by name (last-writer-wins on
// bytes, deduplicated by name so items[] holds each name once),
// persist PhotoIndex and SlotStats, and always release the lock,
// including on the error paths above — the release is the finalizer.
func (e *Engine) commitIndex(ctx context.Context, slotPath string, preflightIndex *PhotoIndex, files []UploadFile, uploadedBy string) (*PhotoIndex, error) {
	if err := e.acquireLock(ctx, slotPath, "upload", uploadedBy); err != nil {
		return nil, err
	}

	defer func() {
		_ = e.store.Delete(ctx, slotPath+"/"+lockJSON)
	}()

	current, ok := e.loadPhotoIndex(ctx, slotPath, true)
	if !ok {
		rebuilt, err := e.reconcileSlot(ctx, slotPath)
		if err != nil {
			return nil, newOpError(KindRemoteTransient, "commitIndex", slotPath, nil, err)
		}

		current = rebuilt.index
	}

	merged := mergePhotoItems(current.Items, files, e.clock())

	var cover *string
	if len(merged) > 0 {
		cover = &merged[0].Name
	}

	index := &PhotoIndex{
		Version:   schemaVersion,
		UpdatedAt: e.clock(),
		Count:     len(merged),
		Limit:     e.photoCap,
		Cover:     cover,
		Items:     merged,
	}

	if err := e.store.PutJSON(ctx, slotPath+"/"+photosJSON, index); err != nil {
		return nil, newOpError(KindRemoteTransient, "commitIndex", slotPath, nil, err)
	}

	stats := deriveSlotStats(index, e.clock())
	if err := e.store.PutJSON(ctx, slotPath+"/"+slotJSON, stats); err != nil {
		return nil, newOpError(KindRemoteTransient, "commitIndex", slotPath, nil, err)
	}

	return index, nil
}

// mergePhotoItems appends each incoming file whose name does not
// already appear among existing, preserving insertion order. This is
// the last-writer-wins, dedup-by-name collision policy: a same-named
// concurrent upload's bytes win or lose the race inside CommitData,
// but the index always lists the name exactly once.
func mergePhotoItems(existing []PhotoItem, files []UploadFile, now time.Time) []PhotoItem {
	seen := make(map[string]bool, len(existing))

	merged := make([]PhotoItem, len(existing))
	copy(merged, existing)

	for _, item := range existing {
		seen[item.Name] = true
	}

	for _, f := range files {
		if seen[f.Name] {
			continue
		}

		merged = append(merged, PhotoItem{Name: f.Name, Size: int64(len(f.Data)), Modified: now})
		seen[f.Name] = true
	}

	return merged
}

func deriveSlotStats(idx *PhotoIndex, now time.Time) *SlotStats {
	var totalBytes int64
	for _, item := range idx.Items {
		totalBytes += item.Size
	}

	return &SlotStats{
		Count:       idx.Count,
		Cover:       idx.Cover,
		TotalSizeMB: float64(totalBytes) / (1024 * 1024),
		UpdatedAt:   now,
	}
}

// verify is Stage D: re-read the index and confirm every uploaded name
// is present. A mismatch never fails the call — it marks the slot
// dirty so the next reconcile repairs it.
func (e *Engine) verify(ctx context.Context, slotPath string, files []UploadFile) {
	idx, ok := e.loadPhotoIndex(ctx, slotPath, true)
	if !ok {
		e.markDirty(ctx, slotPath, "verify: index missing after commit")

		return
	}

	present := make(map[string]bool, len(idx.Items))
	for _, item := range idx.Items {
		present[item.Name] = true
	}

	for _, f := range files {
		if !present[f.Name] {
			e.markDirty(ctx, slotPath, fmt.Sprintf("verify: %s missing from index", f.Name))

			return
		}
	}
}

func (e *Engine) markDirty(ctx context.Context, slotPath, reason string) {
	e.logger.Warn("slot marked dirty", slog.String("slot_path", slotPath), slog.String("reason", reason))

	marker := &DirtyMarker{MarkedAt: e.clock(), Reason: reason, SlotPath: slotPath}
	_ = e.store.PutJSON(ctx, slotPath+"/"+dirtyJSON, marker)
}

// Lock-acquisition polling: a writer finding the lock held briefly waits
// and re-checks before refusing, so two near-simultaneous uploads to one
// slot serialize instead of bouncing the second with LockHeld. Bounded:
// after the attempts below the caller gets the LockHeld refusal and may
// retry at its own pace.
const (
	lockAcquireAttempts = 5
	lockAcquireDelay    = 40 * time.Millisecond
)

// acquireLock implements the Stage C locking protocol: create the lock
// if absent; wait briefly, then refuse with LockHeld, if present and
// unexpired; overwrite if present and expired. The store offers no
// atomic create, so after writing the lock the writer re-reads it and
// only proceeds when its own token survived the race.
func (e *Engine) acquireLock(ctx context.Context, slotPath, operation, lockedBy string) error {
	token := uuid.NewString()
	lockPath := slotPath + "/" + lockJSON

	for attempt := 0; ; attempt++ {
		existing, ok := e.loadLock(ctx, slotPath)
		if ok && !existing.Expired(e.clock()) && existing.Token != token {
			if attempt >= lockAcquireAttempts {
				return newOpError(KindLockHeld, "commitIndex", slotPath, LockHeldInfo(existing.LockedBy, existing.ExpiresAt), nil)
			}

			if err := sleepCtx(ctx, lockAcquireDelay); err != nil {
				return newOpError(KindRemoteTransient, "commitIndex", slotPath, nil, err)
			}

			continue
		}

		now := e.clock()
		lock := &Lock{
			LockedBy:  lockedBy,
			LockedAt:  now,
			ExpiresAt: now.Add(e.ttl.LockTTL),
			Operation: operation,
			SlotPath:  slotPath,
			Token:     token,
		}

		if err := e.store.PutJSON(ctx, lockPath, lock); err != nil {
			return newOpError(KindRemoteTransient, "commitIndex", slotPath, nil, err)
		}

		confirmed, ok := e.loadLock(ctx, slotPath)
		if ok && confirmed.Token == token {
			return nil
		}
		// Lost the race to a concurrent writer; loop and wait for them.
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
