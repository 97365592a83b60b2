package storage

import "context"

// MarkSlotUsed sets the administrative "used" flag on slotPath.
func (e *Engine) MarkSlotUsed(ctx context.Context, slotPath, setBy string) error {
	return e.putUsedMarker(ctx, slotPath, true, setBy)
}

// MarkSlotUnused clears the administrative "used" flag on slotPath.
func (e *Engine) MarkSlotUnused(ctx context.Context, slotPath, setBy string) error {
	return e.putUsedMarker(ctx, slotPath, false, setBy)
}

func (e *Engine) putUsedMarker(ctx context.Context, slotPath string, used bool, setBy string) error {
	marker := &UsedMarker{Used: used, SetBy: setBy, SetAt: e.clock()}

	if err := e.store.PutJSON(ctx, slotPath+"/"+usedJSON, marker); err != nil {
		return newOpError(KindRemoteTransient, "markSlotUsed", slotPath, nil, err)
	}

	return nil
}

// IsSlotUsed reads the administrative "used" flag for slotPath,
// defaulting to false when the marker is absent.
func (e *Engine) IsSlotUsed(ctx context.Context, slotPath string) bool {
	var marker UsedMarker
	if err := e.store.GetJSON(ctx, slotPath+"/"+usedJSON, &marker); err != nil {
		return false
	}

	return marker.Used
}

// PublishSlot publishes every photo currently listed in slotPath's
// PhotoIndex, caching the resulting public URLs in _PUBLISHED.json
// keyed by file name.
func (e *Engine) PublishSlot(ctx context.Context, slotPath string) (map[string]string, error) {
	idx, ok := e.loadPhotoIndex(ctx, slotPath, true)
	if !ok {
		rebuilt, err := e.reconcileSlot(ctx, slotPath)
		if err != nil {
			return nil, newOpError(KindRemoteTransient, "publishSlot", slotPath, nil, err)
		}

		idx = rebuilt.index
	}

	urls := make(map[string]string, len(idx.Items))

	for _, item := range idx.Items {
		url, err := e.store.Publish(ctx, slotPath+"/"+item.Name)
		if err != nil {
			return nil, newOpError(KindRemoteTransient, "publishSlot", slotPath+"/"+item.Name, nil, err)
		}

		urls[item.Name] = url
	}

	marker := &PublishedMarker{URLs: urls, PublishedAt: e.clock()}

	if err := e.store.PutJSON(ctx, slotPath+"/"+publishedJSON, marker); err != nil {
		return nil, newOpError(KindRemoteTransient, "publishSlot", slotPath, nil, err)
	}

	return urls, nil
}

// GetSlotDownloadURL resolves a short-lived download URL for a single
// photo within a slot.
func (e *Engine) GetSlotDownloadURL(ctx context.Context, slotPath, name string) (string, error) {
	url, err := e.store.GetDownloadURL(ctx, slotPath+"/"+name)
	if err != nil {
		return "", newOpError(KindRemoteTransient, "getSlotDownloadURL", slotPath+"/"+name, nil, err)
	}

	return url, nil
}
