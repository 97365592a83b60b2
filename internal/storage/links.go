package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// CreateLink appends a new external reference to carRoot's _LINKS.json,
// generating its id.
func (e *Engine) CreateLink(ctx context.Context, carRoot, title, url, createdBy string) (*Link, error) {
	var idx LinkIndex

	if err := e.store.GetJSON(ctx, carRoot+"/"+linksJSON, &idx); err != nil {
		idx = LinkIndex{}
	}

	link := Link{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       url,
		CreatedAt: e.clock(),
		CreatedBy: createdBy,
	}

	idx.Links = append(idx.Links, link)
	idx.UpdatedAt = e.clock()

	if err := e.store.PutJSON(ctx, carRoot+"/"+linksJSON, &idx); err != nil {
		return nil, newOpError(KindRemoteTransient, "createLink", carRoot, nil, err)
	}

	return &link, nil
}

// ListLinks returns every link attached to carRoot.
func (e *Engine) ListLinks(ctx context.Context, carRoot string) ([]Link, error) {
	var idx LinkIndex
	if err := e.store.GetJSON(ctx, carRoot+"/"+linksJSON, &idx); err != nil {
		return nil, nil
	}

	return idx.Links, nil
}

// DeleteLink removes the link with the given id from carRoot's
// _LINKS.json.
func (e *Engine) DeleteLink(ctx context.Context, carRoot, id string) error {
	var idx LinkIndex
	if err := e.store.GetJSON(ctx, carRoot+"/"+linksJSON, &idx); err != nil {
		return newOpError(KindCarNotFound, "deleteLink", carRoot, nil, err)
	}

	out := idx.Links[:0]

	for _, l := range idx.Links {
		if l.ID != id {
			out = append(out, l)
		}
	}

	idx.Links = out
	idx.UpdatedAt = e.clock()

	if err := e.store.PutJSON(ctx, carRoot+"/"+linksJSON, &idx); err != nil {
		return newOpError(KindRemoteTransient, "deleteLink", carRoot, nil, err)
	}

	return nil
}

// FindLinkByID scans every region's cars serially for a link with the
// given id. This is an administrative, rarely-used operation, so a
// serial scan is acceptable per the engine's design.
func (e *Engine) FindLinkByID(ctx context.Context, regions []string, linkID string) (*Link, string, error) {
	for _, region := range regions {
		summaries, err := e.ListCarsByRegion(ctx, region)
		if err != nil {
			continue
		}

		for _, car := range summaries {
			links, err := e.ListLinks(ctx, car.DiskRootPath)
			if err != nil {
				continue
			}

			for _, l := range links {
				if strings.EqualFold(l.ID, linkID) {
					link := l

					return &link, car.DiskRootPath, nil
				}
			}
		}
	}

	return nil, "", newOpError(KindCarNotFound, "findLinkByID", linkID, nil, nil)
}
