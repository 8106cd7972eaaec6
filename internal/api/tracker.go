package api

import (
	"context"

	"susu-dfs-console/internal/https"
	"susu-dfs-console/internal/model"
)

const TrackerTreePath = "tracker/tree"

// QueryTree fetches the storage nodes the tracker currently knows about.
func QueryTree(ctx context.Context, clients https.Selector) ([]model.StorageModel, error) {
	return https.Request[[]model.StorageModel](ctx, clients.Select(false), TrackerTreePath, https.MethodGet, https.Params{}, https.ContentTypeForm)
}
