package flow

import (
	"context"

	"github.com/masmgr/commitrounds/internal/git"
	"github.com/masmgr/commitrounds/internal/sharedrepo"
)

// Open clones or reuses url through m and returns a workspace usable both as
// a HistorySource and as the machine's delta source and snapshotter. A
// failure is reported as a *RoundError for round 1.
func Open(ctx context.Context, m *sharedrepo.Manager, url string, updateToLatest bool, extractor *git.Extractor) (*sharedrepo.Workspace, error) {
	h, err := m.GetOrClone(ctx, url, updateToLatest)
	if err != nil {
		return nil, roundError(1, 0, ResourceClone, err)
	}
	return m.Workspace(h, extractor), nil
}
