package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/notekeepapp/notekeep-server/internal/config"
	"github.com/notekeepapp/notekeep-server/internal/logger"
	"github.com/notekeepapp/notekeep-server/internal/search"
	"github.com/notekeepapp/notekeep-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ix, err := search.NewIndex(cfg.SearchIndexPath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Search index opened", "path", cfg.SearchIndexPath())

	return &SearchIndexHandle{Index: ix}, nil
}

// ProvideSearchService provides the ranked search service and wires the
// index into the store so writes keep it current.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(storeHandle.Store, indexHandle.Index, log.Logger), nil
}

// TriggerSearchReindex rebuilds the index from the stored notes so it
// catches up with any writes it missed while the server was down.
func TriggerSearchReindex(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	searchService := do.MustInvoke[*service.SearchService](i)

	if err := searchService.Reindex(context.Background()); err != nil {
		log.Warn("Startup reindex failed", "error", err)
	}
}
