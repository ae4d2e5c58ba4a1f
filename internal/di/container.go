// Package di provides dependency injection configuration for the
// NoteKeep server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/notekeepapp/notekeep-server/internal/auth"
	"github.com/notekeepapp/notekeep-server/internal/config"
	"github.com/notekeepapp/notekeep-server/internal/di/providers"
	"github.com/notekeepapp/notekeep-server/internal/logger"
	"github.com/notekeepapp/notekeep-server/internal/remote"
	"github.com/notekeepapp/notekeep-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideDeviceID)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Cloud layer
	do.Provide(injector, providers.ProvideAuthManager)
	do.Provide(injector, providers.ProvideRemoteClient)
	do.Provide(injector, providers.ProvideBackupService)

	// Business services
	do.Provide(injector, providers.ProvideNotesService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideSearchService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle
// management. This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.DeviceID](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	_ = do.MustInvoke[*auth.Manager](injector)
	_ = do.MustInvoke[*remote.Client](injector)
	_ = do.MustInvoke[*providers.BackupServiceHandle](injector)

	_ = do.MustInvoke[*service.NotesService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Bring the index in line with the stored notes.
	providers.TriggerSearchReindex(injector)

	return nil
}
