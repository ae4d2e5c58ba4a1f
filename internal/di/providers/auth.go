package providers

import (
	"github.com/samber/do/v2"

	"github.com/notekeepapp/notekeep-server/internal/auth"
	"github.com/notekeepapp/notekeep-server/internal/config"
	"github.com/notekeepapp/notekeep-server/internal/logger"
	"github.com/notekeepapp/notekeep-server/internal/remote"
)

// ProvideAuthManager provides the cloud sign-in manager backed by the
// encrypted credential cache.
func ProvideAuthManager(i do.Injector) (*auth.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	oauth := auth.NewOAuthClient(
		cfg.Remote.TokenURL,
		cfg.Remote.AuthURL,
		cfg.Remote.ClientID,
		cfg.Remote.ClientSecret,
	)

	cache, err := auth.NewTokenCache(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}

	return auth.NewManager(oauth, cache, log.Logger), nil
}

// ProvideRemoteClient provides the cloud file-storage client using the
// auth manager as its token source.
func ProvideRemoteClient(i do.Injector) (*remote.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	manager := do.MustInvoke[*auth.Manager](i)

	return remote.New(cfg.Remote.APIBaseURL, cfg.Remote.UploadBaseURL, manager, log.Logger), nil
}
