package providers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/do/v2"

	"github.com/notekeepapp/notekeep-server/internal/config"
	"github.com/notekeepapp/notekeep-server/internal/logger"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the document store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.DatabasePath()
	st, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: st}, nil
}

// DeviceID identifies this installation in backup payloads.
type DeviceID string

// ProvideDeviceID provides a stable per-installation identifier,
// generated on first run and persisted under the data path.
func ProvideDeviceID(i do.Injector) (DeviceID, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	idPath := filepath.Join(cfg.Storage.DataPath, "device-id")
	if raw, err := os.ReadFile(idPath); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return DeviceID(id), nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(idPath, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}

	log.Info("Generated device ID", "device_id", id)

	return DeviceID(id), nil
}
