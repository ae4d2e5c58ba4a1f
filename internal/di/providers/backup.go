package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/notekeepapp/notekeep-server/internal/auth"
	"github.com/notekeepapp/notekeep-server/internal/backup"
	"github.com/notekeepapp/notekeep-server/internal/config"
	"github.com/notekeepapp/notekeep-server/internal/logger"
	"github.com/notekeepapp/notekeep-server/internal/remote"
)

// BackupServiceHandle wraps the backup service with its scheduler
// goroutine for lifecycle management.
type BackupServiceHandle struct {
	*backup.Service
	cancel      context.CancelFunc
	unsubscribe func()
}

// Shutdown implements do.Shutdownable.
func (h *BackupServiceHandle) Shutdown() error {
	h.unsubscribe()
	h.cancel()
	return nil
}

// ProvideBackupService provides the backup service and starts its
// scheduler loop when automatic backups are enabled.
func ProvideBackupService(i do.Injector) (*BackupServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*remote.Client](i)
	manager := do.MustInvoke[*auth.Manager](i)
	deviceID := do.MustInvoke[DeviceID](i)

	scheduler := backup.NewScheduler(cfg.Backup.Interval)
	svc := backup.NewService(storeHandle.Store, client, manager, scheduler, backup.Options{
		FolderName:    cfg.Backup.FolderName,
		FileName:      cfg.Backup.FileName,
		DeviceID:      string(deviceID),
		CheckInterval: cfg.Backup.CheckInterval,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())

	// Pull down existing cloud data the first time an account connects
	// on a fresh installation.
	unsubscribe := manager.OnAuthStateChanged(func(state auth.State) {
		if !state.IsAuthenticated {
			return
		}
		go func() {
			outcome := svc.RestoreOnFirstRun(ctx)
			log.Info("First-run restore check complete", "outcome", string(outcome))
		}()
	})

	if cfg.Backup.Enabled {
		go svc.Run(ctx)
		log.Info("Backup scheduler started",
			"interval", cfg.Backup.Interval,
			"check_interval", cfg.Backup.CheckInterval,
		)
	} else {
		log.Info("Automatic backups disabled by configuration")
	}

	return &BackupServiceHandle{
		Service:     svc,
		cancel:      cancel,
		unsubscribe: unsubscribe,
	}, nil
}
