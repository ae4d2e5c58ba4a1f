package backup

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	"github.com/notekeepapp/notekeep-server/internal/merge"
	"github.com/notekeepapp/notekeep-server/internal/remote"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

// AuthGate is the slice of the auth manager the backup flow consults.
type AuthGate interface {
	IsAuthenticated() bool
}

// Options configures the backup service.
type Options struct {
	FolderName    string
	FileName      string
	DeviceID      string
	CheckInterval time.Duration
}

// Outcome reports how the last backup or restore cycle ended. Failures
// are values, not errors: callers check the outcome, nothing throws
// across this boundary.
type Outcome string

// Backup cycle outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Status is a snapshot of backup state for the API.
type Status struct {
	LastBackupTime *time.Time `json:"lastBackupTime"`
	LastOutcome    Outcome    `json:"lastOutcome,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	InProgress     bool       `json:"inProgress"`
}

// Service orchestrates scheduler, merge policy, remote client, and
// store into the backup/restore flows. All remote failures degrade to a
// logged skip; the periodic loop never stops on error.
type Service struct {
	store     *store.Store
	remote    *remote.Client
	auth      AuthGate
	scheduler *Scheduler
	opts      Options
	logger    *slog.Logger

	mu          sync.Mutex
	inProgress  bool
	lastOutcome Outcome
	lastError   string
}

// NewService creates the backup service.
func NewService(s *store.Store, r *remote.Client, auth AuthGate, scheduler *Scheduler, opts Options, logger *slog.Logger) *Service {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	return &Service{
		store:     s,
		remote:    r,
		auth:      auth,
		scheduler: scheduler,
		opts:      opts,
		logger:    logger,
	}
}

// Run drives the periodic backup loop until ctx is canceled. Each tick
// consults the scheduler; the loop itself holds no backup policy.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maybeBackup(ctx)
		}
	}
}

// maybeBackup runs one scheduler consultation and backs up when due.
func (s *Service) maybeBackup(ctx context.Context) {
	if !s.auth.IsAuthenticated() {
		return
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("backup check could not load document", "error", err)
		return
	}

	if !s.scheduler.Due(doc.LastBackupTime, time.Now()) {
		return
	}

	s.Backup(ctx)
}

// Backup performs one full round-trip: merge the remote backup (if any)
// into the local document, persist the merged result, upload it, and
// stamp lastBackupTime. Returns the outcome; failure detail is logged
// and kept in Status, never propagated.
func (s *Service) Backup(ctx context.Context) Outcome {
	if !s.begin() {
		return OutcomeSkipped
	}
	defer s.end()

	if !s.auth.IsAuthenticated() {
		s.logger.Info("backup skipped: not authenticated")
		return s.record(OutcomeSkipped, "")
	}

	localDoc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("backup failed loading local document", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	folderID, err := s.remote.EnsureFolder(ctx, s.opts.FolderName)
	if err != nil {
		s.logger.Warn("backup failed locating remote folder", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	fileID, err := s.remote.FindFile(ctx, folderID, s.opts.FileName)
	if err != nil {
		s.logger.Warn("backup failed locating remote file", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	uploadDoc := localDoc
	if fileID != "" {
		remoteDoc, err := s.downloadDocument(ctx, fileID)
		if err != nil {
			s.logger.Warn("backup failed downloading remote document", "error", err)
			return s.record(OutcomeFailed, err.Error())
		}

		uploadDoc = merge.Documents(localDoc, remoteDoc)
		if err := s.store.ReplaceDocument(ctx, uploadDoc); err != nil {
			s.logger.Error("backup failed persisting merged document", "error", err)
			return s.record(OutcomeFailed, err.Error())
		}
	}

	payload, err := json.Marshal(domain.NewBackupPayload(uploadDoc, s.opts.DeviceID))
	if err != nil {
		s.logger.Error("backup failed encoding payload", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	if _, err := s.remote.Upload(ctx, folderID, s.opts.FileName, payload, fileID); err != nil {
		s.logger.Warn("backup upload failed", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	if err := s.store.SetLastBackupTime(ctx, time.Now()); err != nil {
		s.logger.Error("backup failed recording backup time", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	s.logger.Info("backup completed",
		"notes", len(uploadDoc.Notes),
		"tags", len(uploadDoc.Tags),
	)
	return s.record(OutcomeSuccess, "")
}

// RestoreOnFirstRun adopts the remote backup only when the first-run
// guard allows it: a store with any local notes is left untouched.
func (s *Service) RestoreOnFirstRun(ctx context.Context) Outcome {
	doc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("restore check could not load document", "error", err)
		return OutcomeFailed
	}

	if !s.scheduler.ShouldRestoreOnFirstRun(len(doc.Notes) > 0, doc.LastBackupTime != nil) {
		s.logger.Info("restore skipped: local notes present")
		return OutcomeSkipped
	}

	return s.Restore(ctx)
}

// Restore downloads the remote backup, merges it with the local
// document, and persists the result. User-initiated: the first-run
// guard does not apply.
func (s *Service) Restore(ctx context.Context) Outcome {
	if !s.begin() {
		return OutcomeSkipped
	}
	defer s.end()

	if !s.auth.IsAuthenticated() {
		s.logger.Info("restore skipped: not authenticated")
		return s.record(OutcomeSkipped, "")
	}

	folderID, err := s.remote.EnsureFolder(ctx, s.opts.FolderName)
	if err != nil {
		s.logger.Warn("restore failed locating remote folder", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	fileID, err := s.remote.FindFile(ctx, folderID, s.opts.FileName)
	if err != nil {
		s.logger.Warn("restore failed locating remote file", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}
	if fileID == "" {
		s.logger.Info("restore skipped: no remote backup exists")
		return s.record(OutcomeSkipped, "")
	}

	remoteDoc, err := s.downloadDocument(ctx, fileID)
	if err != nil {
		s.logger.Warn("restore failed downloading remote document", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	localDoc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("restore failed loading local document", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	merged := merge.Documents(localDoc, remoteDoc)
	if err := s.store.ReplaceDocument(ctx, merged); err != nil {
		s.logger.Error("restore failed persisting merged document", "error", err)
		return s.record(OutcomeFailed, err.Error())
	}

	s.logger.Info("restore completed",
		"notes", len(merged.Notes),
		"tags", len(merged.Tags),
	)
	return s.record(OutcomeSuccess, "")
}

// Status returns a snapshot for the API.
func (s *Service) Status(ctx context.Context) Status {
	var last *time.Time
	if doc, err := s.store.Load(ctx); err == nil {
		last = doc.LastBackupTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		LastBackupTime: last,
		LastOutcome:    s.lastOutcome,
		LastError:      s.lastError,
		InProgress:     s.inProgress,
	}
}

// downloadDocument fetches and decodes the remote backup payload,
// accepting both historical payload shapes.
func (s *Service) downloadDocument(ctx context.Context, fileID string) (*domain.Document, error) {
	raw, err := s.remote.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var payload domain.BackupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload.ToDocument(), nil
}

// begin marks a cycle in progress; a second concurrent cycle is refused.
func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	s.inProgress = false
	s.mu.Unlock()
}

// record stores the cycle outcome for Status.
func (s *Service) record(outcome Outcome, errMsg string) Outcome {
	s.mu.Lock()
	s.lastOutcome = outcome
	s.lastError = errMsg
	s.mu.Unlock()
	return outcome
}
