package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/notekeepapp/notekeep-server/internal/backup"
)

func (s *Server) registerBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "backupStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/backup",
		Summary:     "Backup status",
		Description: "Returns the last backup time and outcome",
		Tags:        []string{"Backup"},
	}, s.handleBackupStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "triggerBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/backup",
		Summary:     "Trigger backup",
		Description: "Merges remote data and uploads the result, skipping when a cycle is already running",
		Tags:        []string{"Backup"},
	}, s.handleTriggerBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "triggerRestore",
		Method:      http.MethodPost,
		Path:        "/api/v1/backup/restore",
		Summary:     "Restore from backup",
		Description: "Downloads the remote backup and merges it into local data",
		Tags:        []string{"Backup"},
	}, s.handleTriggerRestore)
}

// === DTOs ===

// BackupStatusResponse contains backup status data in API responses.
type BackupStatusResponse struct {
	LastBackupTime *time.Time `json:"lastBackupTime" doc:"Time of the last successful backup, null if never"`
	LastOutcome    string     `json:"lastOutcome,omitempty" doc:"Outcome of the last cycle: success, skipped, or failed"`
	LastError      string     `json:"lastError,omitempty" doc:"Error message from the last failed cycle"`
	InProgress     bool       `json:"inProgress" doc:"Whether a cycle is currently running"`
}

// BackupStatusOutput wraps the backup status response for Huma.
type BackupStatusOutput struct {
	Body BackupStatusResponse
}

// BackupOutcomeResponse reports the outcome of a triggered cycle.
type BackupOutcomeResponse struct {
	Outcome string `json:"outcome" doc:"Cycle outcome: success, skipped, or failed"`
}

// BackupOutcomeOutput wraps the outcome response for Huma.
type BackupOutcomeOutput struct {
	Body BackupOutcomeResponse
}

// === Handlers ===

func (s *Server) handleBackupStatus(ctx context.Context, _ *struct{}) (*BackupStatusOutput, error) {
	status := s.services.Backup.Status(ctx)
	return &BackupStatusOutput{Body: BackupStatusResponse{
		LastBackupTime: status.LastBackupTime,
		LastOutcome:    string(status.LastOutcome),
		LastError:      status.LastError,
		InProgress:     status.InProgress,
	}}, nil
}

func (s *Server) handleTriggerBackup(ctx context.Context, _ *struct{}) (*BackupOutcomeOutput, error) {
	outcome := s.services.Backup.Backup(ctx)
	if outcome == backup.OutcomeFailed {
		status := s.services.Backup.Status(ctx)
		return nil, huma.Error502BadGateway("Backup failed: " + status.LastError)
	}
	return &BackupOutcomeOutput{Body: BackupOutcomeResponse{Outcome: string(outcome)}}, nil
}

func (s *Server) handleTriggerRestore(ctx context.Context, _ *struct{}) (*BackupOutcomeOutput, error) {
	outcome := s.services.Backup.Restore(ctx)
	if outcome == backup.OutcomeFailed {
		status := s.services.Backup.Status(ctx)
		return nil, huma.Error502BadGateway("Restore failed: " + status.LastError)
	}
	return &BackupOutcomeOutput{Body: BackupOutcomeResponse{Outcome: string(outcome)}}, nil
}
