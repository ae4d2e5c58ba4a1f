package api

import (
	"github.com/notekeepapp/notekeep-server/internal/auth"
	"github.com/notekeepapp/notekeep-server/internal/backup"
	"github.com/notekeepapp/notekeep-server/internal/service"
)

// Services groups the business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Notes  *service.NotesService
	Tags   *service.TagService
	Search *service.SearchService
	Backup *backup.Service
	Auth   *auth.Manager
}
