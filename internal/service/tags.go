package service

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/notekeepapp/notekeep-server/internal/domain"
	apperrors "github.com/notekeepapp/notekeep-server/internal/errors"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

// TagService manages the global tag registry and tag colors.
type TagService struct {
	store    *store.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(s *store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:    s,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListTags returns every registered tag with its color.
func (s *TagService) ListTags(ctx context.Context) ([]domain.TagWithColor, error) {
	return s.store.GetAllTagsWithColors(ctx)
}

// AddTag registers a tag. An empty color gets the default; a non-empty
// color must be a hex color. Adding an existing tag updates its color.
// An empty name is a no-op and reports false.
func (s *TagService) AddTag(ctx context.Context, name, color string) (bool, error) {
	if color != "" {
		if err := s.validate.Var(color, "hexcolor"); err != nil {
			return false, apperrors.Validationf("invalid tag color %q", color)
		}
	}

	added, err := s.store.AddTag(ctx, name, color)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.Info("tag added", "tag", name)
	}
	return added, nil
}

// TagColor returns the effective color for a tag name, falling back to
// the default when the tag has no registered color.
func (s *TagService) TagColor(ctx context.Context, name string) (string, error) {
	return s.store.GetTagColor(ctx, name)
}

// UpdateTagColor changes an existing tag's color. Reports false when
// the tag is not registered.
func (s *TagService) UpdateTagColor(ctx context.Context, name, color string) (bool, error) {
	if err := s.validate.Var(color, "hexcolor"); err != nil {
		return false, apperrors.Validationf("invalid tag color %q", color)
	}

	updated, err := s.store.UpdateTagColor(ctx, name, color)
	if err != nil {
		return false, err
	}
	if updated {
		s.logger.Info("tag color updated", "tag", name)
	}
	return updated, nil
}

// RemoveTag deletes a tag from the registry, its color, and every note
// that carries it.
func (s *TagService) RemoveTag(ctx context.Context, name string) (bool, error) {
	removed, err := s.store.RemoveTag(ctx, name)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("tag removed", "tag", name)
	}
	return removed, nil
}

// RenameTag renames a tag everywhere it appears, keeping its color.
// Reports false when the old name is not registered or the new name is
// already taken.
func (s *TagService) RenameTag(ctx context.Context, oldName, newName string) (bool, error) {
	if newName == "" {
		return false, apperrors.Validationf("new tag name must not be empty")
	}

	renamed, err := s.store.RenameTag(ctx, oldName, newName)
	if err != nil {
		return false, err
	}
	if renamed {
		s.logger.Info("tag renamed", "from", oldName, "to", newName)
	}
	return renamed, nil
}
