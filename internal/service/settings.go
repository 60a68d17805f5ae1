package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/prompt-manager/internal/apperror"
	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/storage"
)

// SettingsVersion is the settings document version.
const SettingsVersion = "1.0.0"

// DefaultSettings returns a fresh copy of the out-of-the-box settings.
// Returned as a value so callers can't mutate a shared default.
func DefaultSettings() model.Settings {
	return model.Settings{
		PresetTags: []string{"work", "study", "coding", "writing", "life"},
		Version:    SettingsVersion,
	}
}

// SettingsService manages the app settings, chiefly the preset tag
// vocabulary offered when tagging prompts.
type SettingsService struct {
	store  storage.Store
	logger *slog.Logger
}

func NewSettingsService(store storage.Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: logger,
	}
}

// Get returns the persisted settings, or the defaults when nothing has been
// saved yet or the stored value is corrupt.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	var settings model.Settings
	found, err := storage.GetJSON(ctx, s.store, storage.KeySettings, &settings)
	if err != nil {
		if errors.Is(err, apperror.ErrDataFormat) {
			s.logger.Warn("stored settings are corrupt, using defaults",
				slog.String("error", err.Error()),
			)
			return DefaultSettings(), nil
		}
		return model.Settings{}, err
	}
	if !found {
		return DefaultSettings(), nil
	}

	// Fill gaps left by older or hand-edited documents. An empty (but
	// present) tag list is respected — only an absent list falls back.
	if settings.PresetTags == nil {
		settings.PresetTags = DefaultSettings().PresetTags
	}
	if settings.Version == "" {
		settings.Version = SettingsVersion
	}
	return settings, nil
}

// Save validates, normalizes and persists the settings wholesale. Missing
// fields are merged over the defaults; preset tags are stripped of empty
// entries and deduplicated, keeping the first occurrence's position.
//
// A nil PresetTags means "not supplied" and restores the default vocabulary.
// An empty non-nil slice is a deliberate "no preset tags" and is kept — this
// is what clearing the vocabulary in the settings screen produces.
func (s *SettingsService) Save(ctx context.Context, settings model.Settings) error {
	normalized := DefaultSettings()
	if settings.Version != "" {
		normalized.Version = settings.Version
	}
	if settings.PresetTags != nil {
		normalized.PresetTags = normalizeTags(settings.PresetTags)
	}

	if err := storage.SetJSON(ctx, s.store, storage.KeySettings, normalized); err != nil {
		s.logger.Error("failed to save settings", slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("settings saved", slog.Int("presetTags", len(normalized.PresetTags)))
	return nil
}

// GetPresetTags returns the current preset tag vocabulary.
func (s *SettingsService) GetPresetTags(ctx context.Context) ([]string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings.PresetTags, nil
}

// UpdatePresetTags replaces the preset tag vocabulary, leaving the rest of
// the settings untouched.
func (s *SettingsService) UpdatePresetTags(ctx context.Context, tags []string) error {
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []string{}
	}
	settings.PresetTags = tags
	return s.Save(ctx, settings)
}

// Reset restores the default settings.
func (s *SettingsService) Reset(ctx context.Context) error {
	return s.Save(ctx, DefaultSettings())
}

// normalizeTags drops empty/whitespace-only entries and duplicates,
// preserving first-occurrence order. Always returns a non-nil slice.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
