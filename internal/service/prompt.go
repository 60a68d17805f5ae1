// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-layer shape:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Storage (Data layer)     → reads/writes the persistent key-value store
//
// Services accept primitives and return domain models plus typed errors from
// internal/apperror — they have zero knowledge of HTTP. The handler layer
// translates the error kinds to status codes.
//
// PERSISTENCE MODEL:
// The whole prompt collection lives under one storage key as a JSON array.
// Every mutation reads the full collection, modifies it in memory, and writes
// it back in a single atomic Set. That is O(n) per write, which is fine for a
// personal dataset and buys a very simple correctness story: a write either
// fully lands or doesn't happen at all, and the canonical record order (most
// recent first) is exactly the stored order.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/prompt-manager/internal/apperror"
	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/storage"
)

// TagAll is the filter value meaning "no tag filter".
const TagAll = "all"

const recentWindow = 7 * 24 * time.Hour

// PromptService owns the canonical prompt collection. Callers always receive
// fresh copies decoded from storage, never shared slices.
type PromptService struct {
	store  storage.Store
	logger *slog.Logger
}

func NewPromptService(store storage.Store, logger *slog.Logger) *PromptService {
	return &PromptService{
		store:  store,
		logger: logger,
	}
}

// PromptPatch carries the fields of an update. Pointer fields distinguish
// "not supplied, keep the current value" (nil) from "supplied, set this value"
// — an explicitly supplied empty title or content is a validation error,
// while an absent one is simply left alone.
type PromptPatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// loadAll reads the stored collection. A missing key means an empty
// collection; a corrupt stored value is logged and treated as empty rather
// than wedging every operation behind an unreadable blob.
func (s *PromptService) loadAll(ctx context.Context) ([]model.Prompt, error) {
	var prompts []model.Prompt
	found, err := storage.GetJSON(ctx, s.store, storage.KeyPrompts, &prompts)
	if err != nil {
		if errors.Is(err, apperror.ErrDataFormat) {
			s.logger.Warn("stored prompt collection is corrupt, treating as empty",
				slog.String("error", err.Error()),
			)
			return []model.Prompt{}, nil
		}
		return nil, err
	}
	if !found || prompts == nil {
		return []model.Prompt{}, nil
	}
	return prompts, nil
}

func (s *PromptService) saveAll(ctx context.Context, prompts []model.Prompt) error {
	return storage.SetJSON(ctx, s.store, storage.KeyPrompts, prompts)
}

// GetAll returns the full collection, most recent first.
func (s *PromptService) GetAll(ctx context.Context) ([]model.Prompt, error) {
	return s.loadAll(ctx)
}

// GetByID returns a single prompt or ErrNotFound.
func (s *PromptService) GetByID(ctx context.Context, id string) (*model.Prompt, error) {
	prompts, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range prompts {
		if prompts[i].ID == id {
			p := prompts[i]
			return &p, nil
		}
	}
	return nil, apperror.NotFound("prompt", id)
}

// Add validates and creates a new prompt at the front of the collection.
// The id and both timestamps are assigned here; CreateTime == UpdateTime for
// a freshly created record.
func (s *PromptService) Add(ctx context.Context, title, content string, tags []string) (*model.Prompt, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if tags == nil {
		tags = []string{}
	}

	now := nowMillis()
	prompt := model.Prompt{
		ID:         xid.New().String(),
		Title:      title,
		Content:    content,
		Tags:       tags,
		CreateTime: now,
		UpdateTime: now,
	}

	prompts, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	// New prompts go to the front — stored order is most recent first.
	prompts = append([]model.Prompt{prompt}, prompts...)

	if err := s.saveAll(ctx, prompts); err != nil {
		s.logger.Error("failed to save new prompt",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("prompt created",
		slog.String("id", prompt.ID),
		slog.String("title", prompt.Title),
	)

	return &prompt, nil
}

// Update merges the patch over the existing record. ID and CreateTime are
// preserved, UpdateTime is refreshed. Returns ErrNotFound for an unknown id
// and ErrValidation when a supplied title/content is empty after trimming —
// in both cases the stored collection is left untouched.
func (s *PromptService) Update(ctx context.Context, id string, patch PromptPatch) (*model.Prompt, error) {
	prompts, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range prompts {
		if prompts[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, apperror.NotFound("prompt", id)
	}

	updated := prompts[idx]

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title cannot be empty")
		}
		updated.Title = title
	}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, apperror.ValidationFailed("content", "content cannot be empty")
		}
		updated.Content = content
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		updated.Tags = tags
	}

	updated.UpdateTime = nowMillis()
	prompts[idx] = updated

	if err := s.saveAll(ctx, prompts); err != nil {
		s.logger.Error("failed to save updated prompt",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("prompt updated",
		slog.String("id", updated.ID),
		slog.String("title", updated.Title),
	)

	return &updated, nil
}

// Delete removes a prompt. Returns ErrNotFound for an unknown id.
func (s *PromptService) Delete(ctx context.Context, id string) error {
	prompts, err := s.loadAll(ctx)
	if err != nil {
		return err
	}

	remaining := make([]model.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if p.ID != id {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == len(prompts) {
		return apperror.NotFound("prompt", id)
	}

	if err := s.saveAll(ctx, remaining); err != nil {
		s.logger.Error("failed to save collection after delete",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.Info("prompt deleted", slog.String("id", id))
	return nil
}

// Search returns prompts whose title or content contains the keyword,
// case-insensitively, preserving the collection order. An empty or
// whitespace-only keyword returns the full collection.
func (s *PromptService) Search(ctx context.Context, keyword string) ([]model.Prompt, error) {
	term := strings.ToLower(strings.TrimSpace(keyword))
	prompts, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if term == "" {
		return prompts, nil
	}

	matches := make([]model.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Content), term) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// FilterByTag returns prompts carrying the tag, preserving order. The tag
// "all" (or empty) means no filter.
func (s *PromptService) FilterByTag(ctx context.Context, tag string) ([]model.Prompt, error) {
	prompts, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" || tag == TagAll {
		return prompts, nil
	}

	matches := make([]model.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if slices.Contains(p.Tags, tag) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Stats summarises the collection: total prompts, distinct tags in use, and
// prompts created within the last seven days.
func (s *PromptService) Stats(ctx context.Context) (*model.DataStats, error) {
	prompts, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]struct{})
	recentSince := time.Now().Add(-recentWindow).UnixMilli()
	recent := 0
	for _, p := range prompts {
		for _, tag := range p.Tags {
			tags[tag] = struct{}{}
		}
		if p.CreateTime > recentSince {
			recent++
		}
	}

	return &model.DataStats{
		TotalPrompts:  len(prompts),
		TotalTags:     len(tags),
		RecentPrompts: recent,
	}, nil
}

// Overwrite replaces the whole collection in one atomic write. It is the
// import path's escape hatch around per-record validation: the transfer
// service has already decided exactly what the collection should contain.
func (s *PromptService) Overwrite(ctx context.Context, prompts []model.Prompt) error {
	if prompts == nil {
		prompts = []model.Prompt{}
	}
	return s.saveAll(ctx, prompts)
}
