package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/prompt-manager/internal/model"
)

// ExportVersion is the export document version consumers must accept.
const ExportVersion = "1.0.0"

// ImportStats tallies the outcome of an import, record by record.
type ImportStats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// ImportResult is the structured outcome of an import. Import reports
// failures through Success=false rather than an error return: per-record
// problems are part of the normal outcome, not exceptional conditions.
type ImportResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Stats   ImportStats `json:"stats"`
}

// ValidationResult is the outcome of a structural document check.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// TransferService builds and applies portable snapshots of the full dataset.
// It serves two callers: the backup/restore endpoints, and the sync engine,
// which materializes the dataset for push and applies remote snapshots on
// pull (pull is Import with merge=false — remote overrides local).
type TransferService struct {
	prompts  *PromptService
	settings *SettingsService
	logger   *slog.Logger
}

func NewTransferService(prompts *PromptService, settings *SettingsService, logger *slog.Logger) *TransferService {
	return &TransferService{
		prompts:  prompts,
		settings: settings,
		logger:   logger,
	}
}

// Export builds an ExportDocument from the current prompts and settings,
// stamped with the current time. Prompt tags are normalized to a non-nil
// array so the document shape is stable for external consumers.
func (s *TransferService) Export(ctx context.Context) (*model.ExportDocument, error) {
	prompts, err := s.prompts.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	for i := range prompts {
		if prompts[i].Tags == nil {
			prompts[i].Tags = []string{}
		}
	}

	return &model.ExportDocument{
		Prompts:    prompts,
		Settings:   &settings,
		ExportTime: nowMillis(),
		Version:    ExportVersion,
	}, nil
}

// Validate performs a structural check on an import document without
// mutating anything: it must carry a non-empty prompt sequence, and every
// entry needs a title and content.
func (s *TransferService) Validate(doc *model.ExportDocument) ValidationResult {
	if doc == nil {
		return ValidationResult{Valid: false, Message: "invalid document"}
	}
	if doc.Prompts == nil {
		return ValidationResult{Valid: false, Message: "document has no prompts"}
	}
	if len(doc.Prompts) == 0 {
		return ValidationResult{Valid: false, Message: "no prompts to import"}
	}

	invalid := 0
	for _, p := range doc.Prompts {
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
			invalid++
		}
	}
	if invalid > 0 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("%d prompts are missing a title or content", invalid),
		}
	}

	return ValidationResult{Valid: true, Message: "document is valid"}
}

// Import applies a document to the local dataset.
//
// With merge=false the working collection starts empty (the document replaces
// local data); with merge=true it starts as the current collection and the
// import only ever adds. Per record:
//   - missing title or content        → counted as an error, record dropped
//   - id or title already in the set  → counted as a duplicate, skipped
//   - otherwise accepted: tags are filtered down to the *current* preset
//     vocabulary (unknown tags dropped silently), a fresh id is assigned when
//     none was supplied, CreateTime is preserved (defaulting to now) and
//     UpdateTime is always now
//
// Accepted records are inserted at the front one by one, so within a single
// import they end up in reverse arrival order — the same order a sequence of
// manual adds would produce.
//
// The working collection is persisted in one atomic write at the end. If that
// write fails the whole import fails and the stats are zeroed, even though
// per-record decisions were already made: the contract is all-or-nothing, and
// partial tallies for a dataset that never landed would be misleading.
//
// With merge=false, a settings block in the document replaces the local
// settings wholesale (normalized by the settings service on save).
func (s *TransferService) Import(ctx context.Context, doc *model.ExportDocument, merge bool) ImportResult {
	if doc == nil {
		return ImportResult{Success: false, Message: "invalid document"}
	}

	var stats ImportStats

	if doc.Prompts != nil {
		working := []model.Prompt{}
		if merge {
			existing, err := s.prompts.GetAll(ctx)
			if err != nil {
				return ImportResult{Success: false, Message: err.Error()}
			}
			working = existing
		}

		presetTags, err := s.settings.GetPresetTags(ctx)
		if err != nil {
			return ImportResult{Success: false, Message: err.Error()}
		}

		existingIDs := make(map[string]struct{}, len(working))
		for _, p := range working {
			existingIDs[p.ID] = struct{}{}
		}
		titles := make(map[string]struct{}, len(working))
		for _, p := range working {
			titles[p.Title] = struct{}{}
		}

		for _, in := range doc.Prompts {
			title := strings.TrimSpace(in.Title)
			content := strings.TrimSpace(in.Content)
			if title == "" || content == "" {
				stats.Errors++
				continue
			}

			if _, dup := existingIDs[in.ID]; dup && in.ID != "" {
				stats.Skipped++
				continue
			}
			if _, dup := titles[title]; dup {
				stats.Skipped++
				continue
			}

			tags := make([]string, 0, len(in.Tags))
			for _, tag := range in.Tags {
				if slices.Contains(presetTags, tag) {
					tags = append(tags, tag)
				}
			}

			id := in.ID
			if id == "" {
				id = xid.New().String()
			}
			createTime := in.CreateTime
			if createTime == 0 {
				createTime = nowMillis()
			}

			prompt := model.Prompt{
				ID:         id,
				Title:      title,
				Content:    content,
				Tags:       tags,
				CreateTime: createTime,
				UpdateTime: nowMillis(),
			}

			working = append([]model.Prompt{prompt}, working...)
			titles[title] = struct{}{}
			stats.Imported++
		}

		if err := s.prompts.Overwrite(ctx, working); err != nil {
			s.logger.Error("failed to persist imported prompts", slog.String("error", err.Error()))
			// All-or-nothing: nothing landed, so nothing is reported as imported.
			return ImportResult{Success: false, Message: err.Error()}
		}
	}

	if !merge && doc.Settings != nil {
		if err := s.settings.Save(ctx, *doc.Settings); err != nil {
			// The prompt collection already landed; a failed settings write
			// doesn't undo the import, it just keeps the old vocabulary.
			s.logger.Warn("failed to apply imported settings", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("import finished",
		slog.Bool("merge", merge),
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
	)

	return ImportResult{
		Success: true,
		Message: fmt.Sprintf("import complete: %d imported, %d skipped, %d errors", stats.Imported, stats.Skipped, stats.Errors),
		Stats:   stats,
	}
}
