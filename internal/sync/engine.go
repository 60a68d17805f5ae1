package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/sakif/prompt-manager/internal/apperror"
	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/service"
)

// payloadVersion is the sync payload schema version written on push.
const payloadVersion = 1

// Engine drives the sync state machine (idle → syncing → ok/error) over a
// RemoteStore. All operations are explicit and user-triggered; the only
// automatic path is InitOnLoad, which never lets a failure escape.
//
// SINGLE-FLIGHT:
// The engine rejects a second operation while one is running (ErrConflict)
// instead of trusting every caller to serialize. Handlers may race — two
// browser tabs, a pull racing a push — and interleaving two full-dataset
// reconciliations would corrupt both.
type Engine struct {
	state    *StateStore
	remote   RemoteStore
	transfer *service.TransferService
	logger   *slog.Logger

	mu   stdsync.Mutex
	busy bool
}

func NewEngine(state *StateStore, remote RemoteStore, transfer *service.TransferService, logger *slog.Logger) *Engine {
	return &Engine{
		state:    state,
		remote:   remote,
		transfer: transfer,
		logger:   logger,
	}
}

func (e *Engine) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return apperror.SyncInProgress()
	}
	e.busy = true
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// credentials loads the token and state, enforcing what the operation needs.
func (e *Engine) credentials(ctx context.Context, needBinding bool) (string, model.SyncState, error) {
	token, err := e.state.Token(ctx)
	if err != nil {
		return "", model.SyncState{}, err
	}
	st, err := e.state.State(ctx)
	if err != nil {
		return "", model.SyncState{}, err
	}
	if token == "" {
		return "", model.SyncState{}, apperror.NotConfigured("configure an access token first")
	}
	if needBinding && st.GistID == "" {
		return "", model.SyncState{}, apperror.NotConfigured("configure an access token and gist id first")
	}
	return token, st, nil
}

// beginSyncing persists the syncing status before any network traffic, so a
// crash mid-call leaves a recoverable (and detectably stale) state behind.
func (e *Engine) beginSyncing(ctx context.Context) error {
	_, err := e.state.Update(ctx, func(st *model.SyncState) {
		st.Status = model.SyncSyncing
		st.LastError = ""
		st.SyncingSince = time.Now().UnixMilli()
	})
	return err
}

// fail records the failure into the persisted state and passes the error on.
func (e *Engine) fail(ctx context.Context, err error) error {
	if _, serr := e.state.Update(ctx, func(st *model.SyncState) {
		st.Status = model.SyncError
		st.LastError = err.Error()
		st.SyncingSince = 0
	}); serr != nil {
		e.logger.Error("failed to persist sync error state", slog.String("error", serr.Error()))
	}
	return err
}

func (e *Engine) buildPayload(ctx context.Context, deviceID string) (*model.SyncPayload, error) {
	doc, err := e.transfer.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("building sync payload: %w", err)
	}
	return &model.SyncPayload{
		Version:   payloadVersion,
		UpdatedAt: time.Now().UnixMilli(),
		DeviceID:  deviceID,
		Data:      doc,
	}, nil
}

// Pull fetches the remote document and applies it over the local dataset
// (remote overrides local). The fetch is conditional on the last known ETag;
// when the remote reports "not modified" no local mutation happens at all.
// Returns whether local data was updated.
func (e *Engine) Pull(ctx context.Context) (bool, error) {
	token, st, err := e.credentials(ctx, true)
	if err != nil {
		return false, err
	}
	if err := e.acquire(); err != nil {
		return false, err
	}
	defer e.release()

	if err := e.beginSyncing(ctx); err != nil {
		return false, err
	}

	doc, err := e.remote.Fetch(ctx, token, st.GistID, st.LastETag)
	if err != nil {
		return false, e.fail(ctx, err)
	}

	if doc.NotModified {
		if _, err := e.state.Update(ctx, func(st *model.SyncState) {
			st.Status = model.SyncOK
			st.LastSyncAt = time.Now().UnixMilli()
			st.SyncingSince = 0
		}); err != nil {
			return false, err
		}
		e.logger.Info("pull: remote unchanged")
		return false, nil
	}

	var payload model.SyncPayload
	if err := json.Unmarshal(doc.Body, &payload); err != nil {
		return false, e.fail(ctx, apperror.RemoteFailed(fmt.Sprintf("remote document is not valid JSON: %v", err)))
	}
	if payload.Data == nil {
		return false, e.fail(ctx, apperror.RemoteFailed("remote document has no data block"))
	}

	result := e.transfer.Import(ctx, payload.Data, false)
	if !result.Success {
		return false, e.fail(ctx, apperror.RemoteFailed(result.Message))
	}

	if _, err := e.state.Update(ctx, func(st *model.SyncState) {
		st.Status = model.SyncOK
		st.LastETag = doc.ETag
		st.LastSyncAt = time.Now().UnixMilli()
		st.SyncingSince = 0
	}); err != nil {
		return true, err
	}

	e.logger.Info("pull: local data replaced from remote",
		slog.Int("imported", result.Stats.Imported),
		slog.String("device", payload.DeviceID),
	)
	return true, nil
}

// Push replaces the full remote document with the current local dataset
// (local overrides remote) and records the fresh revision tag.
func (e *Engine) Push(ctx context.Context) error {
	token, st, err := e.credentials(ctx, true)
	if err != nil {
		return err
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	if err := e.beginSyncing(ctx); err != nil {
		return err
	}

	payload, err := e.buildPayload(ctx, st.DeviceID)
	if err != nil {
		return e.fail(ctx, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return e.fail(ctx, fmt.Errorf("encoding sync payload: %w", err))
	}

	etag, err := e.remote.Replace(ctx, token, st.GistID, body)
	if err != nil {
		return e.fail(ctx, err)
	}

	if _, err := e.state.Update(ctx, func(st *model.SyncState) {
		st.Status = model.SyncOK
		st.LastETag = etag
		st.LastSyncAt = time.Now().UnixMilli()
		st.SyncingSince = 0
	}); err != nil {
		return err
	}

	e.logger.Info("push: remote replaced with local data")
	return nil
}

// Bind creates a fresh private remote document seeded with the current local
// dataset, and records its id and initial revision tag as the bound target.
// Only the token is required — bind is how a binding comes to exist.
func (e *Engine) Bind(ctx context.Context) (string, error) {
	token, st, err := e.credentials(ctx, false)
	if err != nil {
		return "", err
	}
	if err := e.acquire(); err != nil {
		return "", err
	}
	defer e.release()

	if err := e.beginSyncing(ctx); err != nil {
		return "", err
	}

	payload, err := e.buildPayload(ctx, st.DeviceID)
	if err != nil {
		return "", e.fail(ctx, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", e.fail(ctx, fmt.Errorf("encoding sync payload: %w", err))
	}

	id, etag, err := e.remote.Create(ctx, token, body)
	if err != nil {
		return "", e.fail(ctx, err)
	}

	if _, err := e.state.Update(ctx, func(st *model.SyncState) {
		st.Status = model.SyncOK
		st.GistID = id
		st.LastETag = etag
		st.LastSyncAt = time.Now().UnixMilli()
		st.SyncingSince = 0
	}); err != nil {
		return id, err
	}

	e.logger.Info("bound to new remote document", slog.String("gistId", id))
	return id, nil
}

// ValidateBinding confirms the bound remote document is reachable with the
// stored credential. It mutates no local data — a conditional fetch is made
// purely for its status.
func (e *Engine) ValidateBinding(ctx context.Context) (bool, error) {
	token, st, err := e.credentials(ctx, true)
	if err != nil {
		return false, err
	}
	if _, err := e.remote.Fetch(ctx, token, st.GistID, st.LastETag); err != nil {
		return false, err
	}
	return true, nil
}

// InitOnLoad performs the best-effort startup pull: only when both a token
// and a binding are already configured, and never letting a failure escape —
// startup must not block on sync. Failures end up in the persisted state
// (status=error, lastError) where the UI can show them.
func (e *Engine) InitOnLoad(ctx context.Context) {
	token, err := e.state.Token(ctx)
	if err != nil {
		e.logger.Warn("startup sync skipped: cannot read token", slog.String("error", err.Error()))
		return
	}
	st, err := e.state.State(ctx)
	if err != nil {
		e.logger.Warn("startup sync skipped: cannot read sync state", slog.String("error", err.Error()))
		return
	}
	if token == "" || st.GistID == "" {
		e.logger.Debug("startup sync skipped: not configured")
		return
	}

	if _, err := e.Pull(ctx); err != nil {
		// Pull already persisted the error state; just don't propagate.
		e.logger.Warn("startup sync failed", slog.String("error", err.Error()))
		return
	}
	e.logger.Info("startup sync complete")
}
