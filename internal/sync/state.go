package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/prompt-manager/internal/apperror"
	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/storage"
)

// stalenessWindow bounds how long a persisted "syncing" status is trusted.
// A crash mid-sync leaves "syncing" behind with nobody to clear it; on the
// next read, anything older than this window is demoted to an error state.
const stalenessWindow = 10 * time.Minute

// StateStore persists the local sync bookkeeping and the access token.
//
// The token lives under its own storage key, separate from the state
// document, so that state can be inspected, exported or logged without ever
// touching the credential.
type StateStore struct {
	store  storage.Store
	logger *slog.Logger
}

func NewStateStore(store storage.Store, logger *slog.Logger) *StateStore {
	return &StateStore{
		store:  store,
		logger: logger,
	}
}

// State returns the persisted sync state with defaults applied: status idle
// before any sync has run, and a device id generated (and persisted) on
// first read. Stale "syncing" leftovers from a crashed run are demoted to
// error here.
func (s *StateStore) State(ctx context.Context) (model.SyncState, error) {
	var st model.SyncState
	_, err := storage.GetJSON(ctx, s.store, storage.KeySyncState, &st)
	if err != nil {
		if !errors.Is(err, apperror.ErrDataFormat) {
			return model.SyncState{}, err
		}
		s.logger.Warn("stored sync state is corrupt, starting fresh",
			slog.String("error", err.Error()),
		)
		st = model.SyncState{}
	}

	changed := false
	if st.Status == "" {
		st.Status = model.SyncIdle
	}
	if st.DeviceID == "" {
		st.DeviceID = uuid.NewString()
		changed = true
	}
	if st.Status == model.SyncSyncing && st.SyncingSince > 0 &&
		time.Since(time.UnixMilli(st.SyncingSince)) > stalenessWindow {
		st.Status = model.SyncError
		st.LastError = "sync interrupted"
		st.SyncingSince = 0
		changed = true
		s.logger.Warn("stale syncing state detected, marking as error")
	}

	if changed {
		if err := s.Save(ctx, st); err != nil {
			// The derived state is still usable; only its persistence failed.
			s.logger.Warn("failed to persist sync state defaults", slog.String("error", err.Error()))
		}
	}
	return st, nil
}

// Save persists the sync state wholesale.
func (s *StateStore) Save(ctx context.Context, st model.SyncState) error {
	return storage.SetJSON(ctx, s.store, storage.KeySyncState, st)
}

// Update applies fn to the current state and persists the result.
func (s *StateStore) Update(ctx context.Context, fn func(*model.SyncState)) (model.SyncState, error) {
	st, err := s.State(ctx)
	if err != nil {
		return model.SyncState{}, err
	}
	fn(&st)
	if err := s.Save(ctx, st); err != nil {
		return model.SyncState{}, err
	}
	return st, nil
}

// Token returns the stored access token, or "" when none is configured.
// Values are stored JSON-encoded; a bare legacy value is accepted as-is.
func (s *StateStore) Token(ctx context.Context) (string, error) {
	raw, found, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		return "", apperror.PersistenceFailed("reading access token", err)
	}
	if !found {
		return "", nil
	}
	var token string
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return raw, nil
	}
	return token, nil
}

// SetToken stores the access token; an empty token removes the stored
// credential entirely.
func (s *StateStore) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		if err := s.store.Delete(ctx, storage.KeyToken); err != nil {
			return apperror.PersistenceFailed("removing access token", err)
		}
		s.logger.Info("access token cleared")
		return nil
	}
	if err := storage.SetJSON(ctx, s.store, storage.KeyToken, token); err != nil {
		return err
	}
	s.logger.Info("access token updated")
	return nil
}

// SetGistID records the bound remote document id.
func (s *StateStore) SetGistID(ctx context.Context, id string) error {
	_, err := s.Update(ctx, func(st *model.SyncState) {
		st.GistID = strings.TrimSpace(id)
	})
	return err
}
