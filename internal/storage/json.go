package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sakif/prompt-manager/internal/apperror"
)

// GetJSON reads the value under key and unmarshals it into v.
//
// Three outcomes, kept distinct on purpose:
//   - missing key            → (false, nil); caller applies its defaults
//   - unreadable store       → (false, ErrPersistence)
//   - stored value not JSON  → (false, ErrDataFormat); caller decides whether
//     to fall back to defaults or surface the corruption
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return false, apperror.PersistenceFailed(fmt.Sprintf("reading %s", key), err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, apperror.BadDataFormat(fmt.Sprintf("stored value under %s is not valid JSON: %v", key, err))
	}
	return true, nil
}

// SetJSON marshals v and fully replaces the value under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperror.PersistenceFailed(fmt.Sprintf("encoding %s", key), err)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return apperror.PersistenceFailed(fmt.Sprintf("writing %s", key), err)
	}
	return nil
}
