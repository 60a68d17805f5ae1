package service

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/storage"
)

func newTestSettingsService(t *testing.T) (*SettingsService, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSettingsService(store, logger), store
}

func TestSettingsGet_DefaultsWhenUnset(t *testing.T) {
	svc, _ := newTestSettingsService(t)

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(settings, DefaultSettings()) {
		t.Errorf("Get() = %+v, want defaults %+v", settings, DefaultSettings())
	}
}

func TestSettingsGet_DefaultsWhenCorrupt(t *testing.T) {
	svc, store := newTestSettingsService(t)

	store.Set(context.Background(), storage.KeySettings, "not json at all")

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(settings, DefaultSettings()) {
		t.Errorf("Get() = %+v, want defaults for corrupt storage", settings)
	}
}

func TestSettingsSave_RoundTrip(t *testing.T) {
	svc, _ := newTestSettingsService(t)

	err := svc.Save(context.Background(), model.Settings{
		PresetTags: []string{"alpha", "beta"},
		Version:    SettingsVersion,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	settings, _ := svc.Get(context.Background())
	if !reflect.DeepEqual(settings.PresetTags, []string{"alpha", "beta"}) {
		t.Errorf("PresetTags = %v, want [alpha beta]", settings.PresetTags)
	}
}

func TestSettingsSave_NormalizesTags(t *testing.T) {
	svc, _ := newTestSettingsService(t)

	// Empty entries are dropped, duplicates keep the first occurrence.
	err := svc.Save(context.Background(), model.Settings{
		PresetTags: []string{"work", "", "  ", "coding", "work"},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tags, _ := svc.GetPresetTags(context.Background())
	if !reflect.DeepEqual(tags, []string{"work", "coding"}) {
		t.Errorf("PresetTags = %v, want [work coding]", tags)
	}
}

func TestSettingsSave_NilTagsRestoresDefaults(t *testing.T) {
	svc, _ := newTestSettingsService(t)

	svc.Save(context.Background(), model.Settings{PresetTags: []string{"only"}})
	svc.Save(context.Background(), model.Settings{PresetTags: nil})

	tags, _ := svc.GetPresetTags(context.Background())
	if !reflect.DeepEqual(tags, DefaultSettings().PresetTags) {
		t.Errorf("PresetTags = %v, want defaults after nil save", tags)
	}
}

func TestUpdatePresetTags_EmptyIsDeliberate(t *testing.T) {
	svc, _ := newTestSettingsService(t)

	// Clearing the vocabulary is valid and must not fall back to defaults.
	if err := svc.UpdatePresetTags(context.Background(), []string{}); err != nil {
		t.Fatalf("UpdatePresetTags() error = %v", err)
	}

	tags, _ := svc.GetPresetTags(context.Background())
	if tags == nil {
		t.Fatal("PresetTags should be an empty slice, not nil")
	}
	if len(tags) != 0 {
		t.Errorf("PresetTags = %v, want empty", tags)
	}
}

func TestSettingsReset(t *testing.T) {
	svc, _ := newTestSettingsService(t)

	svc.UpdatePresetTags(context.Background(), []string{"custom"})
	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	settings, _ := svc.Get(context.Background())
	if !reflect.DeepEqual(settings, DefaultSettings()) {
		t.Errorf("after Reset: %+v, want defaults", settings)
	}
}
