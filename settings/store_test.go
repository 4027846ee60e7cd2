package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"
	"i4.energy/across/serbridge/settings"
)

func TestFileStore(t *testing.T) {
	t.Run("Save then load", func(t *testing.T) {
		store, err := settings.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		r := settings.Defaults()
		r.BaudRate = 2400
		if err := store.Save(settings.ConfigName, r); err != nil {
			t.Fatalf("unexpected error from Save(): %v", err)
		}

		got, err := store.Load(settings.ConfigName)
		if err != nil {
			t.Fatalf("unexpected error from Load(): %v", err)
		}
		if got != r {
			t.Errorf("expected %+v, got %+v", r, got)
		}
	})

	t.Run("Raw returns the stored text", func(t *testing.T) {
		store, _ := settings.NewFileStore(t.TempDir())
		r := settings.Defaults()
		_ = store.Save(settings.FailsafeName, r)

		raw, err := store.Raw(settings.FailsafeName)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected, _ := r.Encode()
		if string(raw) != string(expected) {
			t.Errorf("expected %s, got %s", expected, raw)
		}
	})

	t.Run("Missing record is unreadable", func(t *testing.T) {
		store, _ := settings.NewFileStore(t.TempDir())
		if _, err := store.Load(settings.ConfigName); !errors.Is(err, settings.ErrUnreadable) {
			t.Errorf("expected ErrUnreadable, got %v", err)
		}
	})

	t.Run("Stored fields default when missing and sleep is floored", func(t *testing.T) {
		dir := t.TempDir()
		store, _ := settings.NewFileStore(dir)
		if err := os.WriteFile(filepath.Join(dir, settings.ConfigName), []byte(`{"baud":1200,"sleep":40}`), 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := store.Load(settings.ConfigName)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.BaudRate != 1200 {
			t.Errorf("expected baud 1200, got %d", got.BaudRate)
		}
		if got.Port != settings.DefaultPort || got.SSID != settings.DefaultSSID {
			t.Errorf("expected defaults for missing fields, got %+v", got)
		}
		if got.SleepTimeout != settings.MinStoredSleepTimeout {
			t.Errorf("expected sleep %d, got %d", settings.MinStoredSleepTimeout, got.SleepTimeout)
		}
	})

	t.Run("Empty directory rejected", func(t *testing.T) {
		if _, err := settings.NewFileStore(""); err == nil {
			t.Error("expected error for empty directory")
		}
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("Falls back to defaults and persists them", func(t *testing.T) {
		dir := t.TempDir()
		store, _ := settings.NewFileStore(dir)
		if err := os.WriteFile(filepath.Join(dir, settings.ConfigName), []byte("garbage"), 0o644); err != nil {
			t.Fatal(err)
		}

		r, fellBack, err := settings.LoadOrDefault(store, settings.ConfigName)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !fellBack {
			t.Error("expected fallback to defaults")
		}
		if r != settings.Defaults() {
			t.Errorf("expected defaults, got %+v", r)
		}

		stored, err := store.Load(settings.ConfigName)
		if err != nil || stored != settings.Defaults() {
			t.Errorf("expected defaults to be persisted, got %+v, %v", stored, err)
		}
	})

	t.Run("Failsafe fallback persists as the live record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := settings.NewMockStore(ctrl)
		gomock.InOrder(
			store.EXPECT().Load(settings.FailsafeName).Return(settings.Record{}, settings.ErrUnreadable),
			store.EXPECT().Save(settings.ConfigName, settings.Defaults()).Return(nil),
		)

		_, fellBack, err := settings.LoadOrDefault(store, settings.FailsafeName)
		if err != nil || !fellBack {
			t.Errorf("expected silent fallback, got fellBack=%v err=%v", fellBack, err)
		}
	})

	t.Run("Reports a failure to persist defaults", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		diskFull := errors.New("disk full")
		store := settings.NewMockStore(ctrl)
		store.EXPECT().Load(settings.ConfigName).Return(settings.Record{}, settings.ErrUnreadable)
		store.EXPECT().Save(settings.ConfigName, gomock.Any()).Return(diskFull)

		r, fellBack, err := settings.LoadOrDefault(store, settings.ConfigName)
		if !errors.Is(err, diskFull) {
			t.Errorf("expected disk full error, got %v", err)
		}
		if !fellBack || r != settings.Defaults() {
			t.Errorf("expected defaults, got %+v", r)
		}
	})

	t.Run("Stored record is returned as is", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		stored := settings.Defaults()
		stored.Port = 8023
		store := settings.NewMockStore(ctrl)
		store.EXPECT().Load(settings.ConfigName).Return(stored, nil)

		r, fellBack, err := settings.LoadOrDefault(store, settings.ConfigName)
		if err != nil || fellBack || r != stored {
			t.Errorf("unexpected result %+v, %v, %v", r, fellBack, err)
		}
	})
}
