package bridge_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"
	"i4.energy/across/serbridge/at"
	"i4.energy/across/serbridge/bridge"
	"i4.energy/across/serbridge/settings"
)

func newDispatcher(t *testing.T, rec settings.Record) (*bridge.Dispatcher, *bytes.Buffer, *settings.FileStore) {
	t.Helper()
	store, err := settings.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(settings.ConfigName, rec); err != nil {
		t.Fatalf("unexpected error from Save(): %v", err)
	}
	state, err := bridge.NewState(rec, 10, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error from NewState(): %v", err)
	}
	out := &bytes.Buffer{}
	return &bridge.Dispatcher{Out: out, State: state, Store: store}, out, store
}

func encoded(t *testing.T, r settings.Record) string {
	t.Helper()
	data, err := r.Encode()
	if err != nil {
		t.Fatalf("unexpected error from Encode(): %v", err)
	}
	return string(data)
}

func TestDispatcher(t *testing.T) {
	t.Run("Query echoes the live record", func(t *testing.T) {
		rec := settings.Defaults()
		d, out, _ := newDispatcher(t, rec)

		if err := d.Dispatch(at.Match{Command: at.CmdQueryConfig}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := "+++AT+CFG=" + encoded(t, rec) + "\r\nOK\r\n"
		if out.String() != expected {
			t.Errorf("expected %q, got %q", expected, out.String())
		}
	})

	t.Run("Query is idempotent", func(t *testing.T) {
		d, out, _ := newDispatcher(t, settings.Defaults())

		_ = d.Dispatch(at.Match{Command: at.CmdQueryConfig})
		first := out.String()
		out.Reset()
		_ = d.Dispatch(at.Match{Command: at.CmdQueryConfig})
		if out.String() != first {
			t.Errorf("expected identical responses, got %q and %q", first, out.String())
		}
	})

	t.Run("Save persists the failsafe record", func(t *testing.T) {
		rec := settings.Defaults()
		rec.BaudRate = 1200
		d, out, store := newDispatcher(t, rec)

		if err := d.Dispatch(at.Match{Command: at.CmdSaveFailsafe}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.Load(settings.FailsafeName)
		if err != nil {
			t.Fatalf("unexpected error from Load(): %v", err)
		}
		if got != rec {
			t.Errorf("expected failsafe %+v, got %+v", rec, got)
		}
		expected := encoded(t, rec) + "\r\nOK\r\n"
		if out.String() != expected {
			t.Errorf("expected %q, got %q", expected, out.String())
		}
	})

	t.Run("Sleep replies OK without a line break", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sleeper := bridge.NewMockSleeper(ctrl)
		sleeper.EXPECT().Sleep().Times(1)

		d, out, _ := newDispatcher(t, settings.Defaults())
		d.Sleeper = sleeper

		err := d.Dispatch(at.Match{Command: at.CmdSleep})
		if !errors.Is(err, bridge.ErrSleep) {
			t.Errorf("expected ErrSleep, got %v", err)
		}
		if out.String() != "OK" {
			t.Errorf("expected %q, got %q", "OK", out.String())
		}
	})

	t.Run("Set applies, persists and restarts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		restarter := bridge.NewMockRestarter(ctrl)
		restarter.EXPECT().Restart().Times(1)

		d, out, store := newDispatcher(t, settings.Defaults())
		d.Restarter = restarter

		err := d.Dispatch(at.Match{Command: at.CmdSetConfig, Payload: []byte(`{"sleep":10,"baud":2400}`)})
		if !errors.Is(err, bridge.ErrRestart) {
			t.Errorf("expected ErrRestart, got %v", err)
		}

		want := settings.Defaults()
		want.BaudRate = 2400
		want.SleepTimeout = settings.MinSleepTimeout
		if d.State.Record != want {
			t.Errorf("expected record %+v, got %+v", want, d.State.Record)
		}

		raw, _ := store.Raw(settings.ConfigName)
		expected := "OK\r\nOK\r\n" + string(raw) + "\r\nOK\r\n"
		if out.String() != expected {
			t.Errorf("expected %q, got %q", expected, out.String())
		}
	})

	t.Run("Set with malformed payload keeps the record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		restarter := bridge.NewMockRestarter(ctrl)
		restarter.EXPECT().Restart().Times(1)

		rec := settings.Defaults()
		d, out, _ := newDispatcher(t, rec)
		d.Restarter = restarter

		err := d.Dispatch(at.Match{Command: at.CmdSetConfig, Payload: []byte("garbage")})
		if !errors.Is(err, bridge.ErrRestart) {
			t.Errorf("expected ErrRestart, got %v", err)
		}
		if d.State.Record != rec {
			t.Errorf("expected record to be kept, got %+v", d.State.Record)
		}
		if !strings.HasPrefix(out.String(), "OK\r\nOK\r\n") {
			t.Errorf("expected two acknowledgements, got %q", out.String())
		}
	})

	t.Run("Query without a stored record", func(t *testing.T) {
		store, _ := settings.NewFileStore(t.TempDir())
		state, _ := bridge.NewState(settings.Defaults(), 10, nil, 0)
		out := &bytes.Buffer{}
		d := &bridge.Dispatcher{Out: out, State: state, Store: store}

		if err := d.Dispatch(at.Match{Command: at.CmdQueryConfig}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != "+++AT+CFG=OK\r\n" {
			t.Errorf("expected prefix and OK only, got %q", out.String())
		}
	})
}

func TestDispatcherCommandOrder(t *testing.T) {
	rec := settings.Defaults()
	d, out, _ := newDispatcher(t, rec)
	s := at.NewLineScanner(at.SubstringMatcher{}, d)

	if _, err := s.Scan([]byte("+++AT+CFG? +++AT+SAVE\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := encoded(t, rec)
	expected := body + "\r\nOK\r\n" + "+++AT+CFG=" + body + "\r\nOK\r\n"
	if out.String() != expected {
		t.Errorf("expected save before query:\n%q\ngot:\n%q", expected, out.String())
	}
}
