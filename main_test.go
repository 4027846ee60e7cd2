package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"i4.energy/across/serbridge/settings"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "serbridge "+version+"\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigShowCmd(t *testing.T) {
	dir := t.TempDir()
	store, err := settings.NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	live := settings.Defaults()
	failsafe := settings.Defaults()
	failsafe.BaudRate = 600
	store.Save(settings.ConfigName, live)
	store.Save(settings.FailsafeName, failsafe)

	out, err := execute(t, "config", "show", "--data-dir", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"baud":9600`) {
		t.Errorf("expected the live record, got %q", out)
	}

	out, err = execute(t, "config", "show", "--failsafe", "--data-dir", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"baud":600`) {
		t.Errorf("expected the failsafe record, got %q", out)
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger(buf, &Config{LogLevel: "warn", LogFormat: "text"})
	logger.Info("hidden")
	logger.Warn("shown", "component", "bridge")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "component=bridge") {
		t.Errorf("expected a text record, got %q", out)
	}

	if !newLogger(buf, &Config{LogLevel: "debug"}).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}
}
