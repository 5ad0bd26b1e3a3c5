package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	if cfg.Timezone != DefaultTimezone {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.ICS.Path != DefaultICSPath {
		t.Errorf("ics path = %q", cfg.ICS.Path)
	}
	if cfg.ShowMemo == nil || !*cfg.ShowMemo {
		t.Error("show_memo must default to true")
	}
	if cfg.ShowLinks == nil || !*cfg.ShowLinks {
		t.Error("show_links must default to true")
	}
	if cfg.MemoMaxLength == nil || *cfg.MemoMaxLength != DefaultMemoMaxLength {
		t.Errorf("memo_max_length = %v", cfg.MemoMaxLength)
	}
	if cfg.MessageDelayMs == nil || *cfg.MessageDelayMs != DefaultMessageDelayMs {
		t.Errorf("message_delay_ms = %v", cfg.MessageDelayMs)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	f := false
	zero := 0
	cfg := Config{
		Timezone:       "Asia/Seoul",
		ShowMemo:       &f,
		MemoMaxLength:  &zero, // explicit 0 disables truncation, not a default trigger
		MessageDelayMs: &zero,
	}
	cfg.Normalize()

	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if *cfg.ShowMemo {
		t.Error("explicit false must survive Normalize")
	}
	if *cfg.MemoMaxLength != 0 {
		t.Errorf("memo_max_length = %d, want explicit 0", *cfg.MemoMaxLength)
	}
	if *cfg.MessageDelayMs != 0 {
		t.Errorf("message_delay_ms = %d, want explicit 0", *cfg.MessageDelayMs)
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != DefaultTimezone {
		t.Errorf("timezone = %q", cfg.Timezone)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}

	// Loading again reads the file instead of rewriting it.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if again.Timezone != cfg.Timezone {
		t.Error("reload mismatch")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "timezone: Asia/Seoul\nics:\n  path: events.ics\nmemo_max_length: 80\nuse_broadcast: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Seoul" || cfg.ICS.Path != "events.ics" {
		t.Errorf("cfg = %+v", cfg)
	}
	if *cfg.MemoMaxLength != 80 {
		t.Errorf("memo_max_length = %d", *cfg.MemoMaxLength)
	}
	if !cfg.UseBroadcast {
		t.Error("use_broadcast not read")
	}
}

func TestApplyEnvOverlays(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token-abc")
	t.Setenv("LINE_TO", "user-1")
	t.Setenv("USE_BROADCAST", "yes")
	t.Setenv("MEMO_MAX_LENGTH", "90")
	t.Setenv("MESSAGE_DELAY_MS", "100")

	cfg := DefaultConfig()
	cfg.Normalize()
	cfg.ApplyEnv()

	if cfg.ChannelAccessToken != "token-abc" || cfg.To != "user-1" {
		t.Errorf("credentials not overlaid: %+v", cfg)
	}
	if !cfg.UseBroadcast {
		t.Error("USE_BROADCAST=yes must enable broadcast")
	}
	if *cfg.MemoMaxLength != 90 || *cfg.MessageDelayMs != 100 {
		t.Errorf("numeric overrides not applied: %d, %d", *cfg.MemoMaxLength, *cfg.MessageDelayMs)
	}
}

func TestApplyEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MEMO_MAX_LENGTH", "not-a-number")
	t.Setenv("MESSAGE_DELAY_MS", "-5")

	cfg := DefaultConfig()
	cfg.Normalize()
	cfg.ApplyEnv()

	if *cfg.MemoMaxLength != DefaultMemoMaxLength {
		t.Errorf("malformed override must fall back, got %d", *cfg.MemoMaxLength)
	}
	if *cfg.MessageDelayMs != DefaultMessageDelayMs {
		t.Errorf("negative delay must fall back, got %d", *cfg.MessageDelayMs)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Seoul"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Timezone != "Asia/Seoul" {
		t.Errorf("timezone = %q", loaded.Timezone)
	}
}
