package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mark", "config.yaml")

	if err := Init(cfgPath, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(cfgPath, false); err == nil {
		t.Error("expected error on duplicate init")
	}

	if err := Init(cfgPath, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoadCreatesMissingConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mark", "config.yaml")

	s, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ConfigPath != cfgPath {
		t.Errorf("expected ConfigPath=%s, got %s", cfgPath, s.ConfigPath)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Error("expected Load to write a default config")
	}
	if s.Config.DataDir != DefaultDataDir {
		t.Errorf("expected default data_dir, got %s", s.Config.DataDir)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(cfgPath, []byte("version: \"1\"\ndata_dir: /tmp/bm\ncolors:\n  url: red\n"), 0644)

	s, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.DataDir != "/tmp/bm" {
		t.Errorf("data_dir = %s, want /tmp/bm", s.Config.DataDir)
	}
	if s.Config.Colors.URL != "red" {
		t.Errorf("colors.url = %s, want red", s.Config.Colors.URL)
	}
	if s.Config.Colors.Tags != "cyan" {
		t.Errorf("expected default colors.tags cyan, got %s", s.Config.Colors.Tags)
	}
	if s.Config.Fetch.TimeoutSeconds != 5 {
		t.Errorf("expected default fetch timeout 5, got %d", s.Config.Fetch.TimeoutSeconds)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(cfgPath, []byte("data_dir: [unclosed\n"), 0644)

	if _, err := Load(cfgPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("MARK_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
	if got := DefaultConfigPath(); got != filepath.Join("/custom/path", "config.yaml") {
		t.Errorf("DefaultConfigPath() = %s", got)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("MARK_TEST_DIR", "/srv/marks")

	cases := []struct {
		in, want string
	}{
		{"$HOME/.local/share/mark", "/home/tester/.local/share/mark"},
		{"~/bookmarks", "/home/tester/bookmarks"},
		{"$MARK_TEST_DIR", "/srv/marks"},
		{"/abs/path", "/abs/path"},
	}
	for _, tc := range cases {
		if got := ExpandPath(tc.in); got != tc.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSetConfigValue(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	s, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetConfigValue("browser.command", "firefox --new-tab %u"); err != nil {
		t.Fatalf("SetConfigValue failed: %v", err)
	}
	if err := s.SetConfigValue("colors.disable", "true"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigValue("fetch.timeout_seconds", "0"); err == nil {
		t.Error("expected error for non-positive timeout")
	}
	if err := s.SetConfigValue("log.level", "loud"); err == nil {
		t.Error("expected error for unknown log level")
	}
	err = s.SetConfigValue("nope", "x")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("expected unknown key error, got %v", err)
	}

	reloaded, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Config.Browser.Command != "firefox --new-tab %u" {
		t.Errorf("browser.command not persisted: %q", reloaded.Config.Browser.Command)
	}
	if !reloaded.Config.Colors.Disable {
		t.Error("colors.disable not persisted")
	}
}

func TestVerifyDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	s := &Store{Config: Config{DataDir: dataDir}}

	if err := s.VerifyDataDir(); err != nil {
		t.Fatalf("VerifyDataDir failed: %v", err)
	}
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		t.Fatal("expected data dir to be created")
	}
	if s.ArchiveDir() != filepath.Join(dataDir, "archive") {
		t.Errorf("ArchiveDir() = %s", s.ArchiveDir())
	}

	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, nil, 0644)
	s.Config.DataDir = file
	if err := s.VerifyDataDir(); err == nil {
		t.Error("expected error when data dir is a file")
	}
}

func TestCheckHealthAndFix(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	dataDir := filepath.Join(tmp, "data")
	os.WriteFile(cfgPath, []byte("data_dir: "+dataDir+"\n"), 0644)

	issues := CheckHealth(cfgPath)
	if len(issues) == 0 {
		t.Fatal("expected an issue for the missing data dir")
	}

	fixed := FixIssues(cfgPath)
	if len(fixed) != 1 {
		t.Fatalf("expected one fix, got %v", fixed)
	}
	if issues := CheckHealth(cfgPath); len(issues) != 0 {
		t.Errorf("expected no issues after fix, got %v", issues)
	}
}

func TestCheckHealthBrowserPlaceholder(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	os.WriteFile(cfgPath, []byte("data_dir: "+tmp+"\nbrowser:\n  command: firefox\n"), 0644)

	issues := CheckHealth(cfgPath)
	if len(issues) != 1 || issues[0].Severity != "warning" {
		t.Errorf("expected one placeholder warning, got %v", issues)
	}
}
