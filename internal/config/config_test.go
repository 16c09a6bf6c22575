package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is Linux-only")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg", "empirlink") {
		t.Errorf("GetConfigDir() = %v", configDir)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("NewConfig().Version = %v, want 1", cfg.Version)
	}
	if cfg.Controller == nil || !cfg.Controller.AutoReconnect {
		t.Error("NewConfig() should enable auto reconnect")
	}
	if !cfg.FetchFromController {
		t.Error("NewConfig() should fetch hardware from the controller by default")
	}
	if cfg.HasController() {
		t.Error("NewConfig() should not have a controller address")
	}
}

func TestParse(t *testing.T) {
	doc := `
version: 1
controller:
  host: 192.168.1.1
  secure: true
hardware_config: ./hw.json
fetch_from_controller: false
metrics_addr: ":9464"
log_level: debug
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Controller.Host != "192.168.1.1" || !cfg.Controller.Secure {
		t.Errorf("Controller = %+v", cfg.Controller)
	}
	if !cfg.Controller.AutoReconnect {
		t.Error("auto_reconnect should keep its default when omitted")
	}
	if cfg.HardwareConfig != "./hw.json" || cfg.FetchFromController {
		t.Errorf("hardware settings = %q %v", cfg.HardwareConfig, cfg.FetchFromController)
	}
	if cfg.MetricsAddr != ":9464" || cfg.LogLevel != "debug" {
		t.Errorf("metrics/log = %q %q", cfg.MetricsAddr, cfg.LogLevel)
	}
	if !cfg.HasController() {
		t.Error("HasController() = false")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unsupported version", "version: 2\n", "unsupported config version"},
		{"malformed", "controller: [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Controller.Host = "10.0.0.5:8080"
	cfg.Controller.Secure = true
	cfg.Controller.AutoReconnect = false

	sc := cfg.SessionConfig()
	if sc.Host != "10.0.0.5:8080" || !sc.Secure || !sc.DisableAutoReconnect {
		t.Errorf("SessionConfig() = %+v", sc)
	}
	if sc.HandshakeTimeout == 0 {
		t.Error("SessionConfig() should carry the default handshake timeout")
	}

	cfg.Controller = nil
	if cfg.SessionConfig().DisableAutoReconnect {
		t.Error("SessionConfig() without controller should reconnect")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Controller.URL = "ws://192.168.1.1/ws"
	cfg.LogLevel = "warn"
	cfg.RememberController("EmpirBus MFD", "192.168.1.1")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Controller.URL != "ws://192.168.1.1/ws" || loaded.LogLevel != "warn" {
		t.Errorf("loaded = %+v", loaded)
	}
	known := loaded.Known["EmpirBus MFD"]
	if known == nil || known.Host != "192.168.1.1" || known.LastSeen.IsZero() {
		t.Errorf("Known = %+v", loaded.Known)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Version != CurrentVersion || cfg.Controller == nil {
		t.Errorf("Load() = %+v", cfg)
	}
}
