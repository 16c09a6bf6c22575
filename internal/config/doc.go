// Package config manages the empirlink YAML configuration file.
//
// The file holds the controller connection settings, the local hardware
// config and schema paths, the metrics listen address and the log level.
// Command-line flags override every value.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/empirlink/config.yaml or $HOME/.config/empirlink/config.yaml
//   - macOS: $HOME/.config/empirlink/config.yaml
//   - Windows: %LOCALAPPDATA%\empirlink\config.yaml
//
// # Example
//
//	version: 1
//	controller:
//	  host: 192.168.1.1
//	  secure: false
//	  auto_reconnect: true
//	hardware_config: ./hardware-config.json
//	fetch_from_controller: false
//	metrics_addr: ":9464"
//	log_level: info
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	sess := session.New(cfg.SessionConfig())
//
// # Atomic Writes
//
// Save writes to a temporary file and renames it into place, so a crash
// never leaves a truncated config.
package config
