package config

import (
	"time"

	"github.com/muurk/empirlink/internal/session"
)

// CurrentVersion is the config file schema version.
const CurrentVersion = 1

// Config represents the entire user configuration file.
type Config struct {
	Version    int         `yaml:"version"`
	Controller *Controller `yaml:"controller,omitempty"`

	// HardwareConfig is a local hardware-config.json path
	HardwareConfig string `yaml:"hardware_config,omitempty"`
	// Schema is a local UI schema path
	Schema string `yaml:"schema,omitempty"`
	// FetchFromController loads hardware from the controller's web server
	FetchFromController bool `yaml:"fetch_from_controller"`

	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`

	// Known holds controllers seen by scan, keyed by mDNS instance name
	Known map[string]*KnownController `yaml:"known,omitempty"`
}

// Controller holds the connection settings.
type Controller struct {
	URL           string `yaml:"url,omitempty"`
	Host          string `yaml:"host,omitempty"`
	Secure        bool   `yaml:"secure"`
	AutoReconnect bool   `yaml:"auto_reconnect"`
}

// KnownController records a controller found on the network.
type KnownController struct {
	Host     string    `yaml:"host"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Controller: &Controller{
			AutoReconnect: true,
		},
		FetchFromController: true,
		Known:               make(map[string]*KnownController),
	}
}

// SessionConfig converts the controller settings to a session config.
func (c *Config) SessionConfig() session.Config {
	ctrl := c.Controller
	if ctrl == nil {
		ctrl = &Controller{AutoReconnect: true}
	}

	cfg := session.DefaultConfig(ctrl.Host)
	cfg.URL = ctrl.URL
	cfg.Secure = ctrl.Secure
	cfg.DisableAutoReconnect = !ctrl.AutoReconnect
	return cfg
}

// HasController reports whether a URL or host is configured.
func (c *Config) HasController() bool {
	return c.Controller != nil && (c.Controller.URL != "" || c.Controller.Host != "")
}

// RememberController records a scanned controller and its host.
func (c *Config) RememberController(name, host string) {
	if c.Known == nil {
		c.Known = make(map[string]*KnownController)
	}
	c.Known[name] = &KnownController{Host: host, LastSeen: time.Now()}
}
