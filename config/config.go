// Package config loads the declarative acceptor/connector/framework
// settings a knet-go process starts from: a single YAML document rather
// than a sequence of setter calls.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBacklog           = 100
	defaultMaxSendListCount  = 128
	defaultMaxRecvBufferLen  = 16 * 1024
	defaultWorkerTimerFreqMs = 1000
	defaultWorkerTimerSlot   = 512
	defaultWorkerThreadCount = 1
)

// AcceptorConfig describes one listening endpoint a Framework should bring
// up.
type AcceptorConfig struct {
	Name                string        `yaml:"name"`
	IP                  string        `yaml:"ip"`
	Port                int           `yaml:"port"`
	Backlog             int           `yaml:"backlog"`
	IdleTimeout         time.Duration `yaml:"idle_timeout"`
	MaxSendListCount    int           `yaml:"max_send_list_count"`
	MaxRecvBufferLength int           `yaml:"max_recv_buffer_length"`
}

// ConnectorConfig describes one outbound endpoint a Framework should dial.
type ConnectorConfig struct {
	Name                string        `yaml:"name"`
	IP                  string        `yaml:"ip"`
	Port                int           `yaml:"port"`
	IdleTimeout         time.Duration `yaml:"idle_timeout"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	MaxSendListCount    int           `yaml:"max_send_list_count"`
	MaxRecvBufferLength int           `yaml:"max_recv_buffer_length"`
	AutoReconnect       bool          `yaml:"auto_reconnect"`
}

// BalanceConfig toggles inbound/outbound load distribution across a
// Framework's loops.
type BalanceConfig struct {
	In  bool `yaml:"in"`
	Out bool `yaml:"out"`
}

// LoggingConfig mirrors internal/klog.Options in YAML-addressable form.
type LoggingConfig struct {
	Path    string `yaml:"path"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    bool   `yaml:"file"`
	Flush   bool   `yaml:"flush"`
}

// FrameworkConfig is the top-level document a knet-go process loads at
// startup.
type FrameworkConfig struct {
	WorkerThreadCount int               `yaml:"worker_thread_count"`
	WorkerTimerFreqMs int               `yaml:"worker_timer_freq_ms"`
	WorkerTimerSlot   int               `yaml:"worker_timer_slot"`
	Balance           BalanceConfig     `yaml:"balance"`
	Logging           LoggingConfig     `yaml:"logging"`
	Acceptors         []AcceptorConfig  `yaml:"acceptors"`
	Connectors        []ConnectorConfig `yaml:"connectors"`
}

// Load reads and validates a FrameworkConfig from a YAML file, coercing
// zero-valued fields to their defaults (see applyDefaults).
func Load(path string) (*FrameworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading framework config: %w", err)
	}
	var cfg FrameworkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing framework config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating framework config: %w", err)
	}
	return &cfg, nil
}

func (c *FrameworkConfig) applyDefaults() {
	if c.WorkerThreadCount <= 0 {
		c.WorkerThreadCount = defaultWorkerThreadCount
	}
	if c.WorkerTimerFreqMs <= 0 {
		c.WorkerTimerFreqMs = defaultWorkerTimerFreqMs
	}
	if c.WorkerTimerSlot <= 0 {
		c.WorkerTimerSlot = defaultWorkerTimerSlot
	}
	for i := range c.Acceptors {
		a := &c.Acceptors[i]
		if a.IP == "" {
			a.IP = "0.0.0.0"
		}
		if a.Backlog <= 0 {
			a.Backlog = defaultBacklog
		}
		if a.MaxSendListCount <= 0 {
			a.MaxSendListCount = defaultMaxSendListCount
		}
		if a.MaxRecvBufferLength <= 0 {
			a.MaxRecvBufferLength = defaultMaxRecvBufferLen
		}
	}
	for i := range c.Connectors {
		cc := &c.Connectors[i]
		if cc.IP == "" {
			cc.IP = "127.0.0.1"
		}
		if cc.MaxSendListCount <= 0 {
			cc.MaxSendListCount = defaultMaxSendListCount
		}
		if cc.MaxRecvBufferLength <= 0 {
			cc.MaxRecvBufferLength = defaultMaxRecvBufferLen
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !c.Logging.Console && !c.Logging.File {
		c.Logging.Console = true
	}
}

func (c *FrameworkConfig) validate() error {
	for i, a := range c.Acceptors {
		if a.Port == 0 {
			return fmt.Errorf("acceptors[%d] (%s): port is required", i, a.Name)
		}
	}
	for i, cc := range c.Connectors {
		if cc.Port == 0 {
			return fmt.Errorf("connectors[%d] (%s): port is required", i, cc.Name)
		}
	}
	return nil
}
