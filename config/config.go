/*
	tps-drv
	Copyright (c) 2024 Tymphany.  All right reserved.

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config loads the optional YAML configuration of tps-ota.
package config

import (
	"fmt"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"github.com/tymphany/tps-drv/command"
	"github.com/tymphany/tps-drv/flasher"
	"github.com/tymphany/tps-drv/transport"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when --config is not given. A missing file is fine.
const DefaultPath = "/etc/tps-ota.yaml"

// Config is the content of the configuration file.
type Config struct {
	// Bus is the I2C adapter ("1", "I2C1", "/dev/i2c-1") or "sim".
	Bus         string `yaml:"bus"`
	Address     uint16 `yaml:"address"`
	ImageDir    string `yaml:"image_dir"`
	DownloadDir string `yaml:"download_dir"`
	LogFile     string `yaml:"log_file"`
	MetricsFile string `yaml:"metrics_file"`
	Timing      Timing `yaml:"timing"`
}

// Timing overrides the controller timings.
type Timing struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
	ChunkDelay   time.Duration `yaml:"chunk_delay"`
	PortSettle   time.Duration `yaml:"port_settle"`
	ResetWait    time.Duration `yaml:"reset_wait"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	t := flasher.DefaultConfig()
	return &Config{
		Bus:         "/dev/i2c-1",
		Address:     transport.DefaultAddress,
		ImageDir:    "/data/ota-file",
		DownloadDir: "/tmp/tps-ota",
		LogFile:     "/data/tps65987-log.txt",
		Timing: Timing{
			PollInterval: t.PollInterval,
			PollAttempts: t.PollAttempts,
			ChunkDelay:   t.ChunkDelay,
			PortSettle:   t.PortSettle,
			ResetWait:    t.ResetWait,
		},
	}
}

// Load reads file on top of the defaults. When mustExist is false a missing
// file yields the defaults.
func Load(file *paths.Path, mustExist bool) (*Config, error) {
	cfg := Default()
	if file == nil || !file.Exist() {
		if mustExist {
			return nil, fmt.Errorf("config file %s not found", file)
		}
		logrus.Debugf("No config file, using defaults")
		return cfg, nil
	}
	data, err := file.ReadFile()
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", file, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.Infof("Using config file %s", file)
	return cfg, nil
}

// Validate rejects values the controller cannot work with.
func (c *Config) Validate() error {
	if c.Address == 0 || c.Address > 0x7f {
		return fmt.Errorf("invalid i2c address 0x%02x", c.Address)
	}
	if c.Timing.PollAttempts <= 0 {
		return fmt.Errorf("poll_attempts must be positive")
	}
	if c.Timing.PollInterval < 0 || c.Timing.ChunkDelay < 0 || c.Timing.PortSettle < 0 || c.Timing.ResetWait < 0 {
		return fmt.Errorf("timings must not be negative")
	}
	return nil
}

// FlasherConfig converts the timing section for the flasher.
func (c *Config) FlasherConfig() flasher.Config {
	return flasher.Config{
		PollInterval: c.Timing.PollInterval,
		PollAttempts: c.Timing.PollAttempts,
		ChunkDelay:   c.Timing.ChunkDelay,
		PortSettle:   c.Timing.PortSettle,
		ResetWait:    c.Timing.ResetWait,
	}
}

// EngineOptions returns the command engine options matching the timings.
func (c *Config) EngineOptions() []command.Option {
	return []command.Option{
		command.WithPollInterval(c.Timing.PollInterval),
		command.WithPollAttempts(c.Timing.PollAttempts),
	}
}
