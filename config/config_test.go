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

package config

import (
	"testing"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(paths.New("testdata", "missing.yaml"), false)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.EqualValues(t, 0x38, cfg.Address)
	require.Equal(t, 10*time.Millisecond, cfg.Timing.PollInterval)
	require.Equal(t, 50, cfg.Timing.PollAttempts)
	require.Equal(t, 100*time.Millisecond, cfg.Timing.ChunkDelay)
	require.Equal(t, 3*time.Second, cfg.Timing.PortSettle)
	require.Equal(t, time.Second, cfg.Timing.ResetWait)
	require.NoError(t, cfg.Validate())

	_, err = Load(paths.New("testdata", "missing.yaml"), true)
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	cfg, err := Load(paths.New("testdata", "tps-ota.yaml"), true)
	require.NoError(t, err)
	require.Equal(t, "/dev/i2c-3", cfg.Bus)
	require.EqualValues(t, 0x20, cfg.Address)
	require.Equal(t, "/mnt/ota", cfg.ImageDir)
	require.Equal(t, "/var/lib/node_exporter/tps.prom", cfg.MetricsFile)
	// untouched keys keep their default
	require.Equal(t, "/data/tps65987-log.txt", cfg.LogFile)
	require.Equal(t, 100*time.Millisecond, cfg.Timing.ChunkDelay)

	fc := cfg.FlasherConfig()
	require.Equal(t, 5*time.Millisecond, fc.PollInterval)
	require.Equal(t, 100, fc.PollAttempts)
	require.Equal(t, 2*time.Second, fc.PortSettle)
	require.Len(t, cfg.EngineOptions(), 2)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(paths.New("testdata", "bad-address.yaml"), true)
	require.Error(t, err)
}
