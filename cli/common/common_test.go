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

package common

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tymphany/tps-drv/cli/arguments"
	"github.com/tymphany/tps-drv/config"
	"github.com/tymphany/tps-drv/simulator"
)

func TestTarget(t *testing.T) {
	cfg := config.Default()
	bus, addr := Target(arguments.Flags{}, cfg)
	require.Equal(t, "/dev/i2c-1", bus)
	require.EqualValues(t, 0x38, addr)

	bus, addr = Target(arguments.Flags{Bus: "I2C2", Address: 0x20}, cfg)
	require.Equal(t, "I2C2", bus)
	require.EqualValues(t, 0x20, addr)
}

func TestOpenSimulator(t *testing.T) {
	bus, err := Open(arguments.Flags{Bus: SimulatorBus}, config.Default())
	require.NoError(t, err)
	require.IsType(t, &simulator.Device{}, bus)

	tag, err := InstalledTag(bus)
	require.NoError(t, err)
	require.Equal(t, "0a", tag)
	require.NoError(t, bus.Close())

	_, err = Open(arguments.Flags{Bus: SimulatorBus, Address: 0x80}, config.Default())
	require.Error(t, err)
}
