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
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tymphany/tps-drv/cli/arguments"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/cli/globals"
	"github.com/tymphany/tps-drv/config"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/simulator"
	"github.com/tymphany/tps-drv/transport"
)

// SimulatorBus is the bus name selecting the in-memory controller.
const SimulatorBus = "sim"

// Target merges the command line flags over the configuration.
func Target(flags arguments.Flags, cfg *config.Config) (string, uint16) {
	bus, addr := cfg.Bus, cfg.Address
	if flags.Bus != "" {
		bus = flags.Bus
	}
	if flags.Address != 0 {
		addr = flags.Address
	}
	return bus, addr
}

// Open opens the controller selected by flags and cfg.
func Open(flags arguments.Flags, cfg *config.Config) (transport.Bus, error) {
	bus, addr := Target(flags, cfg)
	if addr == 0 || addr > 0x7f {
		return nil, fmt.Errorf("invalid i2c address 0x%02x", addr)
	}
	logrus.Debugf("bus: %s, address: 0x%02x", bus, addr)
	if bus == SimulatorBus {
		logrus.Warn("Using the simulated controller, no hardware will be touched")
		return simulator.New(), nil
	}
	return transport.OpenI2C(bus, addr)
}

// OpenBus is like Open but exits on failure.
func OpenBus(flags arguments.Flags) transport.Bus {
	bus, err := Open(flags, globals.Config)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error opening the controller: %s", err), feedback.ErrBus)
	}
	return bus
}

// InstalledTag returns the tag of the image the controller is running.
func InstalledTag(bus transport.Bus) (string, error) {
	cu := &registers.CustomerUseReg{}
	if err := registers.Read(bus, cu); err != nil {
		return "", err
	}
	return cu.Tag(), nil
}
