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

package arguments

import (
	"github.com/spf13/cobra"
)

// Flags contains the flags selecting the controller.
// This is useful so all flags used by commands that need
// this information are consistent with each other.
type Flags struct {
	Bus     string
	Address uint16
}

// AddToCommand adds the flags used to set bus and address to the specified Command
func (f *Flags) AddToCommand(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Bus, "bus", "b", "", "I2C bus of the controller, e.g.: /dev/i2c-1, I2C1, sim (defaults to the config file)")
	cmd.Flags().Uint16VarP(&f.Address, "address", "a", 0, "I2C address of the controller, e.g.: 0x38, 0x20 (defaults to the config file)")
}
