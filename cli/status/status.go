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

package status

import (
	"fmt"
	"os"

	"github.com/arduino/arduino-cli/table"
	"github.com/spf13/cobra"
	"github.com/tymphany/tps-drv/cli/arguments"
	"github.com/tymphany/tps-drv/cli/common"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/status"
)

var commonFlags arguments.Flags

// NewCommand created a new `status` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "status",
		Short:   "Shows the state of the USB-C port.",
		Long:    "Shows connection, power and data roles, Type-C current and the source capabilities received from the partner.",
		Example: "  " + os.Args[0] + " status -b /dev/i2c-1",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	commonFlags.AddToCommand(command)
	return command
}

func run(cmd *cobra.Command, args []string) {
	bus := common.OpenBus(commonFlags)
	report, err := status.NewQuerier(bus).Snapshot()
	bus.Close()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error reading port status: %s", err), feedback.ErrBus)
	}
	feedback.PrintResult(&result{report})
}

type result struct {
	*status.Report
}

func (r *result) String() string {
	t := table.New()
	t.AddRow("Connected", fmt.Sprint(r.Connected))
	t.AddRow("Port role", r.PortRole)
	t.AddRow("Data role", r.DataRole)
	t.AddRow("Type-C current", r.TypeCCurrent)
	t.AddRow("Power connection", fmt.Sprint(r.PowerSource))
	t.AddRow("Valid PDOs", fmt.Sprint(r.NumValidPDOs))
	for i, pdo := range r.PDOs {
		t.AddRow(fmt.Sprintf("  PDO%d", i+1), pdo)
	}
	return t.Render()
}
