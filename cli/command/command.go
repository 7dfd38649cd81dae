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

package command

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tymphany/tps-drv/cli/arguments"
	"github.com/tymphany/tps-drv/cli/common"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/cli/globals"
	"github.com/tymphany/tps-drv/command"
	"github.com/tymphany/tps-drv/transport"
)

var (
	commonFlags arguments.Flags
	data        string
	outLen      int
)

// NewCommand created a new `command` command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "command OPCODE",
		Short: "Runs a single 4CC command on the controller.",
		Long: "Stages the optional input in DATA1, issues the four character command and waits for it to complete. " +
			"With --out the given number of bytes is read back from DATA1.",
		Example: "" +
			"  " + os.Args[0] + " command FLrr --data 00 --out 4\n" +
			"  " + os.Args[0] + " command GAID\n",
		Args: cobra.ExactArgs(1),
		Run:  run,
	}
	commonFlags.AddToCommand(cmd)
	cmd.Flags().StringVarP(&data, "data", "d", "", "Input bytes in hex, written to DATA1 before the command")
	cmd.Flags().IntVarP(&outLen, "out", "o", 0, "Number of output bytes to read from DATA1")
	return cmd
}

func run(cmd *cobra.Command, args []string) {
	op, err := command.ParseOpcode(args[0])
	if err != nil {
		feedback.FatalError(err, feedback.ErrBadArgument)
	}
	input, err := parseData(data)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Invalid --data: %s", err), feedback.ErrBadArgument)
	}
	if outLen < 0 || outLen > transport.MaxReadLen {
		feedback.Fatal(fmt.Sprintf("Invalid --out: must be between 0 and %d", transport.MaxReadLen), feedback.ErrBadArgument)
	}

	bus := common.OpenBus(commonFlags)
	res, err := execute(command.New(bus, globals.Config.EngineOptions()...), op, input, outLen)
	bus.Close()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Command %s failed: %s", op, err), feedback.ErrBus)
	}
	feedback.PrintResult(res)
}

func parseData(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, " ", ""), "0x")
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) > transport.MaxWriteLen {
		return nil, fmt.Errorf("at most %d bytes allowed", transport.MaxWriteLen)
	}
	return b, nil
}

func execute(engine *command.Engine, op command.Opcode, input []byte, n int) (*Result, error) {
	logrus.Infof("Running %s", op)
	out, err := engine.Execute(op, input, n)
	if err != nil {
		return nil, err
	}
	return &Result{Opcode: op.String(), Output: hex.EncodeToString(out)}, nil
}

// Result is the outcome of a successful command.
type Result struct {
	Opcode string `json:"opcode"`
	Output string `json:"output,omitempty"`
}

func (r *Result) Data() interface{} {
	return r
}

func (r *Result) String() string {
	if r.Output == "" {
		return fmt.Sprintf("%s: success", r.Opcode)
	}
	return fmt.Sprintf("%s: success, output %s", r.Opcode, r.Output)
}
