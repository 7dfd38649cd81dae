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

package firmware

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tymphany/tps-drv/cli/common"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/flasher"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/transport"
)

// NewGetVersionCommand creates a new `get-version` command
func NewGetVersionCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "get-version",
		Short: "Gets the version of the firmware the controller is running.",
		Long:  "Reads mode, version, installed image tag and boot flags of the PD controller",
		Example: "" +
			"  " + os.Args[0] + " firmware get-version\n" +
			"  " + os.Args[0] + " firmware get-version -b /dev/i2c-1 -a 0x20\n",
		Args: cobra.NoArgs,
		Run:  runGetVersion,
	}
	commonFlags.AddToCommand(command)
	return command
}

func runGetVersion(cmd *cobra.Command, args []string) {
	bus := common.OpenBus(commonFlags)
	result, err := getVersion(bus)
	bus.Close()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Couldn't get firmware version: %s", err), feedback.ErrBus)
	}
	feedback.PrintResult(result)
}

// VersionResult describes the running firmware.
type VersionResult struct {
	Mode         string                  `json:"mode"`
	Version      string                  `json:"version"`
	InstalledTag string                  `json:"installed_tag"`
	ActiveRegion string                  `json:"active_region"`
	BootFlags    *registers.BootFlagsReg `json:"boot_flags"`
}

func getVersion(bus transport.Bus) (*VersionResult, error) {
	mode := &registers.ModeReg{}
	version := &registers.VersionReg{}
	flags := &registers.BootFlagsReg{}
	for _, r := range []registers.Register{mode, version, flags} {
		if err := registers.Read(bus, r); err != nil {
			return nil, err
		}
	}
	tag, err := common.InstalledTag(bus)
	if err != nil {
		return nil, err
	}
	res := &VersionResult{
		Mode:         mode.String(),
		Version:      version.String(),
		InstalledTag: tag,
		BootFlags:    flags,
	}
	if active, _, err := flasher.ClassifyRegions(flags); err != nil {
		res.ActiveRegion = "unknown"
	} else {
		res.ActiveRegion = active.String()
	}
	return res, nil
}

func (r *VersionResult) Data() interface{} {
	return r
}

func (r *VersionResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %q\n", r.Mode)
	fmt.Fprintf(&b, "Firmware version installed: %s\n", r.Version)
	fmt.Fprintf(&b, "Image tag: %s\n", r.InstalledTag)
	fmt.Fprintf(&b, "Active region: %s", r.ActiveRegion)
	if r.BootFlags.PatchHeaderErr != 0 {
		b.WriteString("\nWARNING: patch header error reported")
	}
	return b.String()
}
