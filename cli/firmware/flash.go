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

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tymphany/tps-drv/cli/arguments"
	"github.com/tymphany/tps-drv/cli/common"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/cli/globals"
	"github.com/tymphany/tps-drv/flasher"
	"github.com/tymphany/tps-drv/image"
	"github.com/tymphany/tps-drv/metrics"
	"github.com/tymphany/tps-drv/transport"
)

var (
	commonFlags arguments.Flags // contains bus and address
	fwFile      string
	checksum    string
	force       bool
	metricsFile string
)

// NewFlashCommand creates a new `flash` command
func NewFlashCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "flash",
		Short: "Flashes a firmware image to the PD controller.",
		Long: "Flashes the image into both flash regions of the PD controller, inactive region first, and restarts it. " +
			"Without --input-file the newest image of the image directory is used. The image must be newer than the installed one unless --force is given.",
		Example: "" +
			"  " + os.Args[0] + " firmware flash\n" +
			"  " + os.Args[0] + " firmware flash -b /dev/i2c-1 -a 0x38 -i /data/ota-file/r1-low-region-flash-0b.bin\n" +
			"  " + os.Args[0] + " firmware flash -i https://example.com/r1-low-region-flash-0c.bin --checksum SHA-256:<hex>\n" +
			"  " + os.Args[0] + " firmware flash -b sim -i firmware.bin --force\n",
		Args: cobra.NoArgs,
		Run:  runFlash,
	}
	commonFlags.AddToCommand(command)
	command.Flags().StringVarP(&fwFile, "input-file", "i", "", "Path or http(s) URL of the firmware image to flash")
	command.Flags().StringVar(&checksum, "checksum", "", "Expected checksum of the image, e.g.: SHA-256:<hex>")
	command.Flags().BoolVarP(&force, "force", "f", false, "Flash even if the image is not newer than the installed one")
	command.Flags().StringVar(&metricsFile, "metrics-file", "", "Write upgrade metrics to this file in the Prometheus textfile format")
	return command
}

func runFlash(cmd *cobra.Command, args []string) {
	bus := common.OpenBus(commonFlags)

	src, code, err := resolveImage(bus, fwFile)
	if err != nil {
		bus.Close()
		feedback.Fatal(fmt.Sprintf("Error during firmware flashing: %s", err), code)
	}

	f := flasher.NewTPSFlasher(bus, globals.Config.FlasherConfig())
	if feedback.GetFormat() == feedback.Text {
		f.SetProgressCallback(printProgress)
	}

	res, code := performUpgrade(f, src)
	f.Close()
	writeMetrics()
	if code != feedback.Success {
		feedback.FatalResult(res, code)
	}
	feedback.PrintResult(res)
	logrus.Info("Operation completed: success! :-)")
}

// resolveImage finds the image to flash and applies the newer-image policy.
func resolveImage(bus transport.Bus, location string) (*image.File, feedback.ExitCode, error) {
	installed, err := common.InstalledTag(bus)
	if err != nil {
		return nil, feedback.ErrBus, err
	}
	logrus.Infof("Installed image tag: %s", installed)

	var imagePath *paths.Path
	switch {
	case location == "":
		imagePath, err = newestImage(paths.New(globals.Config.ImageDir), installed)
		if err != nil {
			return nil, feedback.ErrPreCheck, err
		}
		if imagePath == nil {
			return nil, feedback.ErrUpToDate, fmt.Errorf("no image newer than %s in %s", installed, globals.Config.ImageDir)
		}
	case image.IsURL(location):
		imagePath, err = image.Download(location, paths.New(globals.Config.DownloadDir))
		if err != nil {
			return nil, feedback.ErrNetwork, err
		}
	default:
		imagePath = paths.New(location)
	}

	if checksum != "" {
		if err := image.VerifyFileChecksum(checksum, imagePath); err != nil {
			return nil, feedback.ErrPreCheck, err
		}
	}

	tag := image.Tag(imagePath)
	if !force && !image.IsNewer(tag, installed) {
		return nil, feedback.ErrUpToDate, fmt.Errorf("image %s (tag %s) is not newer than the installed %s, use --force to flash it anyway", imagePath, tag, installed)
	}
	return image.NewFile(imagePath), feedback.Success, nil
}

func newestImage(dir *paths.Path, installed string) (*paths.Path, error) {
	candidates, err := image.List(dir, installed)
	if err != nil {
		return nil, err
	}
	var best *image.Candidate
	for _, c := range candidates {
		if c.Newer && (best == nil || image.IsNewer(c.Tag, best.Tag)) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.Path, nil
}

// performUpgrade runs the upgrade and maps its outcome to the exit status.
func performUpgrade(f flasher.Flasher, src image.Source) (*flasher.FlashResult, feedback.ExitCode) {
	res, err := f.FlashFirmware(src)
	if err != nil {
		logrus.Error(err)
	}
	return res, exitCode(res.Outcome)
}

func exitCode(outcome flasher.Outcome) feedback.ExitCode {
	switch outcome {
	case flasher.Consistent:
		return feedback.Success
	case flasher.Degraded:
		return feedback.ErrDegraded
	case flasher.PreCheckFailed:
		return feedback.ErrPreCheck
	case flasher.RegionUpdateFailed:
		return feedback.ErrRegionUpdate
	case flasher.RestartUnconfirmed:
		return feedback.ErrRestartUnconfirmed
	default:
		return feedback.ErrGeneric
	}
}

func writeMetrics() {
	file := metricsFile
	if file == "" {
		file = globals.Config.MetricsFile
	}
	if file == "" {
		return
	}
	if err := metrics.WriteTextfile(file); err != nil {
		logrus.Warnf("Could not write metrics to %s: %s", file, err)
	}
}

// callback used to print the progress
func printProgress(progress int) {
	fmt.Printf("Flashing progress: %d%%\r", progress)
}
