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
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/cli/globals"
	"github.com/tymphany/tps-drv/flasher"
	"github.com/tymphany/tps-drv/image"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/simulator"
)

func fastFlasher(dev *simulator.Device) *flasher.TPSFlasher {
	return flasher.NewTPSFlasher(dev, flasher.Config{PollAttempts: 50})
}

func writeImage(t *testing.T, dir *paths.Path, tag string, size int) *paths.Path {
	p := dir.Join(image.DefaultName(tag))
	require.NoError(t, p.WriteFile(make([]byte, size)))
	return p
}

func TestExitCode(t *testing.T) {
	require.Equal(t, feedback.Success, exitCode(flasher.Consistent))
	require.Equal(t, feedback.ErrDegraded, exitCode(flasher.Degraded))
	require.Equal(t, feedback.ErrPreCheck, exitCode(flasher.PreCheckFailed))
	require.Equal(t, feedback.ErrRegionUpdate, exitCode(flasher.RegionUpdateFailed))
	require.Equal(t, feedback.ErrRestartUnconfirmed, exitCode(flasher.RestartUnconfirmed))
}

func TestPerformUpgrade(t *testing.T) {
	dir := paths.New(t.TempDir())
	img := image.NewFile(writeImage(t, dir, "0b", 130))

	t.Run("Success", func(t *testing.T) {
		dev := simulator.New()
		res, code := performUpgrade(fastFlasher(dev), img)
		require.Equal(t, feedback.Success, code)
		require.Equal(t, flasher.Consistent, res.Outcome)
	})

	t.Run("PatchHeaderErr", func(t *testing.T) {
		dev := simulator.New()
		raw := simulator.BootFlagsRaw(false)
		raw[0] |= 0x01
		dev.SetRegister(registers.BootFlags, raw)
		res, code := performUpgrade(fastFlasher(dev), img)
		require.Equal(t, feedback.ErrPreCheck, code)
		var errRes feedback.ErrorResult = res
		require.Contains(t, errRes.ErrorString(), "patch header error")
		require.Empty(t, dev.Calls)
	})

	t.Run("Degraded", func(t *testing.T) {
		dev := simulator.New()
		dev.Inject(simulator.Fault{Opcode: "FLvy", Occurrence: 2, Kind: simulator.Reject})
		_, code := performUpgrade(fastFlasher(dev), img)
		require.Equal(t, feedback.ErrDegraded, code)
	})

	t.Run("RegionUpdateFailed", func(t *testing.T) {
		dev := simulator.New()
		dev.Inject(simulator.Fault{Opcode: "FLem", Occurrence: 1, Kind: simulator.Reject})
		_, code := performUpgrade(fastFlasher(dev), img)
		require.Equal(t, feedback.ErrRegionUpdate, code)
	})
}

func TestResolveImage(t *testing.T) {
	dir := paths.New(t.TempDir())
	writeImage(t, dir, "09", 10)
	newest := writeImage(t, dir, "0c", 10)
	older := writeImage(t, dir, "0b", 10)
	globals.Config.ImageDir = dir.String()
	dev := simulator.New() // installed tag 0a

	src, code, err := resolveImage(dev, "")
	require.NoError(t, err)
	require.Equal(t, feedback.Success, code)
	require.Equal(t, newest.String(), src.String())

	src, _, err = resolveImage(dev, older.String())
	require.NoError(t, err)
	require.Equal(t, older.String(), src.String())

	_, code, err = resolveImage(dev, dir.Join(image.DefaultName("09")).String())
	require.Error(t, err)
	require.Equal(t, feedback.ErrUpToDate, code)

	force = true
	defer func() { force = false }()
	_, code, err = resolveImage(dev, dir.Join(image.DefaultName("09")).String())
	require.NoError(t, err)
	require.Equal(t, feedback.Success, code)
}

func TestNoNewerImage(t *testing.T) {
	dir := paths.New(t.TempDir())
	writeImage(t, dir, "0a", 10)
	globals.Config.ImageDir = dir.String()

	_, code, err := resolveImage(simulator.New(), "")
	require.Error(t, err)
	require.Equal(t, feedback.ErrUpToDate, code)
}

func TestGetVersion(t *testing.T) {
	dev := simulator.New()
	res, err := getVersion(dev)
	require.NoError(t, err)
	require.Equal(t, registers.ModeApp, res.Mode)
	require.Equal(t, "00010203", res.Version)
	require.Equal(t, "0a", res.InstalledTag)
	require.Equal(t, "region0", res.ActiveRegion)
	require.Contains(t, res.String(), "Active region: region0")
}

func TestListImages(t *testing.T) {
	dir := paths.New(t.TempDir())
	writeImage(t, dir, "09", 10)
	writeImage(t, dir, "0b", 10)

	res, err := listImages(dir, "0a")
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.False(t, res[0].Newer)
	require.True(t, res[1].Newer)
	require.Contains(t, res.String(), "0b")

	empty, err := listImages(paths.New(t.TempDir()), "0a")
	require.NoError(t, err)
	require.Equal(t, "No firmware images available.", empty.String())
}
