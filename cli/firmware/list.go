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

	"github.com/arduino/arduino-cli/table"
	"github.com/arduino/go-paths-helper"
	"github.com/spf13/cobra"
	"github.com/tymphany/tps-drv/cli/common"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/cli/globals"
	"github.com/tymphany/tps-drv/image"
)

func newListCommand() *cobra.Command {
	var dir string

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List available firmware images",
		Long:    "Displays the images found in the image directory and whether they are newer than the installed one.",
		Example: "  " + os.Args[0] + " firmware list -d /data/ota-file",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			list(dir)
		},
	}
	commonFlags.AddToCommand(listCmd)
	listCmd.Flags().StringVarP(&dir, "dir", "d", "", "Image directory (defaults to the config file)")
	return listCmd
}

type ImageResult struct {
	Path  string `json:"path"`
	Tag   string `json:"tag"`
	Newer bool   `json:"newer"`
}

type ImageListResult []*ImageResult

func list(dir string) {
	if dir == "" {
		dir = globals.Config.ImageDir
	}
	bus := common.OpenBus(commonFlags)
	installed, err := common.InstalledTag(bus)
	bus.Close()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Couldn't read the installed image tag: %s", err), feedback.ErrBus)
	}

	res, err := listImages(paths.New(dir), installed)
	if err != nil {
		feedback.FatalError(err, feedback.ErrGeneric)
	}
	feedback.PrintResult(res)
}

func listImages(dir *paths.Path, installed string) (ImageListResult, error) {
	candidates, err := image.List(dir, installed)
	if err != nil {
		return nil, err
	}
	res := ImageListResult{}
	for _, c := range candidates {
		res = append(res, &ImageResult{
			Path:  c.Path.String(),
			Tag:   c.Tag,
			Newer: c.Newer,
		})
	}
	return res, nil
}

func (l ImageListResult) String() string {
	if len(l) == 0 {
		return "No firmware images available."
	}
	t := table.New()
	t.SetHeader("Image", "Tag", "Newer")
	for _, img := range l {
		newer := ""
		if img.Newer {
			newer = "✔"
		}
		t.AddRow(img.Path, img.Tag, newer)
	}
	return t.Render()
}

func (l ImageListResult) Data() interface{} {
	return l
}
