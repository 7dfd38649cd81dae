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

package image

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arduino/go-paths-helper"
	semver "go.bug.st/relaxed-semver"
)

// NamePrefix is the file name prefix of the images dropped by the OTA agent.
const NamePrefix = "r1-low-region-flash-"

// DefaultName is the file name of the image carrying tag.
func DefaultName(tag string) string {
	return NamePrefix + tag + ".bin"
}

// Tag extracts the image tag from the file name: the text after the last
// dash, extension excluded.
func Tag(p *paths.Path) string {
	base := strings.TrimSuffix(p.Base(), p.Ext())
	if i := strings.LastIndex(base, "-"); i >= 0 {
		return base[i+1:]
	}
	return base
}

// IsNewer reports whether candidate is a later tag than installed. Two-digit
// hex tags compare numerically, anything else by relaxed semver ordering.
func IsNewer(candidate, installed string) bool {
	c, cerr := strconv.ParseUint(candidate, 16, 8)
	i, ierr := strconv.ParseUint(installed, 16, 8)
	if cerr == nil && ierr == nil {
		return c > i
	}
	return semver.ParseRelaxed(candidate).CompareTo(semver.ParseRelaxed(installed)) > 0
}

// Candidate is an image found in the image directory.
type Candidate struct {
	Path  *paths.Path
	Tag   string
	Newer bool
}

// List returns the .bin images in dir, marking those newer than installed.
func List(dir *paths.Path, installed string) ([]*Candidate, error) {
	files, err := dir.ReadDir()
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}
	files.FilterOutDirs()
	files.FilterSuffix(".bin")
	files.Sort()
	res := []*Candidate{}
	for _, f := range files {
		tag := Tag(f)
		res = append(res, &Candidate{
			Path:  f,
			Tag:   tag,
			Newer: IsNewer(tag, installed),
		})
	}
	return res, nil
}
