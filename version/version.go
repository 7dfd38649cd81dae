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

package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/tymphany/tps-drv/version.versionString=..."
var (
	versionString = ""
	commit        = ""
	date          = ""
)

const unknownVersion = "0.0.0-git"

// VersionInfo describes the running tps-ota binary.
var VersionInfo = newInfo("tps-ota", debug.ReadBuildInfo)

type info struct {
	Application   string `json:"Application"`
	VersionString string `json:"VersionString"`
	Commit        string `json:"Commit"`
	Date          string `json:"Date"`
}

// newInfo fills what ldflags left empty from the VCS stamp of the build.
func newInfo(application string, buildInfo func() (*debug.BuildInfo, bool)) *info {
	i := &info{
		Application:   application,
		VersionString: versionString,
		Commit:        commit,
		Date:          date,
	}
	if bi, ok := buildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && i.Commit == "":
				i.Commit = s.Value
			case s.Key == "vcs.time" && i.Date == "":
				i.Date = s.Value
			}
		}
		if i.VersionString == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			i.VersionString = bi.Main.Version
		}
	}
	if i.VersionString == "" {
		i.VersionString = unknownVersion
	}
	return i
}

func (i *info) String() string {
	s := fmt.Sprintf("%s %s", i.Application, i.VersionString)
	if i.Commit != "" {
		s += " commit " + i.Commit
	}
	if i.Date != "" {
		s += " built " + i.Date
	}
	return s
}

// Data implements feedback.Result interface
func (i *info) Data() interface{} {
	return i
}
