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
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func noBuildInfo() (*debug.BuildInfo, bool) { return nil, false }

func TestVersionWithoutStamp(t *testing.T) {
	i := newInfo("tps-ota", noBuildInfo)
	require.Equal(t, "tps-ota", i.Application)
	require.Equal(t, unknownVersion, i.VersionString)
	require.Equal(t, "tps-ota 0.0.0-git", i.String())
	require.Same(t, i, i.Data())
}

func TestVersionFromBuildInfo(t *testing.T) {
	i := newInfo("tps-ota", func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v1.2.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2024-05-02T10:00:00Z"},
			},
		}, true
	})
	require.Equal(t, "v1.2.0", i.VersionString)
	require.Equal(t, "tps-ota v1.2.0 commit abc123 built 2024-05-02T10:00:00Z", i.String())
}

func TestDevelBuildKeepsDefault(t *testing.T) {
	i := newInfo("tps-ota", func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	})
	require.Equal(t, unknownVersion, i.VersionString)
	require.Empty(t, i.Commit)
}

func TestVersionInfo(t *testing.T) {
	require.Equal(t, "tps-ota", VersionInfo.Application)
	require.NotEmpty(t, VersionInfo.VersionString)
}
