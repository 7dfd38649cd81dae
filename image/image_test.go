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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir *paths.Path, name string, size int) *paths.Path {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	p := dir.Join(name)
	require.NoError(t, p.WriteFile(data))
	return p
}

func TestCheck(t *testing.T) {
	dir := paths.New(t.TempDir())

	size, err := Check(NewFile(writeImage(t, dir, "ok.bin", 130)))
	require.NoError(t, err)
	require.EqualValues(t, 130, size)

	_, err = Check(NewFile(dir.Join("missing.bin")))
	require.ErrorIs(t, err, ErrNotFound)
	var ierr *Error
	require.True(t, errors.As(err, &ierr))

	_, err = Check(NewFile(writeImage(t, dir, "empty.bin", 0)))
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Check(NewFile(writeImage(t, dir, "big.bin", MaxSize+1)))
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = Check(NewFile(dir))
	require.ErrorIs(t, err, ErrNotRegular)
}

func TestFileOpenIsRepeatable(t *testing.T) {
	dir := paths.New(t.TempDir())
	src := NewFile(writeImage(t, dir, "img.bin", 10))
	for i := 0; i < 2; i++ {
		r, err := src.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Len(t, data, 10)
		require.NoError(t, r.Close())
	}
}

func TestTag(t *testing.T) {
	require.Equal(t, "0b", Tag(paths.New("/data/ota-file/r1-low-region-flash-0b.bin")))
	require.Equal(t, "1.2.0", Tag(paths.New("fw-1.2.0.bin")))
	require.Equal(t, "image", Tag(paths.New("image.bin")))
	require.Equal(t, "r1-low-region-flash-0a.bin", DefaultName("0a"))
}

func TestIsNewer(t *testing.T) {
	require.True(t, IsNewer("0b", "0a"))
	require.False(t, IsNewer("0a", "0a"))
	require.False(t, IsNewer("09", "0a"))
	require.True(t, IsNewer("ff", "10"))
	require.True(t, IsNewer("1.2.0", "1.1.9"))
	require.False(t, IsNewer("1.0.0", "1.0.0"))
}

func TestList(t *testing.T) {
	dir := paths.New(t.TempDir())
	writeImage(t, dir, DefaultName("09"), 4)
	writeImage(t, dir, DefaultName("0b"), 4)
	writeImage(t, dir, "notes.txt", 4)
	require.NoError(t, dir.Join("sub.bin").MkdirAll())

	res, err := List(dir, "0a")
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "09", res[0].Tag)
	require.False(t, res[0].Newer)
	require.Equal(t, "0b", res[1].Tag)
	require.True(t, res[1].Newer)
}

func TestDownloadAndVerify(t *testing.T) {
	srcDir := paths.New(t.TempDir())
	img := writeImage(t, srcDir, DefaultName("0c"), 200)
	server := httptest.NewServer(http.FileServer(http.Dir(srcDir.String())))
	defer server.Close()

	dest := paths.New(t.TempDir()).Join("cache")
	downloaded, err := Download(server.URL+"/"+DefaultName("0c"), dest)
	require.NoError(t, err)
	require.FileExists(t, downloaded.String())
	require.Equal(t, "0c", Tag(downloaded))

	data, err := img.ReadFile()
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	require.NoError(t, VerifyFileChecksum("SHA-256:"+hex.EncodeToString(sum[:]), downloaded))
	require.Error(t, VerifyFileChecksum("SHA-256:00", downloaded))
	require.Error(t, VerifyFileChecksum("CRC:00", downloaded))
	require.Error(t, VerifyFileChecksum("", downloaded))
	require.NoError(t, VerifyFileSize(200, downloaded))
	require.Error(t, VerifyFileSize(201, downloaded))

	_, err = Download(server.URL+"/missing.bin", dest)
	require.Error(t, err)
}

func TestIsURL(t *testing.T) {
	require.True(t, IsURL("https://example.com/fw.bin"))
	require.False(t, IsURL("/data/ota-file/fw.bin"))
}
