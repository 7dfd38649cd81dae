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

// Package image locates, validates and opens the firmware images streamed
// into the controller flash.
package image

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/arduino/go-paths-helper"
)

const (
	// SectorSize is the erase granularity of the controller flash.
	SectorSize = 4096
	// RegionSectors is the number of sectors erased for each region.
	RegionSectors = 4
	// MaxSize is the largest image that fits an erased region.
	MaxSize = SectorSize * RegionSectors
)

var (
	ErrNotFound   = errors.New("image not found")
	ErrNotRegular = errors.New("image is not a regular file")
	ErrEmpty      = errors.New("image is empty")
	ErrTooLarge   = errors.New("image does not fit a flash region")
)

// Error reports a missing or unusable image.
type Error struct {
	Image string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("image %s: %s", e.Image, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Source is a firmware image that can be read from the start any number of
// times. Each Open returns an independent reader that must be closed.
type Source interface {
	Open() (io.ReadCloser, error)
	Size() (int64, error)
	String() string
}

// File is an image stored on the local filesystem.
type File struct {
	path *paths.Path
}

// NewFile returns the image stored at p.
func NewFile(p *paths.Path) *File {
	return &File{path: p}
}

func (f *File) Path() *paths.Path {
	return f.path
}

func (f *File) String() string {
	return f.path.String()
}

// Open opens the image for reading.
func (f *File) Open() (io.ReadCloser, error) {
	file, err := f.path.Open()
	if err != nil {
		return nil, &Error{Image: f.String(), Err: err}
	}
	return file, nil
}

// Size returns the image length in bytes.
func (f *File) Size() (int64, error) {
	info, err := f.path.Stat()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &Error{Image: f.String(), Err: ErrNotFound}
		}
		return 0, &Error{Image: f.String(), Err: err}
	}
	if !info.Mode().IsRegular() {
		return 0, &Error{Image: f.String(), Err: ErrNotRegular}
	}
	return info.Size(), nil
}

// Check verifies that src can be opened and fits a flash region. It returns
// the image size.
func Check(src Source) (int64, error) {
	size, err := src.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, &Error{Image: src.String(), Err: ErrEmpty}
	}
	if size > MaxSize {
		return 0, &Error{Image: src.String(), Err: fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, size, MaxSize)}
	}
	r, err := src.Open()
	if err != nil {
		return 0, err
	}
	r.Close()
	return size, nil
}
