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

// Package transport moves raw register contents between the host and the
// PD controller. It knows nothing about what the bytes mean.
package transport

import (
	"fmt"
)

const (
	// MaxFrameLen is the largest single bus transaction the controller accepts.
	MaxFrameLen = 80
	// MaxWriteLen is the largest payload of a register write ([reg, len, data...]).
	MaxWriteLen = MaxFrameLen - 2
	// MaxReadLen is the largest payload of a register read (the device
	// prepends one length byte).
	MaxReadLen = MaxFrameLen - 1
)

const (
	// DefaultAddress is the 7-bit bus address of the controller.
	DefaultAddress uint16 = 0x38
	// AlternateAddress is used when the ADCIN straps select the second address.
	AlternateAddress uint16 = 0x20
)

// Bus reads and writes whole registers of a single device.
type Bus interface {
	// WriteRegister writes data to register reg. Either all bytes are
	// accepted or an error is returned.
	WriteRegister(reg byte, data []byte) error
	// ReadRegister returns exactly n bytes of register reg.
	ReadRegister(reg byte, n int) ([]byte, error)
	Close() error
}

// Error is returned by every failed bus operation.
type Error struct {
	Op  string
	Reg byte
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s register 0x%02x: %s", e.Op, e.Reg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CheckWrite validates a write request against the frame limits.
func CheckWrite(reg byte, data []byte) error {
	if len(data) > MaxWriteLen {
		return &Error{Op: "write", Reg: reg, Err: fmt.Errorf("payload of %d bytes exceeds %d", len(data), MaxWriteLen)}
	}
	return nil
}

// CheckRead validates a read request against the frame limits.
func CheckRead(reg byte, n int) error {
	if n <= 0 || n > MaxReadLen {
		return &Error{Op: "read", Reg: reg, Err: fmt.Errorf("invalid read length %d (max %d)", n, MaxReadLen)}
	}
	return nil
}
