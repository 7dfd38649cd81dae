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

// Package registers describes the register map of the TPS65987 and converts
// raw register contents to typed values and back.
//
// Every multi-bit field is declared byte by byte, least significant bit
// first, so decoding never depends on the host byte order. Reserved bits are
// kept in the decoded value and written back unchanged.
package registers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/HewlettPackard/structex"
	"github.com/sirupsen/logrus"
	"github.com/tymphany/tps-drv/transport"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Address is a register number on the controller.
type Address byte

// Register map
const (
	VID          Address = 0x00
	Mode         Address = 0x03
	UID          Address = 0x05
	CustomerUse  Address = 0x06
	Cmd1         Address = 0x08
	Data1        Address = 0x09
	Version      Address = 0x0F
	Status       Address = 0x1A
	PortConfig   Address = 0x28
	BootFlags    Address = 0x2D
	RXSourceCaps Address = 0x30
	PowerStatus  Address = 0x3F
)

func (a Address) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("0x%02x", byte(a))
}

var names = map[Address]string{
	VID:          "VID",
	Mode:         "MODE",
	UID:          "UID",
	CustomerUse:  "CUSTOMER_USE",
	Cmd1:         "CMD1",
	Data1:        "DATA1",
	Version:      "VERSION",
	Status:       "STATUS",
	PortConfig:   "PORT_CONFIG",
	BootFlags:    "BOOT_FLAGS",
	RXSourceCaps: "RX_SOURCE_CAPS",
	PowerStatus:  "POWER_STATUS",
}

// Register is a typed view of one controller register.
type Register interface {
	Address() Address
	// Size is the number of bytes transferred for this register.
	Size() int
}

// ErrShortBuffer is returned when raw contents are shorter than the register.
var ErrShortBuffer = errors.New("register contents too short")

var factories = map[Address]func() Register{
	VID:          func() Register { return &VendorID{} },
	Mode:         func() Register { return &ModeReg{} },
	UID:          func() Register { return &UniqueID{} },
	CustomerUse:  func() Register { return &CustomerUseReg{} },
	Version:      func() Register { return &VersionReg{} },
	Status:       func() Register { return &StatusReg{} },
	PortConfig:   func() Register { return &PortConfigReg{} },
	BootFlags:    func() Register { return &BootFlagsReg{} },
	RXSourceCaps: func() Register { return &RXSourceCapabilities{} },
	PowerStatus:  func() Register { return &PowerStatusReg{} },
}

// Addresses returns the addresses of all typed registers in ascending order.
func Addresses() []Address {
	addrs := maps.Keys(factories)
	slices.Sort(addrs)
	return addrs
}

// New returns an empty typed register for addr.
func New(addr Address) (Register, error) {
	f, ok := factories[addr]
	if !ok {
		return nil, fmt.Errorf("no typed layout for register %s", addr)
	}
	return f(), nil
}

// Decode builds the typed value of register addr from raw.
func Decode(addr Address, raw []byte) (Register, error) {
	r, err := New(addr)
	if err != nil {
		return nil, err
	}
	if err := Unmarshal(raw, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Unmarshal fills r from raw. Bytes past r.Size() are ignored.
func Unmarshal(raw []byte, r Register) error {
	if len(raw) < r.Size() {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, r.Address(), r.Size(), len(raw))
	}
	if err := structex.DecodeByteBuffer(bytes.NewBuffer(raw[:r.Size()]), r); err != nil {
		return fmt.Errorf("decoding %s: %w", r.Address(), err)
	}
	return nil
}

// Encode returns the raw contents of r.
func Encode(r Register) ([]byte, error) {
	raw, err := structex.EncodeByteBuffer(r)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", r.Address(), err)
	}
	if len(raw) != r.Size() {
		return nil, fmt.Errorf("encoding %s: got %d bytes, want %d", r.Address(), len(raw), r.Size())
	}
	return raw, nil
}

// Read fetches register r.Address() from bus and decodes it into r.
func Read(bus transport.Bus, r Register) error {
	raw, err := bus.ReadRegister(byte(r.Address()), r.Size())
	if err != nil {
		return err
	}
	if err := Unmarshal(raw, r); err != nil {
		logrus.Error(err)
		return err
	}
	logrus.Debugf("%s: %+v", r.Address(), r)
	return nil
}

// Write encodes r and stores it on bus.
func Write(bus transport.Bus, r Register) error {
	raw, err := Encode(r)
	if err != nil {
		logrus.Error(err)
		return err
	}
	return bus.WriteRegister(byte(r.Address()), raw)
}
