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

package registers

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ModeReg holds the four ASCII characters naming the running firmware
// ("APP ", "BOOT", "PTCH").
type ModeReg struct {
	Value [4]byte
}

// ModeApp is reported once the application firmware is running.
const ModeApp = "APP "

func (*ModeReg) Address() Address { return Mode }
func (*ModeReg) Size() int        { return 4 }

func (m *ModeReg) String() string {
	return string(m.Value[:])
}

// VersionReg is the running firmware version.
type VersionReg struct {
	Value [4]byte
}

func (*VersionReg) Address() Address { return Version }
func (*VersionReg) Size() int        { return 4 }

// Uint32 returns the version as a little endian word.
func (v *VersionReg) Uint32() uint32 {
	return binary.LittleEndian.Uint32(v.Value[:])
}

func (v *VersionReg) String() string {
	return fmt.Sprintf("%08x", v.Uint32())
}

// CustomerUseReg is the free-form area written at build time. Its first byte
// carries the tag of the installed image.
type CustomerUseReg struct {
	Value [8]byte
}

func (*CustomerUseReg) Address() Address { return CustomerUse }
func (*CustomerUseReg) Size() int        { return 8 }

// Tag returns the installed image tag as two lowercase hex digits.
func (c *CustomerUseReg) Tag() string {
	return fmt.Sprintf("%02x", c.Value[0])
}

type VendorID struct {
	Value [4]byte
}

func (*VendorID) Address() Address { return VID }
func (*VendorID) Size() int        { return 4 }

func (v *VendorID) String() string {
	return fmt.Sprintf("%08x", binary.LittleEndian.Uint32(v.Value[:]))
}

type UniqueID struct {
	Value [16]byte
}

func (*UniqueID) Address() Address { return UID }
func (*UniqueID) Size() int        { return 16 }

func (u *UniqueID) String() string {
	return strings.ToUpper(fmt.Sprintf("%x", u.Value[:]))
}
