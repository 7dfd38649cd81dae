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

// BootFlagsReg reports how the last boot went and which flash regions hold
// a usable patch.
type BootFlagsReg struct {
	// Byte 0
	PatchHeaderErr  uint8 `bitfield:"1"`
	Reserved0       uint8 `bitfield:"1"`
	DeadBatteryFlag uint8 `bitfield:"1"`
	SpiFlashPresent uint8 `bitfield:"1"`
	Region0         uint8 `bitfield:"1"` // patch loaded from region 0 was attempted
	Region1         uint8 `bitfield:"1"` // patch loaded from region 1 was attempted
	Region0Invalid  uint8 `bitfield:"1"`
	Region1Invalid  uint8 `bitfield:"1"`

	// Byte 1
	Region0FlashErr    uint8 `bitfield:"1"`
	Region1FlashErr    uint8 `bitfield:"1"`
	PatchDownloadErr   uint8 `bitfield:"1"`
	Reserved1          uint8 `bitfield:"1"`
	Region0CrcFail     uint8 `bitfield:"1"`
	Region1CrcFail     uint8 `bitfield:"1"`
	CustomerOTPInvalid uint8 `bitfield:"1"`
	Reserved2          uint8 `bitfield:"1"`

	// Byte 2
	Reserved3 uint8 `bitfield:"1"`
	PP1Switch uint8 `bitfield:"1"`
	PP2Switch uint8 `bitfield:"1"`
	PP3Switch uint8 `bitfield:"1"`
	PP4Switch uint8 `bitfield:"1"`
	Reserved4 uint8 `bitfield:"3"`

	// Byte 3
	Reserved5 uint8

	Extended [8]byte
}

func (*BootFlagsReg) Address() Address { return BootFlags }
func (*BootFlagsReg) Size() int        { return 12 }

// Region1Faulty is true when the controller flagged region 1 as corrupt.
func (b *BootFlagsReg) Region1Faulty() bool {
	return b.Region1CrcFail != 0 || b.Region1FlashErr != 0 || b.Region1Invalid != 0
}
