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

// TypeCStateMachine selects the role the port state machine runs as.
type TypeCStateMachine uint8

const (
	SinkStateMachine TypeCStateMachine = iota
	SourceStateMachine
	DRPStateMachine
	DisabledStateMachine
)

func (s TypeCStateMachine) String() string {
	switch s {
	case SinkStateMachine:
		return "sink"
	case SourceStateMachine:
		return "source"
	case DRPStateMachine:
		return "drp"
	default:
		return "disabled"
	}
}

// PortConfigReg is the port configuration register. Only the first two bytes
// are interpreted; the remainder is carried verbatim.
type PortConfigReg struct {
	// Byte 0
	TypeCStateMachine     uint8 `bitfield:"2"`
	Reserved0             uint8 `bitfield:"1"`
	ReceptacleType        uint8 `bitfield:"3"`
	AudioAccessorySupport uint8 `bitfield:"1"`
	DebugAccessorySupport uint8 `bitfield:"1"`

	// Byte 1
	SupportTypeCOptions uint8 `bitfield:"2"`
	Reserved1           uint8 `bitfield:"1"`
	VCONNSupported      uint8 `bitfield:"2"`
	USB3Rate            uint8 `bitfield:"2"`
	Reserved2           uint8 `bitfield:"1"`

	Extended [6]byte
}

func (*PortConfigReg) Address() Address { return PortConfig }
func (*PortConfigReg) Size() int        { return 8 }

// StateMachine returns the configured Type-C state machine.
func (p *PortConfigReg) StateMachine() TypeCStateMachine {
	return TypeCStateMachine(p.TypeCStateMachine)
}

// SetStateMachine changes the Type-C state machine, leaving every other bit alone.
func (p *PortConfigReg) SetStateMachine(s TypeCStateMachine) {
	p.TypeCStateMachine = uint8(s) & 0x03
}
