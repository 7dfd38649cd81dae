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
)

// PortRole is the power role of the port.
type PortRole uint8

const (
	Sink PortRole = iota
	Source
)

func (r PortRole) String() string {
	if r == Source {
		return "source"
	}
	return "sink"
}

// DataRole is the data role of the port.
type DataRole uint8

const (
	UFP DataRole = iota
	DFP
)

func (r DataRole) String() string {
	if r == DFP {
		return "DFP"
	}
	return "UFP"
}

// TypeCCurrent is the current advertised on the CC lines.
type TypeCCurrent uint8

const (
	DefaultCurrent TypeCCurrent = iota
	Current1A5
	Current3A
	PDContract
)

func (c TypeCCurrent) String() string {
	switch c {
	case DefaultCurrent:
		return "USB default"
	case Current1A5:
		return "1.5A"
	case Current3A:
		return "3.0A"
	default:
		return "PD contract negotiated"
	}
}

// StatusReg is the port status register.
type StatusReg struct {
	// Byte 0
	PlugPresent     uint8 `bitfield:"1"`
	ConnState       uint8 `bitfield:"3"`
	PlugOrientation uint8 `bitfield:"1"`
	PortRole        uint8 `bitfield:"1"`
	DataRole        uint8 `bitfield:"1"`
	Reserved0a      uint8 `bitfield:"1"`

	// Byte 1
	Reserved0b uint8

	// Byte 2
	Reserved0c     uint8 `bitfield:"4"`
	VbusStatus     uint8 `bitfield:"2"`
	UsbHostPresent uint8 `bitfield:"2"`

	// Byte 3
	ActingAsLegacy     uint8 `bitfield:"2"`
	Reserved1          uint8 `bitfield:"1"`
	BIST               uint8 `bitfield:"1"`
	HighVoltageWarning uint8 `bitfield:"1"`
	LowVoltageWarning  uint8 `bitfield:"1"`
	AckTimeout         uint8 `bitfield:"1"`
	Reserved2          uint8 `bitfield:"1"`

	// Byte 4
	AMStatus   uint8 `bitfield:"2"`
	Reserved3a uint8 `bitfield:"6"`

	// Byte 5
	Reserved3b uint8

	// Bytes 6-7
	Reserved4 [2]byte
}

func (*StatusReg) Address() Address { return Status }
func (*StatusReg) Size() int        { return 8 }

func (s *StatusReg) Role() PortRole      { return PortRole(s.PortRole) }
func (s *StatusReg) Direction() DataRole { return DataRole(s.DataRole) }
func (s *StatusReg) Connected() bool     { return s.PlugPresent != 0 }

// PowerStatusReg describes the power connection of the port.
type PowerStatusReg struct {
	// Byte 0
	PowerConnection     uint8 `bitfield:"1"`
	SourceSink          uint8 `bitfield:"1"`
	TypeCCurrent        uint8 `bitfield:"2"`
	ChargerDetectStatus uint8 `bitfield:"4"`

	// Byte 1
	ChargerAdvertiseStatus uint8 `bitfield:"2"`
	Reserved0              uint8 `bitfield:"6"`
}

func (*PowerStatusReg) Address() Address { return PowerStatus }
func (*PowerStatusReg) Size() int        { return 2 }

// Current returns the advertised Type-C current.
func (p *PowerStatusReg) Current() TypeCCurrent {
	return TypeCCurrent(p.TypeCCurrent)
}

// MaxPDOs is the number of PDO slots in the RX source capabilities register.
const MaxPDOs = 7

// RXSourceCapabilities holds the last source capabilities received from the
// port partner.
type RXSourceCapabilities struct {
	NumValidPDOs uint8 `bitfield:"3"`
	Reserved0    uint8 `bitfield:"5"`

	PDOData [MaxPDOs * 4]byte
}

func (*RXSourceCapabilities) Address() Address { return RXSourceCaps }
func (*RXSourceCapabilities) Size() int        { return 1 + MaxPDOs*4 }

// PDOs returns the valid power data objects.
func (r *RXSourceCapabilities) PDOs() []uint32 {
	n := int(r.NumValidPDOs)
	if n > MaxPDOs {
		n = MaxPDOs
	}
	pdos := make([]uint32, n)
	for i := range pdos {
		pdos[i] = binary.LittleEndian.Uint32(r.PDOData[i*4:])
	}
	return pdos
}

func (r *RXSourceCapabilities) String() string {
	return fmt.Sprintf("%d valid PDOs %08x", r.NumValidPDOs, r.PDOs())
}
