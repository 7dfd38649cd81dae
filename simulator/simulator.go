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

// Package simulator provides an in-memory TPS65987 that answers register
// reads and writes and executes the flash related 4CC commands. It records
// every call so tests can assert on the exact traffic, and it can be told to
// fail specific commands.
package simulator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/transport"
)

// Default flash layout of the simulated controller.
const (
	Region0Pointer uint32 = 0x00002000
	Region1Pointer uint32 = 0x00020000
)

// FaultKind selects how an injected fault shows up.
type FaultKind int

const (
	// Reject completes the command with "CMD ".
	Reject FaultKind = iota
	// Unknown completes the command with "!CMD".
	Unknown
	// Hang never completes the command.
	Hang
	// BadStatus completes the command but returns Status as the first output byte.
	BadStatus
	// BusError fails the opcode write with a transport error.
	BusError
	// PollError accepts the opcode but fails every following CMD1 read.
	PollError
)

// Fault describes a failure to inject into a command.
type Fault struct {
	Opcode string
	// Occurrence is the 1-based execution of Opcode that fails, 0 means all of them.
	Occurrence int
	Kind       FaultKind
	Status     byte
}

// Call is one command executed by the simulator.
type Call struct {
	Opcode string
	Input  []byte
}

// Device is a simulated controller. It implements transport.Bus.
type Device struct {
	// PendingPolls is the number of polls that still see the opcode in CMD1
	// before the completion code appears.
	PendingPolls int
	// RegionPointers are returned by FLrr.
	RegionPointers [2]uint32
	// OnReset is called when a cold reset is issued.
	OnReset func(d *Device)

	Calls  []Call
	Polls  int
	Reads  map[byte]int
	Writes map[byte]int
	Resets int
	// Flash holds the bytes written since the last erase, keyed by the
	// address passed to FLad.
	Flash map[uint32][]byte
	// Erased lists the addresses passed to FLem.
	Erased []uint32

	regs     map[byte][]byte
	staged   []byte
	opcode   [4]byte
	result   [4]byte
	pending  int
	pollErr  bool
	writePtr uint32
	faults   []Fault
	counts   map[string]int
	closed   bool
}

// New returns a controller running its application firmware from region 0.
func New() *Device {
	d := &Device{
		RegionPointers: [2]uint32{Region0Pointer, Region1Pointer},
		Reads:          map[byte]int{},
		Writes:         map[byte]int{},
		Flash:          map[uint32][]byte{},
		regs:           map[byte][]byte{},
		counts:         map[string]int{},
	}
	d.SetRegister(registers.Mode, []byte(registers.ModeApp))
	d.SetRegister(registers.Version, []byte{0x03, 0x02, 0x01, 0x00})
	d.SetRegister(registers.CustomerUse, []byte{0x0a, 0, 0, 0, 0, 0, 0, 0})
	d.SetRegister(registers.VID, []byte{0x51, 0x04, 0x00, 0x00})
	d.SetRegister(registers.BootFlags, BootFlagsRaw(false))
	d.SetRegister(registers.PortConfig, []byte{0x02, 0x00, 0, 0, 0, 0, 0, 0})
	d.SetRegister(registers.Status, []byte{0x61, 0, 0, 0, 0, 0, 0, 0})
	d.SetRegister(registers.PowerStatus, []byte{0x0D, 0x00})
	return d
}

// BootFlagsRaw returns the boot flags of a healthy controller booted from
// region 0 or, when region1 is set, from region 1.
func BootFlagsRaw(region1 bool) []byte {
	raw := make([]byte, 12)
	raw[0] = 0x08 | 0x10 // SpiFlashPresent, Region0
	if region1 {
		raw[0] |= 0x20
	}
	return raw
}

// SetRegister replaces the contents of register addr.
func (d *Device) SetRegister(addr registers.Address, raw []byte) {
	d.regs[byte(addr)] = append([]byte(nil), raw...)
}

// Register returns a copy of the contents of register addr.
func (d *Device) Register(addr registers.Address) []byte {
	return append([]byte(nil), d.regs[byte(addr)]...)
}

// Inject arms a fault.
func (d *Device) Inject(f Fault) {
	d.faults = append(d.faults, f)
}

// CallsOf returns the recorded calls of opcode.
func (d *Device) CallsOf(opcode string) []Call {
	var res []Call
	for _, c := range d.Calls {
		if c.Opcode == opcode {
			res = append(res, c)
		}
	}
	return res
}

// Opcodes returns the opcodes of all recorded calls in order.
func (d *Device) Opcodes() []string {
	res := make([]string, 0, len(d.Calls))
	for _, c := range d.Calls {
		res = append(res, c.Opcode)
	}
	return res
}

var errClosed = errors.New("device closed")

// WriteRegister implements transport.Bus.
func (d *Device) WriteRegister(reg byte, data []byte) error {
	if d.closed {
		return &transport.Error{Op: "write", Reg: reg, Err: errClosed}
	}
	if err := transport.CheckWrite(reg, data); err != nil {
		return err
	}
	d.Writes[reg]++
	switch registers.Address(reg) {
	case registers.Data1:
		d.staged = append([]byte(nil), data...)
		d.regs[reg] = append([]byte(nil), data...)
	case registers.Cmd1:
		if len(data) != 4 {
			return &transport.Error{Op: "write", Reg: reg, Err: fmt.Errorf("opcode of %d bytes", len(data))}
		}
		return d.execute([4]byte{data[0], data[1], data[2], data[3]})
	default:
		d.regs[reg] = append([]byte(nil), data...)
	}
	return nil
}

// ReadRegister implements transport.Bus.
func (d *Device) ReadRegister(reg byte, n int) ([]byte, error) {
	if d.closed {
		return nil, &transport.Error{Op: "read", Reg: reg, Err: errClosed}
	}
	if err := transport.CheckRead(reg, n); err != nil {
		return nil, err
	}
	d.Reads[reg]++
	out := make([]byte, n)
	if registers.Address(reg) == registers.Cmd1 {
		d.Polls++
		if d.pollErr {
			return nil, &transport.Error{Op: "read", Reg: reg, Err: errors.New("injected nack")}
		}
		if d.pending != 0 {
			if d.pending > 0 {
				d.pending--
			}
			copy(out, d.opcode[:])
		} else {
			copy(out, d.result[:])
		}
		return out, nil
	}
	copy(out, d.regs[reg])
	return out, nil
}

// Close implements transport.Bus.
func (d *Device) Close() error {
	d.closed = true
	return nil
}

func (d *Device) fault(opcode string) (Fault, bool) {
	n := d.counts[opcode]
	for _, f := range d.faults {
		if f.Opcode == opcode && (f.Occurrence == 0 || f.Occurrence == n) {
			return f, true
		}
	}
	return Fault{}, false
}

func (d *Device) execute(opcode [4]byte) error {
	name := string(opcode[:])
	d.counts[name]++
	d.Calls = append(d.Calls, Call{Opcode: name, Input: append([]byte(nil), d.staged...)})
	// DATA1 input belongs to this command only
	defer func() { d.staged = nil }()
	d.opcode = opcode
	d.pending = d.PendingPolls
	d.result = [4]byte{}
	d.pollErr = false
	logrus.Tracef("simulator: executing %s", name)

	f, faulty := d.fault(name)
	if faulty {
		switch f.Kind {
		case BusError:
			return &transport.Error{Op: "write", Reg: byte(registers.Cmd1), Err: errors.New("injected bus error")}
		case Reject:
			d.result = [4]byte{'C', 'M', 'D', ' '}
			return nil
		case Unknown:
			d.result = [4]byte{'!', 'C', 'M', 'D'}
			return nil
		case Hang:
			d.pending = -1
			return nil
		case PollError:
			d.pollErr = true
			return nil
		}
	}

	out, ok := d.run(name)
	if !ok {
		d.result = [4]byte{'!', 'C', 'M', 'D'}
		return nil
	}
	if faulty && f.Kind == BadStatus {
		if len(out) == 0 {
			out = []byte{0}
		}
		out[0] = f.Status
	}
	if out != nil {
		d.regs[byte(registers.Data1)] = out
	}
	return nil
}

func (d *Device) addressArg() uint32 {
	if len(d.staged) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(d.staged)
}

func (d *Device) run(name string) ([]byte, bool) {
	switch name {
	case "FLrr":
		region := 0
		if len(d.staged) > 0 {
			region = int(d.staged[0] & 0x01)
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, d.RegionPointers[region])
		return out, true
	case "FLem":
		addr := d.addressArg()
		d.Erased = append(d.Erased, addr)
		delete(d.Flash, addr)
		return []byte{0}, true
	case "FLad":
		d.writePtr = d.addressArg()
		return []byte{0}, true
	case "FLwd":
		d.Flash[d.writePtr] = append(d.Flash[d.writePtr], d.staged...)
		return []byte{0}, true
	case "FLvy":
		return []byte{0}, true
	}
	if strings.EqualFold(name, "GAID") {
		d.Resets++
		if d.OnReset != nil {
			d.OnReset(d)
		}
		return nil, true
	}
	return nil, false
}
