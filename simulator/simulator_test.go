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

package simulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/transport"
)

func TestRegisterFile(t *testing.T) {
	d := New()
	mode, err := d.ReadRegister(byte(registers.Mode), 4)
	require.NoError(t, err)
	require.Equal(t, []byte("APP "), mode)

	require.NoError(t, d.WriteRegister(byte(registers.PortConfig), []byte{3, 0, 0, 0, 0, 0, 0, 0}))
	require.Equal(t, byte(3), d.Register(registers.PortConfig)[0])
	require.Equal(t, 1, d.Writes[byte(registers.PortConfig)])
}

func TestCommandCompletion(t *testing.T) {
	d := New()
	d.PendingPolls = 2
	require.NoError(t, d.WriteRegister(byte(registers.Data1), []byte{1}))
	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLrr")))

	for i := 0; i < 2; i++ {
		cmd, err := d.ReadRegister(byte(registers.Cmd1), 4)
		require.NoError(t, err)
		require.Equal(t, []byte("FLrr"), cmd)
	}
	cmd, err := d.ReadRegister(byte(registers.Cmd1), 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, cmd)

	out, err := d.ReadRegister(byte(registers.Data1), 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x02, 0x00}, out)
	require.Equal(t, []string{"FLrr"}, d.Opcodes())
	require.Equal(t, []byte{1}, d.CallsOf("FLrr")[0].Input)
}

func TestFlashWrites(t *testing.T) {
	d := New()
	exec := func(op string, in []byte) {
		require.NoError(t, d.WriteRegister(byte(registers.Data1), in))
		require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte(op)))
	}
	exec("FLem", []byte{0x00, 0x20, 0x00, 0x00, 4})
	exec("FLad", []byte{0x00, 0x20, 0x00, 0x00})
	exec("FLwd", []byte{1, 2, 3})
	exec("FLwd", []byte{4})
	require.Equal(t, []uint32{Region0Pointer}, d.Erased)
	require.Equal(t, []byte{1, 2, 3, 4}, d.Flash[Region0Pointer])
}

func TestFaults(t *testing.T) {
	d := New()
	d.Inject(Fault{Opcode: "FLvy", Occurrence: 2, Kind: BadStatus, Status: 0x05})
	d.Inject(Fault{Opcode: "FLem", Kind: Reject})
	d.Inject(Fault{Opcode: "FLad", Kind: BusError})

	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLvy")))
	out, _ := d.ReadRegister(byte(registers.Data1), 1)
	require.Equal(t, []byte{0}, out)

	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLvy")))
	out, _ = d.ReadRegister(byte(registers.Data1), 1)
	require.Equal(t, []byte{0x05}, out)

	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLem")))
	cmd, _ := d.ReadRegister(byte(registers.Cmd1), 4)
	require.Equal(t, []byte("CMD "), cmd)

	err := d.WriteRegister(byte(registers.Cmd1), []byte("FLad"))
	var terr *transport.Error
	require.True(t, errors.As(err, &terr))

	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("XXXX")))
	cmd, _ = d.ReadRegister(byte(registers.Cmd1), 4)
	require.Equal(t, []byte("!CMD"), cmd)
}

func TestReset(t *testing.T) {
	d := New()
	d.OnReset = func(d *Device) {
		d.SetRegister(registers.BootFlags, BootFlagsRaw(true))
	}
	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("Gaid")))
	require.Equal(t, 1, d.Resets)
	require.Equal(t, BootFlagsRaw(true), d.Register(registers.BootFlags))
}

func TestClosed(t *testing.T) {
	d := New()
	require.NoError(t, d.Close())
	_, err := d.ReadRegister(byte(registers.Mode), 4)
	require.Error(t, err)
}

func TestStagedInputConsumed(t *testing.T) {
	d := New()
	require.NoError(t, d.WriteRegister(byte(registers.Data1), []byte{1}))
	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLrr")))
	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("GAID")))

	require.Equal(t, []byte{1}, d.CallsOf("FLrr")[0].Input)
	require.Empty(t, d.CallsOf("GAID")[0].Input)
}

func TestPollError(t *testing.T) {
	d := New()
	d.Inject(Fault{Opcode: "FLwd", Occurrence: 1, Kind: PollError})
	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLwd")))

	_, err := d.ReadRegister(byte(registers.Cmd1), 4)
	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	require.Equal(t, byte(registers.Cmd1), terr.Reg)

	// next command polls normally again
	require.NoError(t, d.WriteRegister(byte(registers.Cmd1), []byte("FLwd")))
	cmd, err := d.ReadRegister(byte(registers.Cmd1), 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, cmd)
}
