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

package command

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/simulator"
	"github.com/tymphany/tps-drv/transport"
)

func newTestEngine(dev *simulator.Device, sleeps *[]time.Duration) *Engine {
	return New(dev, WithSleep(func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}))
}

func TestParseOpcode(t *testing.T) {
	op, err := ParseOpcode("FLwd")
	require.NoError(t, err)
	require.Equal(t, "FLwd", op.String())

	_, err = ParseOpcode("FLw")
	require.Error(t, err)
	_, err = ParseOpcode("FL\x00d")
	require.Error(t, err)

	require.True(t, MustParseOpcode("GAID").IsReset())
	require.True(t, MustParseOpcode("Gaid").IsReset())
	require.False(t, MustParseOpcode("FLrr").IsReset())
}

func TestClassify(t *testing.T) {
	require.Equal(t, Success, Classify([]byte{0, 0, 0, 0}))
	require.Equal(t, DeviceFailure, Classify([]byte("CMD ")))
	require.Equal(t, Unrecognized, Classify([]byte("!CMD")))
	require.Equal(t, Pending, Classify([]byte("FLwd")))
	require.Equal(t, Pending, Classify([]byte{0, 0, 0, 1}))
	require.Equal(t, Pending, Classify(nil))
}

func TestExecuteSuccess(t *testing.T) {
	dev := simulator.New()
	dev.PendingPolls = 3
	var sleeps []time.Duration
	e := newTestEngine(dev, &sleeps)

	out, err := e.Execute(ReadRegionPointer, []byte{0x01}, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x02, 0x00}, out)

	require.Equal(t, 4, dev.Polls)
	require.Len(t, sleeps, 4)
	require.Equal(t, DefaultPollInterval, sleeps[0])
	// staged input + opcode, exactly one output read
	require.Equal(t, 1, dev.Writes[byte(registers.Data1)])
	require.Equal(t, 1, dev.Reads[byte(registers.Data1)])
}

func TestExecuteWithoutInputDoesNotStage(t *testing.T) {
	dev := simulator.New()
	e := newTestEngine(dev, nil)

	out, err := e.Execute(VerifyRegion, nil, 0)
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, 0, dev.Writes[byte(registers.Data1)])
	require.Equal(t, 0, dev.Reads[byte(registers.Data1)])
}

func TestExecuteTimeout(t *testing.T) {
	dev := simulator.New()
	dev.Inject(simulator.Fault{Opcode: "FLvy", Kind: simulator.Hang})
	e := newTestEngine(dev, nil)

	_, err := e.Execute(VerifyRegion, []byte{0, 0x20, 0, 0}, 1)
	require.ErrorIs(t, err, ErrTimeout)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, Timeout, cerr.Result)
	require.Equal(t, DefaultPollAttempts, cerr.Polls)
	require.Equal(t, DefaultPollAttempts, dev.Polls)
	require.Equal(t, 0, dev.Reads[byte(registers.Data1)])
}

func TestExecuteDeviceFailure(t *testing.T) {
	dev := simulator.New()
	dev.Inject(simulator.Fault{Opcode: "FLem", Kind: simulator.Reject})
	e := newTestEngine(dev, nil)

	_, err := e.Execute(EraseMemory, []byte{0, 0x20, 0, 0, 4}, 1)
	require.ErrorIs(t, err, ErrDeviceFailure)
	require.NotErrorIs(t, err, ErrTimeout)
	require.Equal(t, 1, dev.Polls)
	require.Equal(t, 0, dev.Reads[byte(registers.Data1)])
}

func TestExecuteUnrecognized(t *testing.T) {
	dev := simulator.New()
	e := newTestEngine(dev, nil)

	_, err := e.Execute(MustParseOpcode("XXXX"), nil, 0)
	require.ErrorIs(t, err, ErrUnrecognized)
}

func TestExecuteReset(t *testing.T) {
	dev := simulator.New()
	var sleeps []time.Duration
	e := newTestEngine(dev, &sleeps)

	out, err := e.Execute(ColdReset, nil, 4)
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, 1, dev.Resets)
	require.Equal(t, 0, dev.Polls)
	require.Empty(t, sleeps)
}

func TestExecuteTransportError(t *testing.T) {
	dev := simulator.New()
	dev.Inject(simulator.Fault{Opcode: "FLad", Kind: simulator.BusError})
	e := newTestEngine(dev, nil)

	_, err := e.Execute(SetWriteAddress, []byte{0, 0, 0, 0}, 1)
	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	require.Equal(t, 0, dev.Polls)
}

func TestExecutePollTransportError(t *testing.T) {
	dev := simulator.New()
	dev.Inject(simulator.Fault{Opcode: "FLwd", Kind: simulator.PollError})
	e := newTestEngine(dev, nil)

	out, err := e.Execute(WriteData, []byte{1, 2, 3}, 1)
	require.Nil(t, out)
	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	require.Equal(t, byte(registers.Cmd1), terr.Reg)
	require.Equal(t, 1, dev.Reads[byte(registers.Cmd1)])
	require.Equal(t, 0, dev.Reads[byte(registers.Data1)])
}

func TestExecuteLimits(t *testing.T) {
	dev := simulator.New()
	e := newTestEngine(dev, nil)

	_, err := e.Execute(WriteData, make([]byte, MaxPayload+1), 1)
	require.Error(t, err)
	_, err = e.Execute(WriteData, make([]byte, MaxPayload), MaxPayload+1)
	require.Error(t, err)
	require.Empty(t, dev.Calls)
}

func TestPollOptions(t *testing.T) {
	dev := simulator.New()
	dev.Inject(simulator.Fault{Opcode: "FLvy", Kind: simulator.Hang})
	var sleeps []time.Duration
	e := New(dev,
		WithPollAttempts(5),
		WithPollInterval(time.Millisecond),
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))

	_, err := e.Execute(VerifyRegion, nil, 1)
	require.ErrorIs(t, err, ErrTimeout)
	require.Len(t, sleeps, 5)
	require.Equal(t, time.Millisecond, sleeps[4])
}
