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

// Package command runs 4CC commands on the PD controller: stage the input in
// DATA1, write the opcode to CMD1, poll CMD1 until the controller reports
// completion and fetch the output from DATA1.
package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tymphany/tps-drv/metrics"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/transport"
)

const (
	// MaxPayload is the largest input or output of a single command.
	MaxPayload = 64
	// DefaultPollInterval is the delay before each completion poll.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultPollAttempts bounds the number of completion polls.
	DefaultPollAttempts = 50
)

// Opcode is a four character command code such as "FLwd".
type Opcode [4]byte

// ParseOpcode checks that s is exactly four printable ASCII characters.
func ParseOpcode(s string) (Opcode, error) {
	var op Opcode
	if len(s) != 4 {
		return op, fmt.Errorf("invalid opcode %q: must be 4 characters", s)
	}
	for i := 0; i < 4; i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return op, fmt.Errorf("invalid opcode %q: non printable character", s)
		}
		op[i] = s[i]
	}
	return op, nil
}

// MustParseOpcode is like ParseOpcode but panics on invalid input.
func MustParseOpcode(s string) Opcode {
	op, err := ParseOpcode(s)
	if err != nil {
		panic(err)
	}
	return op
}

func (o Opcode) String() string {
	return string(o[:])
}

// IsReset reports whether o restarts the controller. Those commands never
// report completion, so they are not polled.
func (o Opcode) IsReset() bool {
	return strings.EqualFold(o.String(), "GAID")
}

// Commands used by the upgrade flow.
var (
	ReadRegionPointer = MustParseOpcode("FLrr")
	EraseMemory       = MustParseOpcode("FLem")
	SetWriteAddress   = MustParseOpcode("FLad")
	WriteData         = MustParseOpcode("FLwd")
	VerifyRegion      = MustParseOpcode("FLvy")
	ColdReset         = MustParseOpcode("GAID")
)

// Result is how the controller finished a command.
type Result int

const (
	Pending Result = iota
	Success
	DeviceFailure
	Unrecognized
	Timeout
)

func (r Result) String() string {
	switch r {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case DeviceFailure:
		return "failure"
	case Unrecognized:
		return "unrecognized"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

var (
	completionSuccess      = [4]byte{0, 0, 0, 0}
	completionFailure      = [4]byte{'C', 'M', 'D', ' '}
	completionUnrecognized = [4]byte{'!', 'C', 'M', 'D'}
)

// Classify maps the contents of CMD1 to a Result. Anything that is not one
// of the three completion markers means the command is still running.
func Classify(cmd []byte) Result {
	if len(cmd) < 4 {
		return Pending
	}
	switch [4]byte{cmd[0], cmd[1], cmd[2], cmd[3]} {
	case completionSuccess:
		return Success
	case completionFailure:
		return DeviceFailure
	case completionUnrecognized:
		return Unrecognized
	default:
		return Pending
	}
}

var (
	ErrDeviceFailure = errors.New("controller reported command failure")
	ErrUnrecognized  = errors.New("controller did not recognize the command")
	ErrTimeout       = errors.New("command did not complete in time")
)

// Error is returned when a command does not end in Success.
type Error struct {
	Opcode Opcode
	Result Result
	Polls  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("command %s: %s after %d polls", e.Opcode, e.Result, e.Polls)
}

// Is matches the sentinel errors of this package.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDeviceFailure:
		return e.Result == DeviceFailure
	case ErrUnrecognized:
		return e.Result == Unrecognized
	case ErrTimeout:
		return e.Result == Timeout
	}
	return false
}

// Engine executes commands over a register bus, one at a time.
type Engine struct {
	bus          transport.Bus
	pollInterval time.Duration
	pollAttempts int
	sleep        func(time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithPollInterval sets the delay before each completion poll.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithPollAttempts sets the number of completion polls before giving up.
func WithPollAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pollAttempts = n
		}
	}
}

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// New returns an Engine bound to bus.
func New(bus transport.Bus, opts ...Option) *Engine {
	e := &Engine{
		bus:          bus,
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs op. When input is not nil it is staged in DATA1 before the
// opcode is written. On success outLen bytes are read back from DATA1.
// Reset commands return as soon as the opcode is written.
func (e *Engine) Execute(op Opcode, input []byte, outLen int) ([]byte, error) {
	if len(input) > MaxPayload {
		err := fmt.Errorf("command %s: input of %d bytes exceeds %d", op, len(input), MaxPayload)
		logrus.Error(err)
		return nil, err
	}
	if outLen < 0 || outLen > MaxPayload {
		err := fmt.Errorf("command %s: invalid output length %d", op, outLen)
		logrus.Error(err)
		return nil, err
	}

	logrus.Debugf("Executing %s (input % x)", op, input)
	if input != nil {
		if err := e.bus.WriteRegister(byte(registers.Data1), input); err != nil {
			return nil, fmt.Errorf("command %s: staging input: %w", op, err)
		}
	}
	if err := e.bus.WriteRegister(byte(registers.Cmd1), op[:]); err != nil {
		return nil, fmt.Errorf("command %s: writing opcode: %w", op, err)
	}

	if op.IsReset() {
		metrics.CommandsTotal.WithLabelValues(op.String(), Success.String()).Inc()
		return nil, nil
	}

	result, polls, err := e.waitCompletion(op)
	if err != nil {
		return nil, err
	}
	metrics.CommandsTotal.WithLabelValues(op.String(), result.String()).Inc()
	metrics.CommandPolls.Observe(float64(polls))
	if result != Success {
		err := &Error{Opcode: op, Result: result, Polls: polls}
		logrus.Error(err)
		return nil, err
	}
	logrus.Debugf("%s completed after %d polls", op, polls)

	if outLen == 0 {
		return nil, nil
	}
	out, err := e.bus.ReadRegister(byte(registers.Data1), outLen)
	if err != nil {
		return nil, fmt.Errorf("command %s: reading output: %w", op, err)
	}
	return out, nil
}

func (e *Engine) waitCompletion(op Opcode) (Result, int, error) {
	for poll := 1; poll <= e.pollAttempts; poll++ {
		e.sleep(e.pollInterval)
		cmd, err := e.bus.ReadRegister(byte(registers.Cmd1), 4)
		if err != nil {
			return Pending, poll, fmt.Errorf("command %s: polling completion: %w", op, err)
		}
		if res := Classify(cmd); res != Pending {
			return res, poll, nil
		}
	}
	return Timeout, e.pollAttempts, nil
}
