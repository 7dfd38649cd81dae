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

// Package flasher upgrades the patch stored in the controller's SPI flash.
// The flash keeps two copies of the patch (region 0 and region 1); the copy
// the controller did not boot from is rewritten first so that a failure
// leaves a bootable region behind.
package flasher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tymphany/tps-drv/command"
	"github.com/tymphany/tps-drv/image"
	"github.com/tymphany/tps-drv/registers"
)

// ChunkSize is the payload of a single FLwd command.
const ChunkSize = command.MaxPayload

// Flasher writes a firmware image to a device.
type Flasher interface {
	FlashFirmware(img image.Source) (*FlashResult, error)
	SetProgressCallback(callback func(progress int))
	Close() error
}

// Region identifies one of the two patch copies in flash.
type Region uint8

const (
	Region0 Region = 0
	Region1 Region = 1
)

func (r Region) String() string {
	return fmt.Sprintf("region%d", uint8(r))
}

// Outcome summarizes how an upgrade ended.
type Outcome int

const (
	// Consistent means both regions hold the new image and the controller restarted.
	Consistent Outcome = iota
	// Degraded means the inactive region holds the new image but mirroring it
	// into the active region failed. The device still boots.
	Degraded
	// PreCheckFailed means nothing was written to flash.
	PreCheckFailed
	// RegionUpdateFailed means the inactive region could not be rewritten; the
	// active region was not touched.
	RegionUpdateFailed
	// RestartUnconfirmed means both regions were written but the controller
	// did not come back running its application firmware.
	RestartUnconfirmed
)

var outcomeNames = map[Outcome]string{
	Consistent:         "success",
	Degraded:           "degraded",
	PreCheckFailed:     "precheck_failed",
	RegionUpdateFailed: "region_update_failed",
	RestartUnconfirmed: "restart_unconfirmed",
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText lets results print the outcome name in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// FlashResult is the report of one upgrade.
type FlashResult struct {
	Session      string                  `json:"session"`
	Image        string                  `json:"image"`
	Outcome      Outcome                 `json:"outcome"`
	Active       Region                  `json:"active_region"`
	Inactive     Region                  `json:"inactive_region"`
	BytesWritten int64                   `json:"bytes_written"`
	Mode         string                  `json:"mode,omitempty"`
	Version      string                  `json:"version,omitempty"`
	BootFlags    *registers.BootFlagsReg `json:"boot_flags,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

func (r *FlashResult) Data() interface{} {
	return r
}

func (r *FlashResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Upgrade %s: %s\n", r.Session, r.Outcome)
	fmt.Fprintf(&b, "Image: %s (%d bytes written)\n", r.Image, r.BytesWritten)
	if r.Outcome != PreCheckFailed {
		fmt.Fprintf(&b, "Updated %s, then %s\n", r.Inactive, r.Active)
	}
	if r.Mode != "" {
		fmt.Fprintf(&b, "Mode after restart: %q, version %s\n", r.Mode, r.Version)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ErrorString is printed on stderr by the text output.
func (r *FlashResult) ErrorString() string {
	if r.Error == "" {
		return ""
	}
	return "Error during firmware flashing: " + r.Error
}

// StatusError is returned when a flash command completes but reports a
// nonzero status byte.
type StatusError struct {
	Opcode command.Opcode
	Status byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status 0x%02x", e.Opcode, e.Status)
}

// RegionError is returned when a region update stops early.
type RegionError struct {
	Region Region
	State  State
	Err    error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("updating %s failed in %s: %s", e.Region, e.State, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

var (
	ErrPatchHeader        = errors.New("controller reports a patch header error")
	ErrAmbiguousBootState = errors.New("cannot tell which flash region is active")
)

// BootStateError is returned when the boot flags do not allow a safe upgrade.
type BootStateError struct {
	Err   error
	Flags *registers.BootFlagsReg
}

func (e *BootStateError) Error() string {
	return fmt.Sprintf("%s (boot flags %+v)", e.Err, *e.Flags)
}

func (e *BootStateError) Unwrap() error {
	return e.Err
}

// ClassifyRegions picks the active and inactive regions from the boot flags.
// The controller sets Region1 only when it attempted to load the patch from
// region 1; that copy is trusted when region 0 was also seen and region 1
// carries no CRC, flash or validity error.
func ClassifyRegions(flags *registers.BootFlagsReg) (active, inactive Region, err error) {
	switch {
	case flags.Region1 == 0:
		return Region0, Region1, nil
	case flags.Region0 != 0 && !flags.Region1Faulty():
		return Region1, Region0, nil
	default:
		return 0, 0, &BootStateError{Err: ErrAmbiguousBootState, Flags: flags}
	}
}
