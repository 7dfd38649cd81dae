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

package flasher

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tymphany/tps-drv/command"
	"github.com/tymphany/tps-drv/image"
	"github.com/tymphany/tps-drv/metrics"
	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/transport"
)

// Config holds the timings of an upgrade.
type Config struct {
	PollInterval time.Duration
	PollAttempts int
	// ChunkDelay is waited after every FLwd.
	ChunkDelay time.Duration
	// PortSettle is waited after the Type-C port has been disabled.
	PortSettle time.Duration
	// ResetWait is waited after the cold reset before reading the controller back.
	ResetWait time.Duration
	// Sleep replaces time.Sleep when set.
	Sleep func(time.Duration)
}

// DefaultConfig returns the timings required by the controller.
func DefaultConfig() Config {
	return Config{
		PollInterval: command.DefaultPollInterval,
		PollAttempts: command.DefaultPollAttempts,
		ChunkDelay:   100 * time.Millisecond,
		PortSettle:   3 * time.Second,
		ResetWait:    time.Second,
	}
}

// TPSFlasher upgrades a TPS65987 over a register bus.
type TPSFlasher struct {
	bus              transport.Bus
	engine           *command.Engine
	cfg              Config
	sleep            func(time.Duration)
	progressCallback func(int)
}

// NewTPSFlasher returns a flasher driving the controller on bus.
func NewTPSFlasher(bus transport.Bus, cfg Config) *TPSFlasher {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &TPSFlasher{
		bus: bus,
		engine: command.New(bus,
			command.WithPollInterval(cfg.PollInterval),
			command.WithPollAttempts(cfg.PollAttempts),
			command.WithSleep(sleep)),
		cfg:   cfg,
		sleep: sleep,
	}
}

func (f *TPSFlasher) SetProgressCallback(callback func(progress int)) {
	f.progressCallback = callback
}

func (f *TPSFlasher) reportProgress(s *Session) {
	progress := s.progress()
	logrus.Debugf("Flashing progress: %d%%", progress)
	if f.progressCallback != nil {
		f.progressCallback(progress)
	}
}

func (f *TPSFlasher) Close() error {
	return f.bus.Close()
}

// FlashFirmware writes img to both flash regions, inactive region first, and
// restarts the controller. The returned result is never nil. An error is
// returned for every outcome except Consistent and Degraded.
func (f *TPSFlasher) FlashFirmware(img image.Source) (*FlashResult, error) {
	s := newSession()
	res := &FlashResult{Session: s.ID.String(), Image: img.String()}
	s.log().Infof("Flashing firmware %s", img)

	finish := func(outcome Outcome, err error) (*FlashResult, error) {
		s.Phase = PhaseComplete
		res.Outcome = outcome
		res.BytesWritten = s.Written
		if err != nil {
			res.Error = err.Error()
		}
		metrics.SetOutcome(outcome.String())
		s.log().Infof("Upgrade finished: %s", outcome)
		if outcome == Degraded {
			return res, nil
		}
		return res, err
	}

	if err := f.preCheck(s, img); err != nil {
		s.log().Error(err)
		return finish(PreCheckFailed, err)
	}
	res.Active, res.Inactive = s.Active, s.Inactive

	s.Phase = PhaseDisablePort
	if err := f.disablePort(s); err != nil {
		s.log().Error(err)
		// the port configuration may have been written; the restart reloads it
		f.restart(s, res)
		return finish(PreCheckFailed, err)
	}

	outcome := Consistent
	s.Phase = PhaseUpdateInactive
	err := f.updateRegion(s, s.Inactive, img)
	if err != nil {
		outcome = RegionUpdateFailed
	} else {
		s.Phase = PhaseMirrorActive
		if err = f.updateRegion(s, s.Active, img); err != nil {
			outcome = Degraded
		}
	}

	s.Phase = PhaseReset
	if rerr := f.restart(s, res); rerr != nil && outcome == Consistent {
		outcome, err = RestartUnconfirmed, rerr
	}
	return finish(outcome, err)
}

// preCheck reads the boot state, picks the regions and validates the image.
// It does not change anything on the device.
func (f *TPSFlasher) preCheck(s *Session, img image.Source) error {
	s.Phase = PhasePreCheck
	version := &registers.VersionReg{}
	if err := registers.Read(f.bus, version); err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	s.log().Infof("Running firmware version %s", version)

	flags := &registers.BootFlagsReg{}
	if err := registers.Read(f.bus, flags); err != nil {
		return fmt.Errorf("reading boot flags: %w", err)
	}
	if flags.PatchHeaderErr != 0 {
		return &BootStateError{Err: ErrPatchHeader, Flags: flags}
	}
	active, inactive, err := ClassifyRegions(flags)
	if err != nil {
		return err
	}
	s.Active, s.Inactive = active, inactive
	s.log().Infof("Active %s, inactive %s", active, inactive)

	size, err := image.Check(img)
	if err != nil {
		return err
	}
	s.Total = 2 * size
	return nil
}

// disablePort stops the Type-C state machine so the port does not renegotiate
// while the flash is rewritten. The original configuration is not restored;
// the controller reloads it from the new patch after the restart.
func (f *TPSFlasher) disablePort(s *Session) error {
	cfg := &registers.PortConfigReg{}
	if err := registers.Read(f.bus, cfg); err != nil {
		return fmt.Errorf("reading port config: %w", err)
	}
	s.log().Infof("Disabling Type-C port (state machine was %s)", cfg.StateMachine())
	cfg.SetStateMachine(registers.DisabledStateMachine)
	if err := registers.Write(f.bus, cfg); err != nil {
		return fmt.Errorf("writing port config: %w", err)
	}
	f.sleep(f.cfg.PortSettle)

	if err := registers.Read(f.bus, cfg); err != nil {
		return fmt.Errorf("reading back port config: %w", err)
	}
	if cfg.StateMachine() != registers.DisabledStateMachine {
		s.log().Warnf("Port state machine reads back as %s", cfg.StateMachine())
	}
	return nil
}

var errNotRunningApp = errors.New("controller is not running its application firmware")

// restart issues a cold reset and reads the controller back. It fills the
// restart fields of res and reports whether the controller came back in
// application mode.
func (f *TPSFlasher) restart(s *Session, res *FlashResult) error {
	s.log().Info("Restarting controller")
	if _, err := f.engine.Execute(command.ColdReset, nil, 0); err != nil {
		s.log().Error(err)
		return err
	}
	f.sleep(f.cfg.ResetWait)

	mode := &registers.ModeReg{}
	if err := registers.Read(f.bus, mode); err != nil {
		s.log().Error(err)
		return err
	}
	res.Mode = mode.String()
	version := &registers.VersionReg{}
	if err := registers.Read(f.bus, version); err != nil {
		s.log().Error(err)
		return err
	}
	res.Version = version.String()
	flags := &registers.BootFlagsReg{}
	if err := registers.Read(f.bus, flags); err != nil {
		s.log().Error(err)
		return err
	}
	res.BootFlags = flags

	if res.Mode != registers.ModeApp {
		err := fmt.Errorf("%w (mode %q)", errNotRunningApp, res.Mode)
		s.log().Error(err)
		return err
	}
	s.log().Infof("Controller restarted in %q, version %s", res.Mode, res.Version)
	return nil
}
