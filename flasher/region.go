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
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tymphany/tps-drv/command"
	"github.com/tymphany/tps-drv/image"
	"github.com/tymphany/tps-drv/metrics"
)

// State is a step of a single region update.
type State int

const (
	LocateRegion State = iota
	EraseRegion
	SetWritePointer
	StreamChunks
	VerifyRegion
	Done
)

func (s State) String() string {
	switch s {
	case LocateRegion:
		return "LocateRegion"
	case EraseRegion:
		return "EraseRegion"
	case SetWritePointer:
		return "SetWritePointer"
	case StreamChunks:
		return "StreamChunks"
	case VerifyRegion:
		return "VerifyRegion"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// regionUpdate rewrites one flash region from an image reader. The reader
// is released when the update reaches Done or stops on an error.
type regionUpdate struct {
	f       *TPSFlasher
	session *Session
	src     string
	image   io.ReadCloser
	chunk   []byte
}

func (f *TPSFlasher) updateRegion(s *Session, region Region, src image.Source) error {
	s.Region = region
	s.State = LocateRegion
	s.Address = 0
	s.Chunks = 0
	log := s.log().WithField("region", region.String())
	log.Infof("Updating %s", region)

	r, err := src.Open()
	if err != nil {
		log.Error(err)
		metrics.RegionUpdatesTotal.WithLabelValues(region.String(), "failure").Inc()
		return &RegionError{Region: region, State: LocateRegion, Err: err}
	}
	u := &regionUpdate{f: f, session: s, src: src.String(), image: r, chunk: make([]byte, ChunkSize)}
	defer u.release()

	for s.State != Done {
		next, err := u.step()
		if err != nil {
			err = &RegionError{Region: region, State: s.State, Err: err}
			log.Error(err)
			metrics.RegionUpdatesTotal.WithLabelValues(region.String(), "failure").Inc()
			return err
		}
		if next != s.State {
			log.Debugf("%s -> %s", s.State, next)
		}
		s.State = next
	}
	metrics.RegionUpdatesTotal.WithLabelValues(region.String(), "success").Inc()
	log.Infof("%s updated and verified (%d chunks)", region, s.Chunks)
	return nil
}

func (u *regionUpdate) step() (State, error) {
	switch u.session.State {
	case LocateRegion:
		return EraseRegion, u.locate()
	case EraseRegion:
		return SetWritePointer, u.erase()
	case SetWritePointer:
		return StreamChunks, u.setWritePointer()
	case StreamChunks:
		return u.streamChunk()
	case VerifyRegion:
		if err := u.verify(); err != nil {
			return VerifyRegion, err
		}
		u.release()
		return Done, nil
	default:
		return u.session.State, fmt.Errorf("unexpected state %s", u.session.State)
	}
}

func (u *regionUpdate) release() {
	if u.image != nil {
		u.image.Close()
		u.image = nil
	}
}

func addressBytes(addr uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, addr)
	return b
}

func (u *regionUpdate) locate() error {
	out, err := u.f.engine.Execute(command.ReadRegionPointer, []byte{byte(u.session.Region)}, 4)
	if err != nil {
		return err
	}
	u.session.Address = binary.LittleEndian.Uint32(out)
	u.session.log().Debugf("%s starts at 0x%08x", u.session.Region, u.session.Address)
	return nil
}

func (u *regionUpdate) erase() error {
	in := append(addressBytes(u.session.Address), image.RegionSectors)
	out, err := u.f.engine.Execute(command.EraseMemory, in, 1)
	if err != nil {
		return err
	}
	return checkStatus(command.EraseMemory, out)
}

func (u *regionUpdate) setWritePointer() error {
	out, err := u.f.engine.Execute(command.SetWriteAddress, addressBytes(u.session.Address), 1)
	if err != nil {
		return err
	}
	if err := checkStatus(command.SetWriteAddress, out); err != nil {
		return err
	}
	u.session.log().Debugf("write pointer set to 0x%08x", u.session.Address)
	return nil
}

// streamChunk sends the next chunk of the image. The last chunk may be
// shorter than ChunkSize; it is sent as is.
func (u *regionUpdate) streamChunk() (State, error) {
	n, err := io.ReadFull(u.image, u.chunk)
	switch {
	case errors.Is(err, io.EOF):
		return VerifyRegion, nil
	case err != nil && !errors.Is(err, io.ErrUnexpectedEOF):
		return StreamChunks, &image.Error{Image: u.src, Err: err}
	}

	out, err := u.f.engine.Execute(command.WriteData, u.chunk[:n], 1)
	if err != nil {
		return StreamChunks, err
	}
	if err := checkStatus(command.WriteData, out); err != nil {
		return StreamChunks, err
	}
	u.session.Chunks++
	u.session.Written += int64(n)
	metrics.FlashBytesWritten.Add(float64(n))
	u.f.reportProgress(u.session)
	u.f.sleep(u.f.cfg.ChunkDelay)
	return StreamChunks, nil
}

func (u *regionUpdate) verify() error {
	out, err := u.f.engine.Execute(command.VerifyRegion, addressBytes(u.session.Address), 1)
	if err != nil {
		return err
	}
	return checkStatus(command.VerifyRegion, out)
}

func checkStatus(op command.Opcode, out []byte) error {
	if len(out) == 0 || out[0] != 0 {
		var status byte = 0xff
		if len(out) > 0 {
			status = out[0]
		}
		return &StatusError{Opcode: op, Status: status}
	}
	return nil
}
