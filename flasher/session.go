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
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Phase is the step of the upgrade an orchestrator is in.
type Phase int

const (
	PhasePreCheck Phase = iota
	PhaseDisablePort
	PhaseUpdateInactive
	PhaseMirrorActive
	PhaseReset
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhasePreCheck:
		return "precheck"
	case PhaseDisablePort:
		return "disable-port"
	case PhaseUpdateInactive:
		return "update-inactive"
	case PhaseMirrorActive:
		return "mirror-active"
	case PhaseReset:
		return "reset"
	default:
		return "complete"
	}
}

// Session carries the progress of one upgrade. It is owned by the
// orchestrator and handed to each region update in turn.
type Session struct {
	ID       uuid.UUID
	Phase    Phase
	Active   Region
	Inactive Region

	// Current region update
	Region  Region
	State   State
	Address uint32
	Chunks  int

	Written int64
	Total   int64
}

func newSession() *Session {
	return &Session{ID: uuid.New()}
}

func (s *Session) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"session": s.ID.String(),
		"phase":   s.Phase.String(),
	})
}

func (s *Session) progress() int {
	if s.Total <= 0 {
		return 0
	}
	return int(s.Written * 100 / s.Total)
}
