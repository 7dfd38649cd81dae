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

// Package status answers read-only questions about the port: power and data
// role, advertised current and the partner's source capabilities.
package status

import (
	"fmt"
	"strings"

	"github.com/tymphany/tps-drv/registers"
	"github.com/tymphany/tps-drv/transport"
)

// Querier reads port state from the controller.
type Querier struct {
	bus transport.Bus
}

func NewQuerier(bus transport.Bus) *Querier {
	return &Querier{bus: bus}
}

// Status returns the decoded status register.
func (q *Querier) Status() (*registers.StatusReg, error) {
	st := &registers.StatusReg{}
	if err := registers.Read(q.bus, st); err != nil {
		return nil, err
	}
	return st, nil
}

// PowerStatus returns the decoded power status register.
func (q *Querier) PowerStatus() (*registers.PowerStatusReg, error) {
	ps := &registers.PowerStatusReg{}
	if err := registers.Read(q.bus, ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (q *Querier) PortRole() (registers.PortRole, error) {
	st, err := q.Status()
	if err != nil {
		return registers.Sink, err
	}
	return st.Role(), nil
}

func (q *Querier) DataRole() (registers.DataRole, error) {
	st, err := q.Status()
	if err != nil {
		return registers.UFP, err
	}
	return st.Direction(), nil
}

func (q *Querier) TypeCCurrent() (registers.TypeCCurrent, error) {
	ps, err := q.PowerStatus()
	if err != nil {
		return registers.DefaultCurrent, err
	}
	return ps.Current(), nil
}

// SourceCapabilities returns the capabilities last received from the partner.
func (q *Querier) SourceCapabilities() (*registers.RXSourceCapabilities, error) {
	caps := &registers.RXSourceCapabilities{}
	if err := registers.Read(q.bus, caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// NumValidPDOs returns the number of valid source PDOs.
func (q *Querier) NumValidPDOs() (int, error) {
	caps, err := q.SourceCapabilities()
	if err != nil {
		return 0, err
	}
	return int(caps.NumValidPDOs), nil
}

// Report is a snapshot of the port.
type Report struct {
	Connected    bool     `json:"connected"`
	PortRole     string   `json:"port_role"`
	DataRole     string   `json:"data_role"`
	TypeCCurrent string   `json:"typec_current"`
	PowerSource  bool     `json:"power_connection"`
	NumValidPDOs int      `json:"num_valid_pdos"`
	PDOs         []string `json:"pdos"`
}

// Snapshot reads everything Report needs.
func (q *Querier) Snapshot() (*Report, error) {
	st, err := q.Status()
	if err != nil {
		return nil, err
	}
	ps, err := q.PowerStatus()
	if err != nil {
		return nil, err
	}
	caps, err := q.SourceCapabilities()
	if err != nil {
		return nil, err
	}
	r := &Report{
		Connected:    st.Connected(),
		PortRole:     st.Role().String(),
		DataRole:     st.Direction().String(),
		TypeCCurrent: ps.Current().String(),
		PowerSource:  ps.PowerConnection != 0,
		NumValidPDOs: int(caps.NumValidPDOs),
		PDOs:         []string{},
	}
	for _, pdo := range caps.PDOs() {
		r.PDOs = append(r.PDOs, fmt.Sprintf("0x%08x", pdo))
	}
	return r, nil
}

func (r *Report) Data() interface{} {
	return r
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Connected:      %t\n", r.Connected)
	fmt.Fprintf(&b, "Port role:      %s\n", r.PortRole)
	fmt.Fprintf(&b, "Data role:      %s\n", r.DataRole)
	fmt.Fprintf(&b, "Type-C current: %s\n", r.TypeCCurrent)
	fmt.Fprintf(&b, "Valid PDOs:     %d", r.NumValidPDOs)
	for i, pdo := range r.PDOs {
		fmt.Fprintf(&b, "\n  PDO%d: %s", i+1, pdo)
	}
	return b.String()
}
