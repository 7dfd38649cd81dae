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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds only the collectors of this program so that the textfile
// export does not pick up Go runtime metrics.
var Registry = prometheus.NewRegistry()

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tps_command_total",
			Help: "Number of 4CC commands executed, by opcode and result",
		},
		[]string{"opcode", "result"},
	)

	CommandPolls = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tps_command_poll_attempts",
			Help:    "Number of completion polls needed by a 4CC command",
			Buckets: []float64{1, 2, 5, 10, 25, 50},
		},
	)

	RegionUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tps_region_update_total",
			Help: "Number of flash region updates, by region and result",
		},
		[]string{"region", "result"},
	)

	FlashBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tps_flash_bytes_written_total",
			Help: "Number of image bytes streamed to the controller flash",
		},
	)

	UpgradeOutcome = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tps_upgrade_outcome",
			Help: "Outcome of the last firmware upgrade (1 for the outcome that occurred)",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		CommandsTotal,
		CommandPolls,
		RegionUpdatesTotal,
		FlashBytesWritten,
		UpgradeOutcome,
	)
}

// SetOutcome marks outcome as the result of the last upgrade.
func SetOutcome(outcome string) {
	UpgradeOutcome.Reset()
	UpgradeOutcome.WithLabelValues(outcome).Set(1)
}

// WriteTextfile stores every collector in the node-exporter textfile format.
func WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, Registry)
}
