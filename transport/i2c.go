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

package transport

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2CBus talks to the controller through a Linux I2C adapter.
type I2CBus struct {
	name string
	bus  i2c.BusCloser
	dev  *i2c.Dev
}

// BusName converts the accepted spellings of an adapter ("/dev/i2c-1",
// "I2C1", "1") to a name the periph registry understands.
func BusName(name string) string {
	return strings.TrimPrefix(name, "/dev/i2c-")
}

// OpenI2C opens the adapter called name and binds it to the device at addr.
func OpenI2C(name string, addr uint16) (*I2CBus, error) {
	if _, err := host.Init(); err != nil {
		err = fmt.Errorf("initializing host drivers: %w", err)
		logrus.Error(err)
		return nil, err
	}
	bus, err := i2creg.Open(BusName(name))
	if err != nil {
		err = fmt.Errorf("opening i2c bus %s: %w", name, err)
		logrus.Error(err)
		return nil, err
	}
	logrus.Infof("Opened i2c bus %s, device address 0x%02x", name, addr)
	return &I2CBus{
		name: name,
		bus:  bus,
		dev:  &i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// WriteRegister sends [reg, len(data), data...] in a single transaction.
func (b *I2CBus) WriteRegister(reg byte, data []byte) error {
	if err := CheckWrite(reg, data); err != nil {
		logrus.Error(err)
		return err
	}
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, reg, byte(len(data)))
	frame = append(frame, data...)
	logrus.Tracef("i2c write: % x", frame)
	if err := b.dev.Tx(frame, nil); err != nil {
		err = &Error{Op: "write", Reg: reg, Err: err}
		logrus.Error(err)
		return err
	}
	return nil
}

// ReadRegister addresses reg and reads n+1 bytes back, dropping the leading
// length byte the controller returns.
func (b *I2CBus) ReadRegister(reg byte, n int) ([]byte, error) {
	if err := CheckRead(reg, n); err != nil {
		logrus.Error(err)
		return nil, err
	}
	buf := make([]byte, n+1)
	if err := b.dev.Tx([]byte{reg}, buf); err != nil {
		err = &Error{Op: "read", Reg: reg, Err: err}
		logrus.Error(err)
		return nil, err
	}
	logrus.Tracef("i2c read 0x%02x: % x", reg, buf)
	return buf[1:], nil
}

// Close releases the adapter.
func (b *I2CBus) Close() error {
	return b.bus.Close()
}

func (b *I2CBus) String() string {
	return fmt.Sprintf("%s@0x%02x", b.name, b.dev.Addr)
}
