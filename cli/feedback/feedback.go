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

package feedback

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ExitCode to be used for Fatal.
type ExitCode int

const (
	// Success (0 is the no-error return code in Unix)
	Success ExitCode = iota

	// ErrGeneric Generic error (1 is the reserved "catchall" code in Unix)
	ErrGeneric

	_ // (2 Is reserved in Unix)

	// ErrNoConfigFile is returned when the config file is not found (3)
	ErrNoConfigFile

	// ErrBus is returned when the controller cannot be reached (4)
	ErrBus

	// ErrNetwork is returned when an image download fails (5)
	ErrNetwork

	// ErrUpToDate is returned when the image is not newer than the installed one (6)
	ErrUpToDate

	// ErrBadArgument is returned when the arguments are not valid (7)
	ErrBadArgument

	// ErrPreCheck is returned when the upgrade stopped before touching the flash (8)
	ErrPreCheck

	// ErrRegionUpdate is returned when the inactive region could not be
	// rewritten. The device still boots from the active region. (9)
	ErrRegionUpdate

	// ErrDegraded is returned when only the inactive region holds the new
	// image. The device boots but the regions differ. (10)
	ErrDegraded

	// ErrRestartUnconfirmed is returned when the controller did not come back
	// in application mode after the upgrade (11)
	ErrRestartUnconfirmed
)

// OutputFormat selects how results and errors are printed.
type OutputFormat int

const (
	// Text is meant for a person at a terminal
	Text OutputFormat = iota
	// JSON is meant for the OTA agent driving tps-ota
	JSON
)

var formatNames = []string{Text: "text", JSON: "json"}

func (f OutputFormat) String() string {
	if int(f) < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("format(%d)", int(f))
	}
	return formatNames[f]
}

// ParseOutputFormat returns the format named in, which must be lower case.
func ParseOutputFormat(in string) (OutputFormat, bool) {
	for f, name := range formatNames {
		if name == in {
			return OutputFormat(f), true
		}
	}
	return Text, false
}

// Result is printed with String in text mode and encoded from Data in JSON mode.
type Result interface {
	fmt.Stringer
	Data() interface{}
}

// ErrorResult is a Result that may carry a failure. In text mode
// ErrorString goes to stderr after the result.
type ErrorResult interface {
	Result
	ErrorString() string
}

var (
	format   = Text
	selected bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// SetFormat selects the output format. It may be called once.
func SetFormat(f OutputFormat) {
	if selected {
		panic("output format already selected")
	}
	format, selected = f, true
}

// GetFormat returns the selected output format.
func GetFormat() OutputFormat {
	return format
}

// PrintResult prints res in the selected format.
func PrintResult(res Result) {
	if format == JSON {
		printJSON(res.Data())
		return
	}
	if text := res.String(); text != "" {
		fmt.Fprintln(stdout, text)
	}
	if er, ok := res.(ErrorResult); ok {
		if msg := er.ErrorString(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
	}
}

// FatalResult prints res and exits with exitCode.
func FatalResult(res ErrorResult, exitCode ExitCode) {
	PrintResult(res)
	exit(int(exitCode))
}

// FatalError prints err and exits with exitCode.
func FatalError(err error, exitCode ExitCode) {
	Fatal(err.Error(), exitCode)
}

// Fatal prints errorMsg, to stderr in text mode or as {"error": ...} on
// stdout in JSON mode, and exits with exitCode.
func Fatal(errorMsg string, exitCode ExitCode) {
	if format == JSON {
		printJSON(map[string]string{"error": errorMsg})
	} else {
		fmt.Fprintln(stderr, errorMsg)
	}
	exit(int(exitCode))
}

func printJSON(v interface{}) {
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error during JSON encoding of the output: %v\n", err)
		exit(int(ErrGeneric))
		return
	}
	fmt.Fprintln(stdout, string(d))
}
