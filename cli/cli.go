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

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tymphany/tps-drv/cli/command"
	"github.com/tymphany/tps-drv/cli/feedback"
	"github.com/tymphany/tps-drv/cli/firmware"
	"github.com/tymphany/tps-drv/cli/globals"
	"github.com/tymphany/tps-drv/cli/status"
	"github.com/tymphany/tps-drv/cli/version"
	"github.com/tymphany/tps-drv/config"
	v "github.com/tymphany/tps-drv/version"
)

var (
	outputFormat string
	logFile      string
	logFormat    string
)

func NewCommand() *cobra.Command {
	// tps-ota is the root command
	rootCmd := &cobra.Command{
		Use:              "tps-ota",
		Short:            "TPS65987 firmware updater.",
		Long:             "tps-ota flashes and inspects the firmware of TPS65987 USB-PD controllers over I2C.",
		Example:          "  " + os.Args[0] + " <command> [flags...]",
		Args:             cobra.NoArgs,
		PersistentPreRun: preRun,
	}

	rootCmd.AddCommand(version.NewCommand())
	rootCmd.AddCommand(firmware.NewCommand())
	rootCmd.AddCommand(status.NewCommand())
	rootCmd.AddCommand(command.NewCommand())

	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "The output format, can be {text|json}.")
	rootCmd.PersistentFlags().StringVar(&globals.ConfigFile, "config", "", "Path of the configuration file (default "+config.DefaultPath+")")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to the file where logs will be written (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "The output format for the logs, can be {text|json}.")
	rootCmd.PersistentFlags().StringVar(&globals.LogLevel, "log-level", "info", "Messages with this level and above will be logged. Valid levels are: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "Print the logs on the standard output.")

	return rootCmd
}

// Convert the string passed to the `--log-level` option to the corresponding
// logrus formal level.
func toLogLevel(s string) (t logrus.Level, found bool) {
	t, found = map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}[s]

	return
}

func preRun(cmd *cobra.Command, args []string) {
	// normalize the format strings
	outputFormat = strings.ToLower(outputFormat)
	// check the right output format was passed
	format, found := feedback.ParseOutputFormat(outputFormat)
	if !found {
		feedback.Fatal(fmt.Sprintf("Invalid output format: %s", outputFormat), feedback.ErrBadArgument)
	}
	// use the output format to configure the Feedback
	feedback.SetFormat(format)

	// Prepare logging
	if globals.Verbose {
		// if we print on a terminal, do it in full colors
		logrus.SetOutput(colorable.NewColorableStdout())
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors: isatty.IsTerminal(os.Stdout.Fd()),
		})
	} else {
		logrus.SetOutput(io.Discard)
	}

	logFormat = strings.ToLower(logFormat)
	if logFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Configure logging filter
	if lvl, found := toLogLevel(globals.LogLevel); !found {
		feedback.Fatal(fmt.Sprintf("Invalid option for --log-level: %s", globals.LogLevel), feedback.ErrBadArgument)
	} else {
		logrus.SetLevel(lvl)
	}

	loadConfig()
	addLogFileHook()

	logrus.Info(v.VersionInfo)

	if outputFormat != "text" {
		cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
			logrus.Warn("Calling help on JSON format")
			feedback.Fatal("Invalid Call : should show Help, but it is available only in TEXT mode.", feedback.ErrBadArgument)
		})
	}
}

// loadConfig reads the file given with --config, which must exist, or the
// default one, which may be missing.
func loadConfig() {
	file, mustExist := paths.New(config.DefaultPath), false
	if globals.ConfigFile != "" {
		file, mustExist = paths.New(globals.ConfigFile), true
	}
	cfg, err := config.Load(file, mustExist)
	if err != nil {
		code := feedback.ErrBadArgument
		if mustExist && !file.Exist() {
			code = feedback.ErrNoConfigFile
		}
		feedback.Fatal(fmt.Sprintf("Error loading configuration: %s", err), code)
	}
	globals.Config = cfg
}

func addLogFileHook() {
	path := logFile
	if path == "" {
		path = globals.Config.LogFile
	}
	if path == "" {
		return
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		if logFile != "" {
			feedback.Fatal(fmt.Sprintf("Unable to open file for logging: %s", logFile), feedback.ErrBadArgument)
		}
		// the default location is not writable everywhere
		logrus.Warnf("Unable to open file for logging: %s", path)
		return
	}

	// Use a hook so we don't get color codes in the log file
	if logFormat == "json" {
		logrus.AddHook(lfshook.NewHook(file, &logrus.JSONFormatter{}))
	} else {
		logrus.AddHook(lfshook.NewHook(file, &logrus.TextFormatter{}))
	}
}
