// Command dfuctl is the host-side DFU CLI: scan for devices, install a
// single image, install a sequence of images described on the command
// line, reboot, and list the most recently discovered devices.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tdw-glyd/dfu-proto/internal/logging"
)

func main() {
	app := &cli.App{
		Name:  "dfuctl",
		Usage: "firmware update control for DFU-protocol targets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Value: "loopback", Usage: "serial | ethernet | loopback"},
			&cli.StringFlag{Name: "serial-port", Usage: "serial device path (transport=serial)"},
			&cli.UintFlag{Name: "baud", Value: 115200, Usage: "serial baud rate (transport=serial)"},
			&cli.StringFlag{Name: "iface", Usage: "network interface name (transport=ethernet)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logging.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			scanCommand(),
			listCommand(),
			installCommand(),
			installBatchCommand(),
			rebootCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}
