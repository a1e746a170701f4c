package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/cryptoprovider"
	"github.com/tdw-glyd/dfu-proto/internal/engine"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/logging"
	"github.com/tdw-glyd/dfu-proto/internal/registry"
	"github.com/tdw-glyd/dfu-proto/internal/session"
	"github.com/tdw-glyd/dfu-proto/internal/transaction"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

var log = logging.For("dfuctl")

// openAdapter builds a link.Adapter from the global --transport flags.
// Closers for Serial/RawEthernet are returned so callers can release
// the underlying file descriptor; Loopback has none.
func openAdapter(c *cli.Context) (link.Adapter, func() error, error) {
	switch c.String("transport") {
	case "serial":
		path := c.String("serial-port")
		if path == "" {
			return nil, nil, fmt.Errorf("dfuctl: --serial-port is required for transport=serial")
		}
		s, err := link.OpenSerial(path, uint32(c.Uint("baud")))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "ethernet":
		iface := c.String("iface")
		if iface == "" {
			return nil, nil, fmt.Errorf("dfuctl: --iface is required for transport=ethernet")
		}
		e, err := link.OpenRawEthernet(iface, net.HardwareAddr(nil))
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	case "loopback", "":
		a, _ := link.NewLoopbackPair()
		return a, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("dfuctl: unknown transport %q", c.String("transport"))
	}
}

// newClient wires a fresh engine.Instance and transaction.Client over
// adapter, matching internal/session's expected collaborator shape.
func newClient(adapter link.Adapter) *transaction.Client {
	cfg := config.DefaultConfig()
	inst := engine.NewInstance(cfg, engine.Callbacks{Adapter: adapter}, nil)
	return transaction.NewClient(inst, 5*time.Millisecond)
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "listen for unsolicited DEVICE_STATUS broadcasts",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "duration", Value: 5 * time.Second, Usage: "how long to listen"},
		},
		Action: func(c *cli.Context) error {
			records, err := discover(c, c.Duration("duration"))
			if err != nil {
				return err
			}
			printRecords(records)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "alias for scan with a short listen window",
		Action: func(c *cli.Context) error {
			records, err := discover(c, 750*time.Millisecond)
			if err != nil {
				return err
			}
			printRecords(records)
			return nil
		},
	}
}

// discover listens on the configured transport for window and folds
// every DEVICE_STATUS frame seen into a single registry.List. dfuctl
// has no persistent store between invocations, so "list" is simply
// "scan" with a shorter window rather than a separate cached view.
func discover(c *cli.Context, window time.Duration) ([]registry.Record, error) {
	adapter, closeFn, err := openAdapter(c)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	cfg := config.DefaultConfig()
	reg := registry.New(cfg)
	_, list, ok := reg.Reserve()
	if !ok {
		return nil, fmt.Errorf("dfuctl: registry pool exhausted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return list.All(), nil
		case <-ticker.C:
			frame, source, ok := adapter.Recv(ctx)
			if !ok {
				continue
			}
			if len(frame) == 0 {
				continue
			}
			cmd, _, msgType := wire.ParseHeader(frame[0])
			if cmd != wire.DeviceStatus || msgType != wire.MsgUnsolicited {
				continue
			}
			report, err := wire.DecodeDeviceStatus(frame)
			if err != nil {
				log.WithError(err).Warn("malformed DEVICE_STATUS")
				continue
			}
			list.ApplyDeviceStatus(source.ID, registry.FromReport(report, 0), time.Now())
		}
	}
}

func printRecords(records []registry.Record) {
	if len(records) == 0 {
		fmt.Println(yellow("no devices found"))
		return
	}
	fmt.Printf("%s\n", green(fmt.Sprintf("found %d device(s)", len(records))))
	for _, r := range records {
		fmt.Printf("  %s  type=%d variant=%d bl=%d.%d.%d status=%#02x seen=%s\n",
			cyan(r.PhysicalAddr), r.DeviceType, r.Variant,
			r.BLVersion.Major, r.BLVersion.Minor, r.BLVersion.Patch,
			byte(r.StatusBits), r.LastSeen.Format(time.RFC3339))
	}
}

func installCommand() *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "install one firmware image over an authenticated session",
		ArgsUsage: "<image-file>",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "index", Value: 1, Usage: "target image index"},
			&cli.UintFlag{Name: "addr", Usage: "destination address"},
			&cli.BoolFlag{Name: "encrypted", Usage: "mark the image payload as encrypted"},
			&cli.UintFlag{Name: "mtu", Value: 64, Usage: "proposed MTU"},
			&cli.StringFlag{Name: "peer-pubkey", Usage: "hex-encoded Curve25519 public key for the challenge"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("dfuctl: install requires exactly one image file argument")
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return fmt.Errorf("dfuctl: reading image: %w", err)
			}

			encrypter, err := resolveEncrypter(c)
			if err != nil {
				return err
			}

			adapter, closeFn, err := openAdapter(c)
			if err != nil {
				return err
			}
			defer closeFn()

			client := newClient(adapter)
			seq := session.NewSequencer(client, encrypter)

			img := session.Image{
				Index:     uint8(c.Uint("index")),
				Encrypted: c.Bool("encrypted"),
				Addr:      uint32(c.Uint("addr")),
				Data:      data,
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			progress := func(sent, total int) {
				fmt.Printf("\r%s %d/%d bytes", cyan("transferring"), sent, total)
			}
			if err := seq.Open(ctx, uint16(c.Uint("mtu")), img, progress); err != nil {
				fmt.Println()
				return fmt.Errorf("dfuctl: install failed: %w", err)
			}
			fmt.Println()
			fmt.Println(green("install complete"))
			return nil
		},
	}
}

// resolveEncrypter builds the challenge encrypter for install/install-batch.
// Box (Curve25519) is the only one wired into the CLI; RSA key
// provisioning has no established flag convention, so it stays a
// programmatic-only option in internal/cryptoprovider.
func resolveEncrypter(c *cli.Context) (cryptoprovider.ChallengeEncrypter, error) {
	hexKey := c.String("peer-pubkey")
	if hexKey == "" {
		return nil, fmt.Errorf("dfuctl: --peer-pubkey is required")
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("dfuctl: --peer-pubkey must be 32 bytes of hex")
	}
	var pub [32]byte
	copy(pub[:], raw)
	return cryptoprovider.NewBoxEncrypter(pub), nil
}

// batchEntry describes one image/index/address triple for install-batch.
// Parsed straight off the --spec flag value, never from a manifest file.
type batchEntry struct {
	Image string
	Index uint8
	Addr  uint32
}

// parseBatchSpec parses "path@addr=index,path2@addr2=index2" entries.
// addr is optional and defaults to 0; index defaults to 1.
func parseBatchSpec(spec string) ([]batchEntry, error) {
	var entries []batchEntry
	for _, raw := range strings.Split(spec, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		e := batchEntry{Index: 1}
		rest := raw
		if i := strings.LastIndex(rest, "="); i >= 0 {
			idx, err := strconv.ParseUint(rest[i+1:], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("dfuctl: bad index in %q: %w", raw, err)
			}
			e.Index = uint8(idx)
			rest = rest[:i]
		}
		if i := strings.LastIndex(rest, "@"); i >= 0 {
			addr, err := strconv.ParseUint(rest[i+1:], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("dfuctl: bad address in %q: %w", raw, err)
			}
			e.Addr = uint32(addr)
			rest = rest[:i]
		}
		if rest == "" {
			return nil, fmt.Errorf("dfuctl: missing image path in %q", raw)
		}
		e.Image = rest
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dfuctl: --spec has no entries")
	}
	return entries, nil
}

func installBatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "install-batch",
		Usage: "install a sequence of images, one session per image, e.g. --spec a.bin@0x10000=3,b.bin@0x20000=4",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "mtu", Value: 64},
			&cli.StringFlag{Name: "spec", Required: true, Usage: "comma-separated image@addr=index list"},
			&cli.BoolFlag{Name: "encrypted", Usage: "mark every image payload as encrypted"},
			&cli.StringFlag{Name: "peer-pubkey", Usage: "hex-encoded Curve25519 public key shared by every entry"},
		},
		Action: func(c *cli.Context) error {
			entries, err := parseBatchSpec(c.String("spec"))
			if err != nil {
				return err
			}
			encrypter, err := resolveEncrypter(c)
			if err != nil {
				return err
			}

			var failures int
			for i, e := range entries {
				fmt.Printf("[%d/%d] %s -> index %d\n", i+1, len(entries), e.Image, e.Index)
				if err := installOne(c, e, encrypter); err != nil {
					fmt.Println(red(err.Error()))
					failures++
					continue
				}
				fmt.Println(green("  ok"))
			}
			if failures > 0 {
				return fmt.Errorf("dfuctl: %d/%d installs failed", failures, len(entries))
			}
			return nil
		},
	}
}

func installOne(c *cli.Context, e batchEntry, encrypter cryptoprovider.ChallengeEncrypter) error {
	data, err := os.ReadFile(e.Image)
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.Image, err)
	}

	adapter, closeFn, err := openAdapter(c)
	if err != nil {
		return err
	}
	defer closeFn()

	client := newClient(adapter)
	seq := session.NewSequencer(client, encrypter)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	img := session.Image{Index: e.Index, Encrypted: c.Bool("encrypted"), Addr: e.Addr, Data: data}
	return seq.Open(ctx, uint16(c.Uint("mtu")), img, nil)
}

func rebootCommand() *cli.Command {
	return &cli.Command{
		Name:  "reboot",
		Usage: "ask the target to reboot",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "delay-ms", Value: 1000},
		},
		Action: func(c *cli.Context) error {
			adapter, closeFn, err := openAdapter(c)
			if err != nil {
				return err
			}
			defer closeFn()

			client := newClient(adapter)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Reboot(ctx, uint16(c.Uint("delay-ms"))); err != nil {
				return fmt.Errorf("dfuctl: reboot: %w", err)
			}
			fmt.Println(green("reboot requested"))
			return nil
		},
	}
}
