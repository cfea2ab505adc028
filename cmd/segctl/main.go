// segctl is an operator tool for segment usage metadata files: it creates
// and inspects them, exercises the allocator, resizes the segment universe,
// and trims clean segments out of a file-backed volume image.
//
// The metadata file geometry comes from a YAML config:
//
//	block_size: 4096
//	entry_size: 16
//	n_segments: 1024
//	blocks_per_segment: 2048
//	reserved_percent: 5
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/loglayer/segkit/blockstore"
	"github.com/loglayer/segkit/device"
	"github.com/loglayer/segkit/segfile"
)

type config struct {
	BlockSize        int    `yaml:"block_size"`
	EntrySize        int    `yaml:"entry_size"`
	NSegments        uint64 `yaml:"n_segments"`
	BlocksPerSegment uint64 `yaml:"blocks_per_segment"`
	ReservedPercent  uint64 `yaml:"reserved_percent"`
}

func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = 4096
	}
	return cfg, nil
}

func (c config) fileConfig() segfile.Config {
	return segfile.Config{
		NSegments:        c.NSegments,
		BlocksPerSegment: c.BlocksPerSegment,
		EntrySize:        c.EntrySize,
		ReservedPercent:  c.ReservedPercent,
	}
}

const usage = `usage: segctl --config <cfg.yaml> --file <metadata-file> [flags] <command>

commands:
  create                  initialize an empty metadata file
  stat                    print segment usage statistics
  alloc                   allocate one clean segment
  free <segnum>...        return segments to the clean pool
  set-range <start> <end> restrict the allocatable segment range
  resize <nsegments>      grow or shrink the segment universe
  trim                    discard clean segments from the volume image
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "segctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath string
		filePath   string
		imagePath  string
		verbose    bool

		trimStart  uint64
		trimLen    uint64
		trimMinLen uint64
	)

	flags := pflag.NewFlagSet("segctl", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "", "path to the YAML geometry config")
	flags.StringVarP(&filePath, "file", "f", "", "path to the segment usage metadata file")
	flags.StringVar(&imagePath, "image", "", "volume image to punch trim extents out of")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log warnings and faults to stderr")
	flags.Uint64Var(&trimStart, "start", 0, "trim: byte offset of the range on the volume")
	flags.Uint64Var(&trimLen, "len", 0, "trim: byte length of the range (0 = whole volume)")
	flags.Uint64Var(&trimMinLen, "min-len", 0, "trim: skip extents shorter than this many bytes")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 {
		flags.Usage()
		return fmt.Errorf("missing command")
	}
	if configPath == "" || filePath == "" {
		return fmt.Errorf("--config and --file are required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logw := io.Discard
	if verbose {
		logw = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logw, nil))

	store, err := blockstore.OpenFileStore(filePath, cfg.BlockSize)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer store.Close()

	cmd, cmdArgs := flags.Arg(0), flags.Args()[1:]
	if cmd == "create" {
		if err := segfile.Create(store, cfg.fileConfig()); err != nil {
			return err
		}
		return store.Flush()
	}

	opts := []segfile.Option{segfile.WithLogger(log)}
	var image *os.File
	if imagePath != "" {
		image, err = os.OpenFile(imagePath, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer image.Close()
		opts = append(opts, segfile.WithDiscarder(device.NewFileDiscarder(image, cfg.BlockSize)))
	}
	f, err := segfile.Open(store, cfg.fileConfig(), opts...)
	if err != nil {
		return err
	}

	switch cmd {
	case "stat":
		stat, err := f.GetStat()
		if err != nil {
			return err
		}
		fmt.Printf("segments:    %d\n", stat.NSegments)
		fmt.Printf("clean:       %d\n", stat.CleanSegs)
		fmt.Printf("dirty:       %d\n", stat.DirtySegs)
		return nil

	case "alloc":
		sn, err := f.Allocate()
		if err != nil {
			return err
		}
		fmt.Println(sn)
		return store.Flush()

	case "free":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("free: at least one segment number required")
		}
		segnums := make([]uint64, len(cmdArgs))
		for i, a := range cmdArgs {
			if segnums[i], err = strconv.ParseUint(a, 10, 64); err != nil {
				return fmt.Errorf("free: bad segment number %q", a)
			}
		}
		done, err := f.FreeMany(segnums)
		if err != nil {
			return fmt.Errorf("freed %d of %d: %w", done, len(segnums), err)
		}
		return store.Flush()

	case "set-range":
		if len(cmdArgs) != 2 {
			return fmt.Errorf("set-range: start and end segment numbers required")
		}
		start, err := strconv.ParseUint(cmdArgs[0], 10, 64)
		if err != nil {
			return fmt.Errorf("set-range: bad start %q", cmdArgs[0])
		}
		end, err := strconv.ParseUint(cmdArgs[1], 10, 64)
		if err != nil {
			return fmt.Errorf("set-range: bad end %q", cmdArgs[1])
		}
		return f.SetAllocationRange(start, end)

	case "resize":
		if len(cmdArgs) != 1 {
			return fmt.Errorf("resize: new segment count required")
		}
		nsegs, err := strconv.ParseUint(cmdArgs[0], 10, 64)
		if err != nil {
			return fmt.Errorf("resize: bad segment count %q", cmdArgs[0])
		}
		if err := f.Resize(nsegs); err != nil {
			return err
		}
		return store.Flush()

	case "trim":
		if imagePath == "" {
			return fmt.Errorf("trim: --image is required")
		}
		length := trimLen
		if length == 0 {
			length = f.NSegments() * cfg.BlocksPerSegment * uint64(cfg.BlockSize)
		}
		n, err := f.Trim(segfile.TrimRange{Start: trimStart, Len: length, MinLen: trimMinLen})
		if err != nil {
			return fmt.Errorf("trimmed %d bytes: %w", n, err)
		}
		fmt.Printf("trimmed %d bytes\n", n)
		return nil

	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
