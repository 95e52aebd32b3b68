package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

type infoCommand struct {
	in  string
	dir string
	out io.Writer
}

func (cmd *infoCommand) Name() string {
	return "info"
}

func (cmd *infoCommand) Help() string {
	return "Print information about material"
}

func (cmd *infoCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.in, "in", "", "Input file (.wav, .mp3 or .chunk)")
	fs.StringVar(&cmd.dir, "dir", "", "Directory with audio files, scanned recursively")
}

func (cmd *infoCommand) Validate() error {
	if cmd.in == "" && cmd.dir == "" {
		return errors.New("please provide input file or directory")
	}
	return nil
}

func (cmd *infoCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	out := cmd.out
	if out == nil {
		out = os.Stdout
	}
	if cmd.in != "" {
		if err := printInfo(out, cmd.in); err != nil {
			return err
		}
	}
	if cmd.dir == "" {
		return nil
	}
	loaded := materials.Preload(logger, cmd.dir)
	defer func() {
		for _, path := range loaded {
			materials.Release(path)
		}
	}()
	for _, path := range loaded {
		fmt.Fprintln(out)
		if err := printInfo(out, path); err != nil {
			return err
		}
	}
	return nil
}

func printInfo(out io.Writer, path string) error {
	src, release, err := loadSource(path)
	if err != nil {
		return err
	}
	defer release()
	info, err := src.MaterialInfo()
	if err != nil {
		return err
	}
	kind := "audio"
	if info.IsMidi {
		kind = "midi"
	}
	fmt.Fprintf(out, "File:\t\t%s\n", path)
	fmt.Fprintf(out, "Kind:\t\t%s\n", kind)
	fmt.Fprintf(out, "Channels:\t%d\n", info.ChannelCount)
	fmt.Fprintf(out, "Frame rate:\t%v\n", info.FrameRate)
	fmt.Fprintf(out, "Frames:\t\t%d\n", info.FrameCount)
	fmt.Fprintf(out, "Duration:\t%v\n", info.Duration())
	return nil
}
