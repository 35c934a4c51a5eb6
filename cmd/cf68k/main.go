// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ezrec/cf68k/config"
	"github.com/ezrec/cf68k/emulator"
	"github.com/ezrec/cf68k/internal"
	"github.com/ezrec/cf68k/io"
	"github.com/ezrec/cf68k/translate"
)

func main() {
	var script string
	var depot string
	var save bool
	var input string
	var output string
	var verbose bool
	var limit int
	var dump bool
	var defines bool

	flag.StringVar(&script, "c", "", ".star machine configuration")
	flag.StringVar(&depot, "d", "", "depot directory of memory segments")
	flag.BoolVar(&save, "s", false, "Save the depot segments on exit")
	flag.StringVar(&input, "i", "-", "UART input")
	flag.StringVar(&output, "o", "-", "UART output")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&limit, "n", 0, "Stop after this many blocks")
	flag.BoolVar(&dump, "r", false, "Print the registers on exit")
	flag.BoolVar(&defines, "D", false, "List the names predeclared in configuration scripts")

	flag.Parse()

	if flag.NArg() != 0 {
		logrus.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if defines {
		for key, value := range internal.IterSeq2Sorted(config.Defines()) {
			fmt.Printf("%v = %v\n", key, value)
		}
		return
	}

	cfg := config.Default()
	if len(script) != 0 {
		var err error
		cfg, err = config.LoadFile(script)
		if err != nil {
			logrus.Fatalf("%v: %v", script, err)
		}
	}
	if len(depot) != 0 {
		cfg.Depot = depot
		cfg.Dir = ""
	}
	cfg.Verbose = cfg.Verbose || verbose
	cfg.Options.Verbose = cfg.Verbose

	uart := &io.Uart{}
	if input == "-" {
		uart.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			logrus.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		uart.Input = inf
	}

	if output == "-" {
		uart.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			logrus.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		uart.Output = ouf
	}

	emu, segments, err := cfg.Build(uart)
	if err != nil {
		logrus.Fatal(err)
	}
	defer emu.Bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = emu.Run(ctx, limit)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logrus.Info("interrupted")
	case errors.Is(err, emulator.ErrBreakpoint), errors.Is(err, emulator.ErrWatchpoint):
		logrus.Info(err)
		dump = dump || term.IsTerminal(int(os.Stderr.Fd()))
	default:
		logrus.Error(err)
		dump = dump || term.IsTerminal(int(os.Stderr.Fd()))
	}

	logrus.WithFields(logrus.Fields{
		"blocks":     emu.Stats.Blocks,
		"translated": emu.Stats.Translated,
		"chained":    emu.Stats.Chained,
		"exceptions": emu.Stats.Exceptions,
	}).Debug("cf68k: done")

	if dump {
		fmt.Fprint(os.Stderr, emu.Cpu.String())
		translate.Fprintf(os.Stderr, "%d blocks, %d translated, %d chained, %d exceptions\n",
			emu.Stats.Blocks, emu.Stats.Translated, emu.Stats.Chained, emu.Stats.Exceptions)
	}

	if save {
		err = cfg.SaveDepot(segments, emu.Bus)
		if err != nil {
			logrus.Fatal(err)
		}
	}
}
