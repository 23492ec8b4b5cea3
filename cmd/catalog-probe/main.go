package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/imagecatalog/internal/probe"
)

const defaultProbeTimeout = 5 * time.Minute

func main() {
	flags, fs, err := probe.ParseFlags("catalog-probe", os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("catalog-probe: " + err.Error() + "\n")
		if fs != nil {
			probe.ShowHelp(os.Stderr, fs)
		}
		os.Exit(2)
	}
	if flags.Help {
		probe.ShowHelp(os.Stdout, fs)
		return
	}

	if err := probe.SetupLogging(flags.LogFormat, flags.Config.Verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(&flags.Config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(config *probe.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	_, err := probe.Run(ctx, config)
	return err
}
