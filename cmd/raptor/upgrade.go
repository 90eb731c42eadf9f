package main

import (
	"flag"
	"fmt"

	"github.com/kshedden/raptor/internal/config"
	"github.com/kshedden/raptor/internal/index"
	"github.com/kshedden/raptor/internal/ioutil"
)

// runUpgrade rewrites an index archive at the current archive
// Version. Every archive this build can produce is already at the
// current version, so in practice this is a round-trip: decode
// leniently (ignoring a version mismatch, unlike the strict Read path
// every other verb uses) and re-encode at index.Version, the same
// "read old, write new" shape a real version migration would take if
// a future format change ever needed one.
func runUpgrade(args []string) error {
	fs := flag.NewFlagSet("upgrade", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Upgrade)")
	var c config.Upgrade
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "accepted but has no effect; progress goes only to the log file")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.IndexPath, "index", "", "index archive path to upgrade")
	fs.StringVar(&c.Output, "output", "", "output path (defaults to overwriting --index)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath != "" {
		var fileCfg config.Upgrade
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		mergeUpgradeConfig(&fileCfg, &c, fs)
		c = fileCfg
	}

	if c.IndexPath == "" {
		return fmt.Errorf("--index is required")
	}
	outPath := c.Output
	if outPath == "" {
		outPath = c.IndexPath
	}

	dir, err := timingDir(c.TimingOutput)
	if err != nil {
		return err
	}
	logger, err = setupLog(dir, "upgrade.log")
	if err != nil {
		return err
	}

	idx, oldVersion, err := index.ReadAnyVersion(c.IndexPath, ioutil.CodecSnappy)
	if err != nil {
		return err
	}
	if oldVersion == index.Version {
		logger.Printf("%s is already at version %d, nothing to do", c.IndexPath, index.Version)
		if outPath == c.IndexPath {
			return nil
		}
	}

	if err := index.Write(outPath, idx, ioutil.CodecSnappy); err != nil {
		return err
	}
	logger.Printf("upgraded %s from version %d to %d, wrote %s", c.IndexPath, oldVersion, index.Version, outPath)
	return nil
}

func mergeUpgradeConfig(fileCfg, flagCfg *config.Upgrade, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threads":
			fileCfg.Threads = flagCfg.Threads
		case "quiet":
			fileCfg.Quiet = flagCfg.Quiet
		case "timing-output":
			fileCfg.TimingOutput = flagCfg.TimingOutput
		case "index":
			fileCfg.IndexPath = flagCfg.IndexPath
		case "output":
			fileCfg.Output = flagCfg.Output
		}
	})
}
