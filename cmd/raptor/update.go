package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/kshedden/raptor/internal/config"
	"github.com/kshedden/raptor/internal/index"
	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/reader"
)

// runUpdate dispatches "raptor update insert|delete" (C9): both
// mutate an existing hierarchical index in place and rewrite it to
// the same path (or --output, if given).
func runUpdate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("update requires a sub-verb: insert or delete")
	}
	switch args[0] {
	case "insert":
		return runUpdateInsert(args[1:])
	case "delete":
		return runUpdateDelete(args[1:])
	default:
		return fmt.Errorf("unknown update sub-verb %q (want insert or delete)", args[0])
	}
}

func runUpdateInsert(args []string) error {
	fs := flag.NewFlagSet("update insert", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Update)")
	var c config.Update
	var insertFiles string
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "accepted but has no effect; progress goes only to the log file")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.IndexPath, "index", "", "index archive path")
	fs.StringVar(&c.Output, "output", "", "output path (defaults to overwriting --index)")
	fs.Int64Var(&c.InsertID, "insert-id", 0, "new user bin id")
	fs.StringVar(&insertFiles, "insert-files", "", "comma-separated source files for the new user bin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath != "" {
		var fileCfg config.Update
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		fileCfg.InsertID = c.InsertID
		fileCfg.InsertFiles = splitNonEmpty(insertFiles)
		c = fileCfg
	} else {
		c.InsertFiles = splitNonEmpty(insertFiles)
	}

	if c.IndexPath == "" || len(c.InsertFiles) == 0 {
		return fmt.Errorf("--index and --insert-files are required")
	}
	outPath := c.Output
	if outPath == "" {
		outPath = c.IndexPath
	}

	dir, err := timingDir(c.TimingOutput)
	if err != nil {
		return err
	}
	logger, err = setupLog(dir, "update.log")
	if err != nil {
		return err
	}

	idx, err := index.Read(c.IndexPath, ioutil.CodecSnappy)
	if err != nil {
		return err
	}
	if !idx.IsHIBF || idx.Hierarchical == nil {
		return fmt.Errorf("update insert requires a hierarchical index; %s is flat", c.IndexPath)
	}

	var hashes []uint64
	sr := reader.NewSequenceReader(idx.Shape, idx.WindowSize)
	if err := sr.HashInto(c.InsertFiles, func(h uint64) { hashes = append(hashes, h) }); err != nil {
		return fmt.Errorf("hashing insert files: %w", err)
	}

	if _, err := idx.Hierarchical.InsertUserBin(hashes, c.InsertID); err != nil {
		return err
	}
	for int64(len(idx.BinPath)) <= c.InsertID {
		idx.BinPath = append(idx.BinPath, nil)
	}
	idx.BinPath[c.InsertID] = c.InsertFiles

	if err := index.Write(outPath, idx, ioutil.CodecSnappy); err != nil {
		return err
	}
	logger.Printf("inserted user bin %d (%d hashes), wrote %s", c.InsertID, len(hashes), outPath)
	return nil
}

func runUpdateDelete(args []string) error {
	fs := flag.NewFlagSet("update delete", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file (internal/config.Update)")
	var c config.Update
	var deleteIDs string
	fs.IntVar(&c.Threads, "threads", 0, "number of worker goroutines")
	fs.BoolVar(&c.Quiet, "quiet", false, "accepted but has no effect; progress goes only to the log file")
	fs.StringVar(&c.TimingOutput, "timing-output", "", "directory for the run's log file/profile")
	fs.StringVar(&c.IndexPath, "index", "", "index archive path")
	fs.StringVar(&c.Output, "output", "", "output path (defaults to overwriting --index)")
	fs.StringVar(&deleteIDs, "delete-ids", "", "comma-separated user bin ids to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, err := parseIDList(deleteIDs)
	if err != nil {
		return err
	}
	if *cfgPath != "" {
		var fileCfg config.Update
		if err := config.Load(*cfgPath, &fileCfg); err != nil {
			return err
		}
		fileCfg.DeleteIDs = ids
		c = fileCfg
	} else {
		c.DeleteIDs = ids
	}

	if c.IndexPath == "" || len(c.DeleteIDs) == 0 {
		return fmt.Errorf("--index and --delete-ids are required")
	}
	outPath := c.Output
	if outPath == "" {
		outPath = c.IndexPath
	}

	dir, err := timingDir(c.TimingOutput)
	if err != nil {
		return err
	}
	logger, err = setupLog(dir, "update.log")
	if err != nil {
		return err
	}

	idx, err := index.Read(c.IndexPath, ioutil.CodecSnappy)
	if err != nil {
		return err
	}
	if !idx.IsHIBF || idx.Hierarchical == nil {
		return fmt.Errorf("update delete requires a hierarchical index; %s is flat", c.IndexPath)
	}

	idx.Hierarchical.DeleteUserBins(c.DeleteIDs)
	for _, id := range c.DeleteIDs {
		if id >= 0 && int(id) < len(idx.BinPath) {
			idx.BinPath[id] = nil
		}
	}

	if err := index.Write(outPath, idx, ioutil.CodecSnappy); err != nil {
		return err
	}
	logger.Printf("deleted %d user bins, wrote %s", len(c.DeleteIDs), outPath)
	return nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--delete-ids: %q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}
