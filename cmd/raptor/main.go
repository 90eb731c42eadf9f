package main

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
)

func main() {
	if len(os.Args) < 2 {
		fail("usage: raptor <build|layout|search|prepare|update|upgrade> [flags]")
	}

	defer func() {
		if r := recover(); r != nil {
			fail("panic: %v", r)
		}
	}()

	if os.Getenv("RAPTOR_PROFILE") != "" {
		p := profile.Start(profile.ProfilePath(os.Getenv("RAPTOR_PROFILE")))
		defer p.Stop()
	}

	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		fail("%v", err)
	}
}

// dispatch routes a verb name to its runner. Split out from main so
// the routing itself (unknown-verb handling included) can be tested
// without exercising os.Exit.
func dispatch(verb string, args []string) error {
	switch verb {
	case "build":
		return runBuild(args)
	case "layout":
		return runLayout(args)
	case "search":
		return runSearch(args)
	case "prepare":
		return runPrepare(args)
	case "update":
		return runUpdate(args)
	case "upgrade":
		return runUpgrade(args)
	default:
		return fmt.Errorf("unknown verb %q (want build, layout, search, prepare, update, or upgrade)", verb)
	}
}
