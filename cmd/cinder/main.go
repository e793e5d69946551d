// Command cinder runs a flat install call plan against an install package.
//
// The full expression-language front end lives in the installer product; this
// driver executes a JSON list of builtin calls with literal string arguments,
// which is all that bring-up, recovery tooling and tests need:
//
//	[
//	  {"fn": "mount", "args": ["vfat", "/dev/block/sda1", "/system"]},
//	  {"fn": "package_extract", "args": ["system", "/system"]},
//	  {"fn": "unmount", "args": ["/system"]}
//	]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/cinderlang/cinder/pkg/cinder/archive"
	"github.com/cinderlang/cinder/pkg/cinder/config"
	"github.com/cinderlang/cinder/pkg/cinder/mounts"
	"github.com/cinderlang/cinder/pkg/cinder/mtd"
	"github.com/cinderlang/cinder/pkg/cinder/script"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

var (
	stepColor  = color.New(color.FgCyan)
	failColor  = color.New(color.FgYellow)
	abortColor = color.New(color.FgRed, color.Bold)
	doneColor  = color.New(color.FgGreen)
)

func main() {
	if err := run(os.Args[1:], os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type step struct {
	Fn   string   `json:"fn"`
	Args []string `json:"args"`
}

func run(args []string, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("cinder", flag.ContinueOnError)
	flags.SetOutput(stderr)

	configPath := flags.String("c", "", "Config file path")
	packagePath := flags.String("p", "", "Install package path (overrides config)")
	pipePath := flags.String("pipe", "", "Progress pipe path (overrides config)")
	showVersion := flags.Bool("version", false, "Show version information")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stderr, "cinder version %s\n", Version)
		return nil
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("usage: cinder [flags] plan.json")
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return err
	}
	if *packagePath != "" {
		cfg.Package = *packagePath
	}
	if *pipePath != "" {
		cfg.Progress.Pipe = *pipePath
	}

	planData, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}
	plan, err := readPlan(planData)
	if err != nil {
		return err
	}

	progress := io.Writer(stderr)
	if cfg.Progress.Pipe != "" {
		pipe, err := os.OpenFile(cfg.Progress.Pipe, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("failed to open progress pipe: %w", err)
		}
		defer pipe.Close()
		progress = pipe
	}

	ctx := &script.Context{
		Progress: progress,
		Flash:    mtd.NewStore(cfg.ProcMTD),
		Mounts:   mounts.NewTable(cfg.ProcMounts),
		Logger:   script.NewLogger(stderr),
	}

	if cfg.Package != "" {
		pkg, err := archive.Open(cfg.Package)
		if err != nil {
			return err
		}
		defer pkg.Close()
		ctx.Package = pkg
	}

	reg := script.NewRegistry()
	script.RegisterInstallFunctions(reg)

	for i, st := range plan {
		argv := make([]script.Expr, len(st.Args))
		for j, a := range st.Args {
			argv[j] = script.Literal(a)
		}

		stepColor.Fprintf(stderr, "[%d/%d] %s\n", i+1, len(plan), st.Fn)
		res, err := reg.Call(ctx, st.Fn, argv)
		if err != nil {
			abortColor.Fprintf(stderr, "script aborted: %v\n", err)
			return fmt.Errorf("install aborted at step %d (%s)", i+1, st.Fn)
		}
		if !res.OK() {
			failColor.Fprintf(stderr, "%s failed, continuing\n", st.Fn)
		}
	}

	doneColor.Fprintf(stderr, "install plan complete\n")
	return nil
}

// readPlan decodes and validates a JSON call plan.
func readPlan(data []byte) ([]step, error) {
	var plan []step
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	for i, st := range plan {
		if st.Fn == "" {
			return nil, fmt.Errorf("plan step %d has no function name", i+1)
		}
	}
	return plan, nil
}
