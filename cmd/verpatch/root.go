package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"verpatch/coloransi"
	"verpatch/hexdump"
	"verpatch/patcher"
	"verpatch/process"
	"verpatch/table"
	"verpatch/version"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	exitDone     = 0
	exitUsage    = 1
	exitNotFound = 2
	exitPartial  = 3
	exitAborted  = 4
)

const (
	defaultName = "WeChat.exe"
	defaultWait = 10 * time.Second
	dumpRadius  = 16
)

type options struct {
	name       string
	encoding   string
	module     string
	configPath string
	wait       time.Duration
	launch     bool
	verbose    bool
	dump       bool
}

type installInfo struct {
	Current version.Version
	Path    string
}

// plan is the patch resolved from arguments, flags, config file and registry
type plan struct {
	request     patcher.Request
	module      string
	installPath string
}

type usageError struct {
	error
}

func (e usageError) Unwrap() error {
	return e.error
}

func execute(args []string) int {
	coloransi.EnableFor(os.Stdout.Fd())

	code := exitDone
	cmd := newRootCommand(colorable.NewColorableStdout(), &code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if code == exitDone {
			code = exitUsage
		}
	}
	return code
}

func newRootCommand(out io.Writer, code *int) *cobra.Command {
	opts := &options{}

	rootCommand := &cobra.Command{
		Use:   "verpatch [c=<current>] [t=<target>]",
		Short: "Make a running program report a different version of itself.",
		Long: `Make a running program report a different version of itself.

Every occurrence of the current version in the memory of the named process is
overwritten with the target version, verified and reported.

The current version comes from c=, the config file, or the install registry
key. The target version comes from t= or the "version" key of the config file.`,
		Example: `  verpatch c=3.9.6.33 t=3.9.12.51
  verpatch --encoding utf16 --module WeChatWin.dll t=3.9.12.51`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolvePlan(args, opts, cmd.Flags(), defaultConfigDirs(), lookupInstall)
			if err != nil {
				*code = exitUsage
				return err
			}
			report, err := run(out, p, opts)
			*code = exitCode(report, err)
			return err
		},
	}

	flags := rootCommand.Flags()
	flags.StringVarP(&opts.name, "name", "n", defaultName, "Executable name of the process to patch.")
	flags.StringVarP(&opts.encoding, "encoding", "e", version.Packed.String(), "How the version is stored in memory: packed, ascii or utf16.")
	flags.StringVarP(&opts.module, "module", "m", "", "Only scan memory backed by this module, for example WeChatWin.dll.")
	flags.StringVar(&opts.configPath, "config", "", "Config file (JSON or YAML). Defaults to config.json next to the executable or in the working directory.")
	flags.DurationVar(&opts.wait, "wait", 0, "Wait up to this long for the process to start.")
	flags.BoolVar(&opts.launch, "launch", false, "Start the program from its install path before patching.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every patched address.")
	flags.BoolVar(&opts.dump, "dump", false, "Hex dump the memory around every patched address.")

	return rootCommand
}

type positional struct {
	current string
	target  string
}

// parsePositional reads the c=<version> and t=<version> arguments
func parsePositional(args []string) (positional, error) {
	var p positional
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return p, usageError{fmt.Errorf("unexpected argument %q, want c=<version> or t=<version>", arg)}
		}
		switch strings.ToLower(key) {
		case "c":
			p.current = value
		case "t":
			p.target = value
		default:
			return p, usageError{fmt.Errorf("unknown argument %q, want c=<version> or t=<version>", arg)}
		}
	}
	return p, nil
}

// pick prefers an explicitly set flag, then the config file, then the flag default
func pick(flags *pflag.FlagSet, flag, flagValue, configValue string) string {
	if flags.Changed(flag) || configValue == "" {
		return flagValue
	}
	return configValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolvePlan(args []string, opts *options, flags *pflag.FlagSet, configDirs []string, install func() (*installInfo, error)) (*plan, error) {
	pos, err := parsePositional(args)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(opts.configPath, configDirs)
	if err != nil {
		return nil, usageError{err}
	}

	enc, err := version.ParseEncoding(pick(flags, "encoding", opts.encoding, cfg.Encoding))
	if err != nil {
		return nil, usageError{err}
	}

	p := &plan{
		request: patcher.Request{
			Name:     pick(flags, "name", opts.name, cfg.Name),
			Encoding: enc,
		},
		module:      pick(flags, "module", opts.module, cfg.Module),
		installPath: cfg.InstallPath,
	}

	target := firstNonEmpty(pos.target, cfg.Version)
	if target == "" {
		return nil, usageError{errors.New("no target version, pass t=<version> or set \"version\" in the config file")}
	}
	if p.request.Target, err = version.Parse(target); err != nil {
		return nil, usageError{fmt.Errorf("target: %w", err)}
	}

	if current := firstNonEmpty(pos.current, cfg.Current); current != "" {
		if p.request.Current, err = version.Parse(current); err != nil {
			return nil, usageError{fmt.Errorf("current: %w", err)}
		}
		return p, nil
	}

	info, err := install()
	if err != nil {
		return nil, usageError{fmt.Errorf("no current version, pass c=<version>: %w", err)}
	}
	p.request.Current = info.Current
	if p.installPath == "" {
		p.installPath = info.Path
	}
	return p, nil
}

func run(out io.Writer, p *plan, opts *options) (*patcher.Report, error) {
	// checked before any process is looked up or launched
	_, replacement, err := version.EncodePair(p.request.Current, p.request.Target, p.request.Encoding)
	if err != nil {
		return &patcher.Report{Outcome: patcher.Aborted}, fmt.Errorf("%w: %w", patcher.ErrInvalidPatternLength, err)
	}

	helper, err := getHelper()
	if err != nil {
		return nil, err
	}

	if opts.launch {
		if err := launch(out, p.installPath, p.request.Name); err != nil {
			return nil, err
		}
	}
	if opts.launch || opts.wait > 0 {
		wait := opts.wait
		if wait <= 0 {
			wait = defaultWait
		}
		if _, err := process.WaitForProcess(helper.Finder(), p.request.Name, wait); err != nil {
			return nil, err
		}
	}

	var patchOptions []patcher.Option
	if p.module != "" {
		patchOptions = append(patchOptions, patcher.WithModule(p.module))
	}
	if opts.verbose || opts.dump {
		patchOptions = append(patchOptions, patcher.WithPatchHook(patchPrinter(out, len(replacement), opts.dump)))
	}

	fmt.Fprintf(out, "Patching %s from %s to %s (%s)\n", p.request.Name, p.request.Current, p.request.Target, p.request.Encoding)

	report, err := patcher.Run(helper, p.request, patchOptions...)
	printReport(out, report)
	return report, err
}

// patchPrinter prints each patched address, and with dump the size bytes around it
func patchPrinter(out io.Writer, size int, dump bool) patcher.PatchHook {
	return func(proc process.Process, addr process.ProcessMemoryAddress) {
		fmt.Fprintln(out, coloransi.Foreground(coloransi.Green, "patched"), addr)
		if !dump {
			return
		}
		text, err := hexdump.Around(proc, addr, size, dumpRadius)
		if err != nil {
			fmt.Fprintln(out, "  dump failed:", err)
			return
		}
		fmt.Fprint(out, text)
	}
}

// launch starts installPath/name and leaves it running
func launch(out io.Writer, installPath, name string) error {
	if installPath == "" {
		return errors.New("--launch needs an install path from the registry or \"install_path\" in the config file")
	}

	exe := filepath.Join(installPath, name)
	if _, err := os.Stat(exe); err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Dir = installPath
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", exe, err)
	}
	fmt.Fprintln(out, "Started", exe, "pid", cmd.Process.Pid)
	return cmd.Process.Release()
}

func printReport(out io.Writer, report *patcher.Report) {
	color := coloransi.Green
	switch report.Outcome {
	case patcher.PartialFailure:
		color = coloransi.Yellow
	case patcher.NotFound, patcher.Aborted:
		color = coloransi.Red
	}

	fmt.Fprintf(out, "%s: %d regions scanned, %d skipped, %d matches, %d patched, %d already patched\n",
		coloransi.Foreground(color, report.Outcome), report.RegionsScanned, report.RegionsSkipped,
		report.Matches, report.Patched, report.AlreadyPatched)

	if len(report.Failures) > 0 {
		failures := table.NewTable(
			table.ColumnSpec{Header: "Address", MinWidth: 18},
			table.ColumnSpec{Header: "Unwritable", BlankValue: "no", FormatFunc: func(s string) string {
				if s == "yes" {
					return coloransi.Foreground(coloransi.Red, s)
				}
				return s
			}},
			table.ColumnSpec{Header: "Reason"},
		)
		for _, f := range report.Failures {
			unwritable := ""
			if f.Unwritable() {
				unwritable = "yes"
			}
			failures.AddRow(f.Address.String(), unwritable, f.Err.Error())
		}
		failures.Render(out)
	}
	if report.Outcome == patcher.NotFound {
		fmt.Fprintln(out, "The current version was not found, check that it is the version the program is running.")
	}
}

// exitCode maps the outcome of a run onto the process exit status
func exitCode(report *patcher.Report, err error) int {
	var uerr usageError
	if errors.As(err, &uerr) {
		return exitUsage
	}
	if report == nil {
		if err == nil {
			return exitDone
		}
		return exitAborted
	}

	switch report.Outcome {
	case patcher.Done:
		return exitDone
	case patcher.NotFound:
		return exitNotFound
	case patcher.PartialFailure:
		return exitPartial
	}
	return exitAborted
}
