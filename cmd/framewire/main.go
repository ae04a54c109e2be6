// framewire inspects, converts and stores encoded frame payloads.
//
// Usage:
//
//	framewire inspect [flags] <file|->
//	framewire convert --from <codec> --to <codec> <in|-> <out|->
//	framewire put --key <key> [flags] <file|->
//	framewire get --key <key> [flags] [out|-]
//	framewire list [--prefix p] [--limit n]
//	framewire migrate [--dir path]
//	framewire version
//
// Settings come from a YAML file (--config or $FRAMEWIRE_CONFIG); flags
// override file values.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/AndrewDonelson/framewire"
)

// errUsage marks a command-line mistake; main exits with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// command is one subcommand.
type command struct {
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commands = map[string]command{
	"inspect": {"print the shape and kinds of a payload", runInspect},
	"convert": {"re-encode a payload with another codec", runConvert},
	"put":     {"store a payload under a key", runPut},
	"get":     {"load a frame by key and write its payload", runGet},
	"list":    {"list persisted frames", runList},
	"migrate": {"create the frames table and apply SQL migrations", runMigrate},
	"version": {"print build information", runVersion},
}

var commandOrder = []string{"inspect", "convert", "put", "get", "list", "migrate", "version"}

// environment carries the process streams so commands stay testable.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	env := &environment{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("%w: no command given", errUsage)
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	case "--version":
		return runVersion(ctx, env, nil)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd.run(ctx, env, args[1:])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: framewire <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'framewire <command> --help' for command flags.")
}

// parse parses args into flagSet and handles --help.
func parse(flagSet *pflag.FlagSet, env *environment, args []string) (bool, error) {
	flagSet.SetOutput(env.stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %v", errUsage, err)
	}
	return false, nil
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func runVersion(_ context.Context, env *environment, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: version takes no arguments", errUsage)
	}
	return writeYAML(env.stdout, framewire.Info())
}
