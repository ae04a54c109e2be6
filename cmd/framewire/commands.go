package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/AndrewDonelson/framewire"
)

// readInput reads a named file, or stdin for "-".
func readInput(env *environment, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(env.stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes a named file, or stdout for "-".
func writeOutput(env *environment, path string, data []byte) error {
	if path == "-" {
		_, err := env.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ── inspect ──────────────────────────────────────────────────────────────────

type axisSummary struct {
	Levels int              `yaml:"levels"`
	Names  []any            `yaml:"names"`
	Kinds  []framewire.Kind `yaml:"kinds"`
}

type inspectSummary struct {
	Codec   string           `yaml:"codec"`
	Bytes   int              `yaml:"bytes"`
	Version int              `yaml:"version"`
	Rows    int              `yaml:"rows"`
	Cols    int              `yaml:"cols"`
	Index   axisSummary      `yaml:"index"`
	Columns axisSummary      `yaml:"columns"`
	Labels  [][]any          `yaml:"labels"`
	Kinds   []framewire.Kind `yaml:"kinds"`
}

func summarize(axis *framewire.Axis, names []any) axisSummary {
	s := axisSummary{Levels: len(axis.Levels), Names: names}
	for _, level := range axis.Levels {
		s.Kinds = append(s.Kinds, level.Kind)
	}
	return s
}

func runInspect(_ context.Context, env *environment, args []string) error {
	var common commonFlags
	flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	common.addFlags(flagSet)
	if help, err := parse(flagSet, env, args); help || err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("%w: inspect takes exactly one payload file", errUsage)
	}
	cfg, err := common.resolve(flagSet)
	if err != nil {
		return err
	}
	logger, err := cfg.logger(env.stderr)
	if err != nil {
		return err
	}
	ser, err := cfg.serializer(logger)
	if err != nil {
		return err
	}

	raw, err := readInput(env, flagSet.Arg(0))
	if err != nil {
		return err
	}
	f, err := ser.Unmarshal(raw)
	if err != nil {
		return err
	}
	p, err := framewire.EncodeWith(f, framewire.EncodeOptions{TextFallback: cfg.TextFallback})
	if err != nil {
		return err
	}

	labels := make([][]any, f.NumCols())
	for c := range labels {
		labels[c] = f.Columns.Key(c)
	}
	return writeYAML(env.stdout, inspectSummary{
		Codec:   ser.Codec().Name(),
		Bytes:   len(raw),
		Version: p.Version,
		Rows:    f.NumRows(),
		Cols:    f.NumCols(),
		Index:   summarize(p.Index, f.Index.Names),
		Columns: summarize(p.Columns, f.Columns.Names),
		Labels:  labels,
		Kinds:   p.Kinds,
	})
}

// ── convert ──────────────────────────────────────────────────────────────────

func runConvert(_ context.Context, env *environment, args []string) error {
	var common commonFlags
	var from, to string
	flagSet := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	common.addFlags(flagSet)
	flagSet.StringVar(&from, "from", "", "codec of the input payload (default: configured codec)")
	flagSet.StringVar(&to, "to", "", "codec of the output payload")
	if help, err := parse(flagSet, env, args); help || err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("%w: convert takes an input and an output path", errUsage)
	}
	if to == "" {
		return fmt.Errorf("%w: --to is required", errUsage)
	}
	cfg, err := common.resolve(flagSet)
	if err != nil {
		return err
	}
	logger, err := cfg.logger(env.stderr)
	if err != nil {
		return err
	}
	if from != "" {
		cfg.Codec = from
	}
	reader, err := cfg.serializer(logger)
	if err != nil {
		return err
	}
	cfg.Codec = to
	writer, err := cfg.serializer(logger)
	if err != nil {
		return err
	}

	raw, err := readInput(env, flagSet.Arg(0))
	if err != nil {
		return err
	}
	f, err := reader.Unmarshal(raw)
	if err != nil {
		return err
	}
	out, err := writer.Marshal(f)
	if err != nil {
		return err
	}
	logger.Info("converted payload",
		"from", reader.Codec().Name(), "to", writer.Codec().Name(),
		"in_bytes", len(raw), "out_bytes", len(out))
	return writeOutput(env, flagSet.Arg(1), out)
}

// ── store commands ───────────────────────────────────────────────────────────

// openStore resolves the config and opens a Store from it.
func openStore(env *environment, common *commonFlags, flagSet *pflag.FlagSet) (fileConfig, *framewire.Store, error) {
	cfg, err := common.resolve(flagSet)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := cfg.logger(env.stderr)
	if err != nil {
		return cfg, nil, err
	}
	store, err := cfg.store(logger)
	return cfg, store, err
}

func runPut(ctx context.Context, env *environment, args []string) error {
	var common commonFlags
	var key, from string
	flagSet := pflag.NewFlagSet("put", pflag.ContinueOnError)
	common.addFlags(flagSet)
	flagSet.StringVar(&key, "key", "", "frame key")
	flagSet.StringVar(&from, "from", "", "codec of the input payload (default: configured codec)")
	if help, err := parse(flagSet, env, args); help || err != nil {
		return err
	}
	if key == "" || flagSet.NArg() != 1 {
		return fmt.Errorf("%w: put needs --key and one payload file", errUsage)
	}
	cfg, store, err := openStore(env, &common, flagSet)
	if err != nil {
		return err
	}
	defer store.Close()

	reader := store.Serializer()
	if from != "" {
		c, err := framewire.CodecByName(from)
		if err != nil {
			return err
		}
		reader = framewire.NewSerializer(framewire.SerializerConfig{Codec: c, TextFallback: cfg.TextFallback})
	}
	raw, err := readInput(env, flagSet.Arg(0))
	if err != nil {
		return err
	}
	f, err := reader.Unmarshal(raw)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, f)
}

func runGet(ctx context.Context, env *environment, args []string) error {
	var common commonFlags
	var key string
	flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
	common.addFlags(flagSet)
	flagSet.StringVar(&key, "key", "", "frame key")
	if help, err := parse(flagSet, env, args); help || err != nil {
		return err
	}
	if key == "" || flagSet.NArg() > 1 {
		return fmt.Errorf("%w: get needs --key and at most one output path", errUsage)
	}
	out := "-"
	if flagSet.NArg() == 1 {
		out = flagSet.Arg(0)
	}
	_, store, err := openStore(env, &common, flagSet)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	raw, err := store.Serializer().Marshal(f)
	if err != nil {
		return err
	}
	return writeOutput(env, out, raw)
}

type listEntry struct {
	Key       string    `yaml:"key"`
	Codec     string    `yaml:"codec"`
	Rows      int       `yaml:"rows"`
	Cols      int       `yaml:"cols"`
	Size      int       `yaml:"size"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

func runList(ctx context.Context, env *environment, args []string) error {
	var common commonFlags
	var prefix string
	var limit int
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	common.addFlags(flagSet)
	flagSet.StringVar(&prefix, "prefix", "", "only list keys starting with this prefix")
	flagSet.IntVar(&limit, "limit", 0, "maximum number of frames to list (0: all)")
	if help, err := parse(flagSet, env, args); help || err != nil {
		return err
	}
	if flagSet.NArg() != 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}
	_, store, err := openStore(env, &common, flagSet)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List(ctx, prefix, limit)
	if err != nil {
		return err
	}
	entries := make([]listEntry, len(infos))
	for i, info := range infos {
		entries[i] = listEntry(info)
	}
	return writeYAML(env.stdout, entries)
}

func runMigrate(ctx context.Context, env *environment, args []string) error {
	var common commonFlags
	var dir string
	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	common.addFlags(flagSet)
	flagSet.StringVar(&dir, "dir", "", "also apply NNN_name.sql files from this directory")
	if help, err := parse(flagSet, env, args); help || err != nil {
		return err
	}
	_, store, err := openStore(env, &common, flagSet)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if dir != "" {
		if err := store.MigrateFrom(ctx, dir); err != nil {
			return err
		}
	}
	records, err := store.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(env.stdout, "%4d  %-24s %-32s %s\n", r.ID, r.Target, r.FileName, r.AppliedAt.Format(time.RFC3339))
	}
	return nil
}
