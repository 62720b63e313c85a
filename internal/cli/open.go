package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/config"
	"github.com/roach88/timeindex/internal/cueschema"
)

// anySchema accepts every JSON value.
const anySchema = "#Value: _"

var errNoPath = errors.New("log path required: pass it as the first argument or set path in tix.yaml")

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.LoadOptional(config.DefaultFile)
	}
	if err != nil {
		return cfg, err
	}

	if opts.Schema != "" {
		cfg.Schema = opts.Schema
	}
	if opts.Definition != "" {
		cfg.Definition = opts.Definition
	}
	if opts.Policy != "" {
		cfg.Policy = timeindex.Policy(opts.Policy)
	}
	return cfg, cfg.Validate()
}

func loadSchema(cfg config.Config) (*cueschema.Schema, error) {
	if cfg.Schema == "" {
		return cueschema.Compile("any.cue", []byte(anySchema), "")
	}
	return cueschema.Load(cfg.Schema, cfg.Definition)
}

// splitPath takes the log path from args when it holds one more element
// than the command's n positional arguments, and from the config otherwise.
func splitPath(args []string, n int, cfg config.Config) (string, []string, error) {
	if len(args) > n {
		return args[0], args[1:], nil
	}
	if cfg.Path == "" {
		return "", nil, errNoPath
	}
	return cfg.Path, args, nil
}

// pathArgs accepts n positional arguments with an optional leading path.
func pathArgs(n int) cobra.PositionalArgs {
	return cobra.RangeArgs(n, n+1)
}

// target is everything a command needs to open a log.
type target struct {
	path   string
	rest   []string
	cfg    config.Config
	schema *cueschema.Schema
}

func resolveTarget(opts *RootOptions, args []string, n int) (*target, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	path, rest, err := splitPath(args, n, cfg)
	if err != nil {
		return nil, err
	}
	schema, err := loadSchema(cfg)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return &target{path: path, rest: rest, cfg: cfg, schema: schema}, nil
}

// openStore resolves the target and opens its store. The caller closes the
// store.
func openStore(cmd *cobra.Command, opts *RootOptions, args []string, n int) (*timeindex.Store[any], []string, error) {
	t, err := resolveTarget(opts, args, n)
	if err != nil {
		return nil, nil, err
	}
	storeOpts := append(t.cfg.Options(), timeindex.WithLogger(opts.logger(cmd)))
	s, err := timeindex.Open[any](t.path, t.schema, storeOpts...)
	if err != nil {
		return nil, nil, err
	}
	return s, t.rest, nil
}
