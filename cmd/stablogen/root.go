package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eringen/stablogen"
)

// options holds the persistent flags shared by every command.
type options struct {
	input   string
	output  string
	config  string
	verbose bool
	log     *logrus.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{log: logrus.New()}

	rootCmd := &cobra.Command{
		Use:           "stablogen",
		Short:         "A static blog generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log.SetOutput(cmd.ErrOrStderr())
			opts.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if opts.verbose {
				opts.log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.input, "input", "i", ".", "site directory")
	flags.StringVarP(&opts.output, "output", "o", "", "output directory (default <input>/output)")
	flags.StringVar(&opts.config, "config", "", "config file (default <input>/stablogen.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")

	rootCmd.AddCommand(
		NewGenerateCommand(opts),
		NewNewCommand(opts),
		NewFinalizeCommand(opts),
		NewEditedCommand(opts),
		NewTagsCommand(opts),
		NewPostsCommand(opts),
		NewServeCommand(opts),
		NewPublishCommand(opts),
		NewInitCommand(opts),
		NewVersionCommand(),
	)

	return rootCmd
}

func (o *options) loadConfig() (stablogen.SiteConfig, error) {
	cfg, err := stablogen.LoadConfig(o.input, o.config)
	if err != nil {
		return cfg, err
	}
	if o.output != "" {
		cfg.OutputDir = o.output
	}
	return cfg, nil
}

// newGenerator loads the configuration and returns a Generator for it. The
// returned function releases the render cache.
func (o *options) newGenerator() (*stablogen.Generator, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	genOpts := []stablogen.Option{stablogen.WithLogger(o.log)}
	closeFn := func() {}
	if cfg.Cache {
		cache, err := stablogen.OpenRenderCache(stablogen.DefaultCachePath(cfg.InputDir))
		if err != nil {
			o.log.WithError(err).Warn("render cache unavailable")
		} else {
			genOpts = append(genOpts, stablogen.WithRenderCache(cache))
			closeFn = func() { cache.Close() }
		}
	}
	return stablogen.New(cfg, genOpts...), closeFn, nil
}

// repository returns the post inventory of the input directory.
func (o *options) repository() *stablogen.Repository {
	return stablogen.NewRepository(o.input)
}
