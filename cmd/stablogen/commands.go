package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/stablogen"
	"github.com/eringen/stablogen/scaffold"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Render the site into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closeFn, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer closeFn()
			return g.Generate(cmd.Context())
		},
	}
}

// NewNewCommand creates the new command.
func NewNewCommand(opts *options) *cobra.Command {
	var ext, tags string

	cmd := &cobra.Command{
		Use:   "new TITLE",
		Short: "Create a draft post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if ext == "" {
				ext = cfg.PostExtension
			}
			repo := opts.repository()
			p, err := repo.NewPost(args[0], ext, stablogen.ToList(tags), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(repo.PostsDir(), p.FileName()))
			return nil
		},
	}

	cmd.Flags().StringVar(&ext, "ext", "", "post file extension, .md or .html (default from config)")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	return cmd
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize URL",
		Short: "Publish a draft post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.repository().Finalize(args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "finalized %s\n", p)
			return nil
		},
	}
}

// NewEditedCommand creates the edited command.
func NewEditedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "edited URL",
		Short: "Record that a post was edited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.repository().Edited(args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "edited %s\n", p)
			return nil
		},
	}
}

// NewTagsCommand creates the tags command.
func NewTagsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags, most used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := opts.repository().Tags()
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", t.Name, len(t.Posts))
			}
			return nil
		},
	}
}

// NewPostsCommand creates the posts command.
func NewPostsCommand(opts *options) *cobra.Command {
	var drafts bool

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List finalized posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := opts.repository().Finalized(!drafts)
			if err != nil {
				return err
			}
			for _, p := range posts {
				line := p.String()
				if len(p.Tags) > 0 {
					line += " [" + stablogen.JoinTags(p.Tags) + "]"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&drafts, "drafts", false, "list drafts instead")
	return cmd
}

// NewServeCommand creates the serve command.
func NewServeCommand(opts *options) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Generate the site and serve it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closeFn, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := g.Generate(cmd.Context()); err != nil {
				return err
			}
			return g.Serve(cmd.Context(), addr, watch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8000", "listen address")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate when the input changes")
	return cmd
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(opts *options) *cobra.Command {
	var skipGenerate bool

	cmd := &cobra.Command{
		Use:       "publish [s3|sftp]",
		Short:     "Generate the site and upload it",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"s3", "sftp"},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closeFn, err := opts.newGenerator()
			if err != nil {
				return err
			}
			defer closeFn()
			cfg := g.Config()

			target := ""
			if len(args) == 1 {
				target = args[0]
			} else if cfg.S3.Bucket != "" {
				target = "s3"
			} else if cfg.SFTP.Host != "" {
				target = "sftp"
			}
			var pub stablogen.Publisher
			switch target {
			case "s3":
				pub, err = stablogen.NewS3Publisher(cfg.S3, opts.log)
			case "sftp":
				pub, err = stablogen.NewSFTPPublisher(cfg.SFTP, opts.log)
			default:
				err = errors.New("no publish target configured, set s3 or sftp in stablogen.yaml")
			}
			if err != nil {
				return err
			}

			if !skipGenerate {
				if err := g.Generate(cmd.Context()); err != nil {
					return err
				}
			}
			return pub.Publish(cmd.Context(), cfg.OutputDir)
		},
	}

	cmd.Flags().BoolVar(&skipGenerate, "no-generate", false, "upload the existing output directory as is")
	return cmd
}

// NewInitCommand creates the init command.
func NewInitCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init DIR",
		Short: "Create a new site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			created, err := scaffold.Create(dir, scaffold.NewData(dir, time.Now()))
			for _, path := range created {
				opts.log.WithField("path", path).Debug("created")
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s (%d files). Next steps:\n\n", dir, len(created))
			fmt.Fprintf(out, "  cd %s\n", dir)
			fmt.Fprintln(out, "  stablogen serve --watch")
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stablogen version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stablogen %s\n", version)
		},
	}
}
