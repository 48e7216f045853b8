package stablogen

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/eringen/stablogen/views"
)

const (
	configFilename   = "stablogen.yaml"
	postsDirname     = "posts"
	tagsDirname      = "tags"
	templatesDirname = "templates"
	stateDirname     = ".stablogen"
)

// SiteConfig holds all configuration for a stablogen site.
type SiteConfig struct {
	Title       string `mapstructure:"title"`       // Site title (default "Blog")
	Hostname    string `mapstructure:"hostname"`    // Canonical URL (default "http://localhost:8000")
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`
	Disqus      string `mapstructure:"disqus"` // Disqus shortname, empty disables comments

	PageSize      int    `mapstructure:"page_size"`      // Posts per listing page (default 10)
	Drafts        bool   `mapstructure:"drafts"`         // Render unfinalized posts too
	CodeStyle     string `mapstructure:"code_style"`     // chroma style (default "monokai")
	PostExtension string `mapstructure:"post_extension"` // Extension of new posts (default ".md")
	Cache         bool   `mapstructure:"cache"`          // Memoize markdown rendering in .stablogen/cache.db

	Menu   []views.NavigationLink `mapstructure:"menu"` // Header links (default Posts and Tags)
	Images ImageConfig            `mapstructure:"images"`
	S3     S3Config               `mapstructure:"s3"`
	SFTP   SFTPConfig             `mapstructure:"sftp"`
	Params map[string]any         `mapstructure:"params"` // Free-form values exposed to templates

	InputDir  string `mapstructure:"-"`
	OutputDir string `mapstructure:"-"`
}

// ImageConfig controls how images are copied into the output directory.
type ImageConfig struct {
	Resize   bool `mapstructure:"resize"`
	MaxWidth int  `mapstructure:"max_width"` // default 1200
	Quality  int  `mapstructure:"quality"`   // JPEG quality (default 85)
}

// S3Config describes an S3-compatible bucket to publish to.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// SFTPConfig describes a remote directory to publish to over SFTP.
type SFTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"` // default 22
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	KeyFile    string `mapstructure:"key_file"`
	KnownHosts string `mapstructure:"known_hosts"` // default ~/.ssh/known_hosts
	Dir        string `mapstructure:"dir"`
}

func (c *SiteConfig) setDefaults() {
	if c.Title == "" {
		c.Title = "Blog"
	}
	if c.Hostname == "" {
		c.Hostname = "http://localhost:8000"
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.CodeStyle == "" {
		c.CodeStyle = "monokai"
	}
	if c.PostExtension == "" {
		c.PostExtension = ".md"
	}
	if !strings.HasPrefix(c.PostExtension, ".") {
		c.PostExtension = "." + c.PostExtension
	}
	if len(c.Menu) == 0 {
		c.Menu = views.DefaultMenu()
	}
	if c.Images.MaxWidth <= 0 {
		c.Images.MaxWidth = 1200
	}
	if c.Images.Quality <= 0 || c.Images.Quality > 100 {
		c.Images.Quality = 85
	}
	if c.SFTP.Port == 0 {
		c.SFTP.Port = 22
	}
	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "output")
	}
}

// LoadConfig reads stablogen.yaml from inputDir (or file, when non-empty) and
// applies STABLOGEN_* environment overrides, e.g. STABLOGEN_S3_BUCKET. A
// missing default config file is not an error.
func LoadConfig(inputDir, file string) (SiteConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("STABLOGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v)

	explicit := file != ""
	if !explicit {
		file = filepath.Join(inputDir, configFilename)
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if explicit || !missing {
			return SiteConfig{}, fmt.Errorf("stablogen: read config %s: %w", file, err)
		}
		logrus.WithField("file", file).Debug("no config file, using defaults")
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("stablogen: decode config %s: %w", file, err)
	}
	cfg.InputDir = inputDir
	cfg.setDefaults()
	return cfg, nil
}

// bindDefaults registers every key so that AutomaticEnv can see it during
// Unmarshal.
func bindDefaults(v *viper.Viper) {
	v.SetDefault("title", "")
	v.SetDefault("hostname", "")
	v.SetDefault("description", "")
	v.SetDefault("author", "")
	v.SetDefault("disqus", "")
	v.SetDefault("page_size", 0)
	v.SetDefault("drafts", false)
	v.SetDefault("code_style", "")
	v.SetDefault("post_extension", "")
	v.SetDefault("cache", true)
	v.SetDefault("images.resize", false)
	v.SetDefault("images.max_width", 0)
	v.SetDefault("images.quality", 0)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("sftp.host", "")
	v.SetDefault("sftp.port", 0)
	v.SetDefault("sftp.user", "")
	v.SetDefault("sftp.password", "")
	v.SetDefault("sftp.key_file", "")
	v.SetDefault("sftp.known_hosts", "")
	v.SetDefault("sftp.dir", "")
}

// Option configures additional Generator behavior.
type Option func(*Generator)

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Generator) {
		g.log = l
	}
}

// WithRepository makes the Generator render from an existing repository
// instead of creating its own.
func WithRepository(r *Repository) Option {
	return func(g *Generator) {
		g.repo = r
	}
}

// WithRenderCache memoizes markdown conversion in c.
func WithRenderCache(c *RenderCache) Option {
	return func(g *Generator) {
		g.cache = c
	}
}
