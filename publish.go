package stablogen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrPublishConfig is returned when a publisher is missing required settings.
var ErrPublishConfig = errors.New("stablogen: incomplete publish config")

// Publisher uploads a generated site.
type Publisher interface {
	Publish(ctx context.Context, dir string) error
}

// walkFiles calls fn with the slash-separated relative path of every regular
// file under dir.
func walkFiles(ctx context.Context, dir string, fn func(rel, path string) error) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), p)
	})
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// S3Publisher uploads the site to an S3-compatible bucket.
type S3Publisher struct {
	Client *s3.Client
	Bucket string
	Prefix string
	Log    logrus.FieldLogger
}

// NewS3Publisher creates an S3Publisher from cfg using static credentials.
func NewS3Publisher(cfg S3Config, log logrus.FieldLogger) (*S3Publisher, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: s3 needs bucket and region", ErrPublishConfig)
	}
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.Endpoint != "",
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	return &S3Publisher{
		Client: s3.New(opts),
		Bucket: cfg.Bucket,
		Prefix: strings.Trim(cfg.Prefix, "/"),
		Log:    log,
	}, nil
}

// Publish uploads every file under dir, replacing existing objects.
func (p *S3Publisher) Publish(ctx context.Context, dir string) error {
	n := 0
	err := walkFiles(ctx, dir, func(rel, name string) error {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		key := rel
		if p.Prefix != "" {
			key = p.Prefix + "/" + rel
		}
		_, err = p.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.Bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentType(rel)),
		})
		if err != nil {
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				return fmt.Errorf("stablogen: put %s: %s: %s", key, apiErr.ErrorCode(), apiErr.ErrorMessage())
			}
			return fmt.Errorf("stablogen: put %s: %w", key, err)
		}
		n++
		p.Log.WithField("key", key).Debug("uploaded")
		return nil
	})
	if err != nil {
		return err
	}
	p.Log.WithFields(logrus.Fields{"bucket": p.Bucket, "files": n}).Info("published to s3")
	return nil
}

// SFTPPublisher uploads the site to a directory on a remote host.
type SFTPPublisher struct {
	Addr   string
	Config *ssh.ClientConfig
	Dir    string
	Log    logrus.FieldLogger
}

// NewSFTPPublisher creates an SFTPPublisher from cfg. The host key is checked
// against cfg.KnownHosts, or ~/.ssh/known_hosts when that is empty.
func NewSFTPPublisher(cfg SFTPConfig, log logrus.FieldLogger) (*SFTPPublisher, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Dir == "" {
		return nil, fmt.Errorf("%w: sftp needs host, user and dir", ErrPublishConfig)
	}
	knownHostsFile := cfg.KnownHosts
	if knownHostsFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		knownHostsFile = filepath.Join(homeDir, ".ssh", "known_hosts")
	}
	hostKeyCallback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("stablogen: known hosts: %w", err)
	}

	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("stablogen: read key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("stablogen: parse key %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("%w: sftp needs a password or key_file", ErrPublishConfig)
	}

	return &SFTPPublisher{
		Addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
		},
		Dir: cfg.Dir,
		Log: log,
	}, nil
}

// Publish copies every file under dir to the remote directory, creating
// directories as needed.
func (p *SFTPPublisher) Publish(ctx context.Context, dir string) error {
	sshClient, err := ssh.Dial("tcp", p.Addr, p.Config)
	if err != nil {
		return fmt.Errorf("stablogen: dial %s: %w", p.Addr, err)
	}
	defer sshClient.Close()
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("stablogen: sftp session: %w", err)
	}
	defer client.Close()

	n := 0
	err = walkFiles(ctx, dir, func(rel, name string) error {
		remote := path.Join(p.Dir, rel)
		if err := client.MkdirAll(path.Dir(remote)); err != nil {
			return fmt.Errorf("stablogen: mkdir %s: %w", path.Dir(remote), err)
		}
		src, err := os.Open(name)
		if err != nil {
			return err
		}
		defer src.Close()
		dst, err := client.Create(remote)
		if err != nil {
			return fmt.Errorf("stablogen: create %s: %w", remote, err)
		}
		if _, err := dst.ReadFrom(src); err != nil {
			dst.Close()
			return fmt.Errorf("stablogen: upload %s: %w", remote, err)
		}
		if err := dst.Close(); err != nil {
			return err
		}
		n++
		p.Log.WithField("file", remote).Debug("uploaded")
		return nil
	})
	if err != nil {
		return err
	}
	p.Log.WithFields(logrus.Fields{"host": p.Addr, "files": n}).Info("published over sftp")
	return nil
}
