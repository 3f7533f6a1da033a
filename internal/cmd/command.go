package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/apkchannel/internal/config"
	"github.com/nguyengg/apkchannel/source"
)

// ErrInvalidOptions is returned by Command.Execute if the flags are inconsistent.
var ErrInvalidOptions = errors.New("invalid options")

// S3Client is the union of the S3 APIs needed to read inputs from and write outputs to S3.
type S3Client interface {
	source.S3Client
	manager.UploadAPIClient
}

// Command reads or writes channel markers.
type Command struct {
	Read           string         `short:"r" long:"read" value-name:"APK" description:"print the channel of the given APK (local file or s3://bucket/key)"`
	Write          string         `short:"w" long:"write" value-name:"APK" description:"write one copy of the given APK (local file or s3://bucket/key) per channel"`
	Verify         flags.Filename `long:"verify" value-name:"MANIFEST" description:"check every output listed in a manifest saved with --manifest against its digest and channel"`
	Output         string         `short:"o" long:"output" value-name:"DIR" description:"write mode: directory or s3://bucket/prefix to write to; defaults to [write] output-dir"`
	Channels       flags.Filename `short:"c" long:"channels" value-name:"FILE" description:"write mode: file with one channel per line; may be compressed with .gz, .xz, or .zst"`
	Strict         bool           `long:"strict" description:"read mode: fail instead of printing an empty channel if the APK cannot be read"`
	MaxConcurrency int            `short:"P" long:"max-concurrency" description:"write mode: write up to this many channels at a time"`
	KeepGoing      bool           `long:"keep-going" description:"write mode: keep writing other channels after a failure"`
	NoClobber      bool           `long:"no-clobber" description:"write mode: never overwrite existing files; pick a new name with a numeric suffix instead"`
	Manifest       flags.Filename `long:"manifest" value-name:"FILE" description:"write mode: save a JSON manifest of every output with its digest"`
	Progress       bool           `long:"progress" description:"write mode: show a progress bar if stderr is a terminal"`
	Profile        string         `short:"p" long:"profile" description:"the AWS profile to use; takes precedence over .apkchannel setting"`
	Config         flags.Filename `long:"config" value-name:"FILE" description:"load settings from this file instead of searching for .apkchannel"`

	stdout      io.Writer
	now         func() time.Time
	newS3Client func(ctx context.Context, profile string) (S3Client, error)
	client      S3Client
	loader      *config.Loader
}

// NewParser returns the parser for the apkchannel binary.
func NewParser(c *Command) *flags.Parser {
	p := flags.NewNamedParser("apkchannel", flags.Default)
	p.ShortDescription = "embed and extract APK channel markers"
	if _, err := p.AddGroup("Options", "", c); err != nil {
		// only fails on malformed struct tags.
		panic(err)
	}

	return p
}

func (c *Command) Execute(args []string) error {
	if err := c.validate(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.init(ctx); err != nil {
		return err
	}

	switch {
	case c.Read != "":
		return c.read(ctx)
	case c.Verify != "":
		return c.verify(ctx)
	default:
		return c.write(ctx)
	}
}

func (c *Command) validate(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: unknown positional arguments: %s", ErrInvalidOptions, strings.Join(args, " "))
	}

	modes := 0
	for _, v := range []string{c.Read, c.Write, string(c.Verify)} {
		if v != "" {
			modes++
		}
	}

	switch {
	case modes == 0:
		return fmt.Errorf("%w: one of --read, --write, or --verify is required", ErrInvalidOptions)
	case modes > 1:
		return fmt.Errorf("%w: --read, --write, and --verify are mutually exclusive", ErrInvalidOptions)
	case c.Write == "" && (c.Output != "" || c.Channels != "" || c.Manifest != ""):
		return fmt.Errorf("%w: --output, --channels, and --manifest are only valid with --write", ErrInvalidOptions)
	case c.Write != "" && c.Channels == "":
		return fmt.Errorf("%w: --channels is required with --write", ErrInvalidOptions)
	case c.MaxConcurrency < 0:
		return fmt.Errorf("%w: --max-concurrency must be non-negative", ErrInvalidOptions)
	}

	return nil
}

// init loads configuration and fills in defaults that were not given as flags.
func (c *Command) init(ctx context.Context) (err error) {
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.loader == nil {
		c.loader = &config.Loader{}
	}
	if c.newS3Client == nil {
		c.newS3Client = func(ctx context.Context, profile string) (S3Client, error) {
			client, err := c.loader.NewS3Client(ctx, profile)
			if err != nil {
				return nil, err
			}

			return client, nil
		}
	}

	var name string
	if c.Config != "" {
		name = string(c.Config)
		err = c.loader.LoadFile(name)
	} else {
		name, err = c.loader.Load(ctx)
	}
	if err != nil {
		return fmt.Errorf(`load config "%s" error: %w`, name, err)
	}

	switch {
	case c.Read != "":
		c.Strict = c.Strict || c.loader.ForRead().Strict
		return nil
	case c.Verify != "":
		return nil
	}

	wc := c.loader.ForWrite()
	if c.Output == "" {
		c.Output = wc.OutputDir
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = wc.MaxConcurrency
	}
	c.NoClobber = c.NoClobber || wc.NoClobber
	c.KeepGoing = c.KeepGoing || wc.KeepGoing

	switch {
	case c.Output == "":
		return fmt.Errorf("%w: --output is required with --write unless [write] output-dir is set", ErrInvalidOptions)
	case c.MaxConcurrency < 0:
		return fmt.Errorf("%w: max-concurrency must be non-negative", ErrInvalidOptions)
	}

	if name != "" {
		log.Printf(`using config "%s"`, name)
	}

	return nil
}
