package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file searched for in the working directory and its parents.
const Name = ".apkchannel"

// Loader can be used for loading .apkchannel configuration.
type Loader struct {
	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards from the working directory to find the first ".apkchannel"
// file available and load its contents into the Loader. If none is found, "~/.apkchannel/config.ini" is tried.
//
// The name of the file that was loaded is returned; empty string if no configuration file exists.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	path, err := find(ctx, cur)
	if err != nil {
		return "", err
	}

	if path == "" {
		if path, err = homeConfig(); err != nil || path == "" {
			l.cfg = ini.Empty()
			return "", err
		}
	}

	return path, l.LoadFile(path)
}

// LoadFile loads the named file into the Loader.
func (l *Loader) LoadFile(name string) (err error) {
	if l.cfg, err = ini.Load(name); err != nil {
		l.cfg = ini.Empty()
		return err
	}

	return nil
}

// find returns the first regular file named Name in dir or its parents.
func find(ctx context.Context, dir string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		path := filepath.Join(dir, Name)
		fi, err := os.Stat(path)
		switch {
		case err == nil && !fi.IsDir():
			return path, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}

func homeConfig() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		// no home dir is the same as no config.
		return "", nil
	}

	path := filepath.Join(dir, Name, "config.ini")
	switch _, err = os.Stat(path); {
	case err == nil:
		return path, nil
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	default:
		return "", err
	}
}

func (l *Loader) file() *ini.File {
	if l.cfg == nil {
		l.cfg = ini.Empty()
	}

	return l.cfg
}
