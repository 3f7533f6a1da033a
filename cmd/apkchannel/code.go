package main

import (
	"errors"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/apkchannel/internal/cmd"
)

// exitCode returns 0 on success or help, 2 on usage errors, 1 otherwise.
func exitCode(err error) int {
	var flagsErr *flags.Error

	switch {
	case err == nil, flags.WroteHelp(err):
		return 0
	case errors.Is(err, cmd.ErrInvalidOptions), errors.As(err, &flagsErr):
		return 2
	default:
		return 1
	}
}
