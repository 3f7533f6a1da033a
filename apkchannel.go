// Package apkchannel embeds a channel marker into a signed APK without invalidating its signature, and reads it back.
//
// The marker is stored as an extra ID-value pair inside the APK Signing Block, which is not covered by the v2 or v3
// signature schemes. Writing never modifies ZIP entries: the block grows by exactly one pair and the central directory
// offset in the EOCD record is shifted by the same amount.
package apkchannel

import (
	"io"
	"log"

	"github.com/nguyengg/apkchannel/sigblock"
	"github.com/nguyengg/apkchannel/zipsection"
)

// ChannelID is the ID of the signing block pair that stores the channel marker.
const ChannelID = sigblock.ChannelID

var (
	// ErrNotAZip is returned if the input has no EOCD record.
	ErrNotAZip = zipsection.ErrNotAZip
	// ErrMalformedZip is returned if the central directory and EOCD record of the input are inconsistent.
	ErrMalformedZip = zipsection.ErrMalformedZip
	// ErrSignatureNotFound is returned if the input has no valid signing block, or one of its pairs is malformed.
	ErrSignatureNotFound = sigblock.ErrSignatureNotFound
)

// Logger receives diagnostic messages. *log.Logger satisfies Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// discard is the default Logger.
var discard Logger = log.New(io.Discard, "", 0)
