package apkchannel

import (
	"path/filepath"
	"strings"
	"time"
)

// DateLayout is the layout of the date in output file names.
const DateLayout = "2006-01-02"

// OutputName returns the name of the output file for the given input and channel: "<stem>-<channel>-<yyyy-MM-dd>.apk".
//
// The stem is the base name of input minus its ".apk" extension if present.
func OutputName(input, channel string, t time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(input), ".apk")
	return stem + "-" + channel + "-" + t.Format(DateLayout) + ".apk"
}
