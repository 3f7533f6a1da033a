package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewCountBar returns a progress bar on stderr that counts finished APKs out of n.
//
// Each step is one written channel, rendered as "apk/s". Redraws are throttled to once per second.
func NewCountBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("apk"),
		progressbar.OptionThrottle(time.Second),
		progressbar.OptionSetPredictTime(n > 1),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(os.Stderr)
		}),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true))
}
