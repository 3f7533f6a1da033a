package cmd

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/apkchannel/internal"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// reporter receives one call per channel once that channel is done, successfully or not.
//
// Implementations must be safe for concurrent use.
type reporter interface {
	done(size int64, err error)
	close()
}

// newReporter returns a progress bar reporter if requested and stderr is a terminal, a throttled log reporter
// otherwise.
func newReporter(n int, progress bool) reporter {
	if progress && term.IsTerminal(int(os.Stderr.Fd())) {
		return &barReporter{bar: internal.NewCountBar(n, "writing channels")}
	}

	return &logReporter{
		logger: log.Default(),
		rate:   &rate.Sometimes{Interval: 5 * time.Second},
		n:      n,
	}
}

type logReporter struct {
	logger *log.Logger
	rate   *rate.Sometimes
	n      int

	mu                sync.Mutex
	success, failures int
	written           int64
}

func (l *logReporter) done(size int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.failures++
	} else {
		l.success++
		l.written += size
	}

	l.rate.Do(func() {
		l.logger.Printf("wrote %d/%d channels (%s) so far", l.success, l.n, humanize.IBytes(uint64(l.written)))
	})
}

func (l *logReporter) close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf("successfully wrote %d/%d channels (%s)", l.success, l.n, humanize.IBytes(uint64(l.written)))
}

type barReporter struct {
	bar *progressbar.ProgressBar
}

func (b *barReporter) done(_ int64, _ error) {
	// ignore all errors from progress bar.
	_ = b.bar.Add(1)
}

func (b *barReporter) close() {
	_ = b.bar.Close()
}
