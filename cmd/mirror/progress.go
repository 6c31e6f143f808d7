package main

import (
	"fmt"
	"io"
	"os"

	"github.com/b1naryth1ef/mirror"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// newProgress returns a single-line progress observer, or nil when out is
// not a terminal.
func newProgress(out *os.File) mirror.ProgressFunc {
	if !isatty.IsTerminal(out.Fd()) {
		return nil
	}
	return progressLine(out)
}

func progressLine(w io.Writer) mirror.ProgressFunc {
	return func(label string, transferred, total int64) {
		pct := 100.0
		if total > 0 {
			pct = float64(transferred) / float64(total) * 100
		}
		fmt.Fprintf(w, "\r\033[K%s %s / %s (%.0f%%)",
			label, humanize.Bytes(uint64(transferred)), humanize.Bytes(uint64(total)), pct)
		if transferred >= total {
			fmt.Fprintln(w)
		}
	}
}
