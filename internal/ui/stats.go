package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/branchd/internal/util"
)

type Stats struct {
	TotalChapters atomic.Int64
	TotalImages   atomic.Int64
	SkippedImages atomic.Int64
	FailedImages  atomic.Int64
	TotalBytes    atomic.Int64
}

// PrintSummary writes the end-of-run report.
func (s *Stats) PrintSummary(w io.Writer, files []string, elapsed time.Duration) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Download Summary:")
	_, _ = fmt.Fprintf(w, "Chapters: %d\n", s.TotalChapters.Load())
	_, _ = fmt.Fprintf(w, "Images:   %d (skipped %d, failed %d)\n",
		s.TotalImages.Load(), s.SkippedImages.Load(), s.FailedImages.Load())
	_, _ = fmt.Fprintf(w, "Data:     %s\n", util.Human(s.TotalBytes.Load()))
	_, _ = fmt.Fprintf(w, "Files:    %d\n", len(files))
	_, _ = fmt.Fprintf(w, "Time:     %s\n", elapsed.Round(time.Second))
}
