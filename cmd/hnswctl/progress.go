package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// progress prints at every tenth of the total, and at most once per second
// in between.
type progress struct {
	w       io.Writer
	label   string
	total   int
	step    int
	next    int
	start   time.Time
	limiter *rate.Limiter
}

func newProgress(w io.Writer, label string, total int) *progress {
	step := max(total/10, 1)
	return &progress{
		w:       w,
		label:   label,
		total:   total,
		step:    step,
		next:    step,
		start:   time.Now(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Update reports that done of total units are finished.
func (p *progress) Update(done int) {
	if done >= p.next || done == p.total {
		for p.next <= done {
			p.next += p.step
		}
		p.print(done)
		return
	}
	if p.limiter.Allow() {
		p.print(done)
	}
}

func (p *progress) print(done int) {
	fmt.Fprintf(p.w, "\t%s: %s / %s [elapsed %s]\n",
		p.label, humanize.Comma(int64(done)), humanize.Comma(int64(p.total)),
		time.Since(p.start).Round(time.Millisecond))
}
