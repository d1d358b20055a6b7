// Package progress draws terminal progress bars for long scans.
package progress

import (
	"os"
	"time"

	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"golang.org/x/crypto/ssh/terminal"
)

// DefaultWidth is used when stdout is not a terminal.
const DefaultWidth = 80

func New() *mpb.Progress {
	width, _, err := terminal.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = DefaultWidth
	}
	return mpb.New(mpb.WithWidth(width))
}

// Bar counts completed items. A nil *Bar discards every increment.
type Bar struct {
	bar   *mpb.Bar
	start time.Time
}

// AddCounter adds a bar showing done/total and an ETA. It returns nil when p
// is nil.
func AddCounter(p *mpb.Progress, name string, total int64) *Bar {
	if p == nil {
		return nil
	}

	bar := p.AddBar(total,
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_HHMMSS)),
		mpb.PrependDecorators(decor.Name(name)),
		mpb.PrependDecorators(decor.CountersNoUnit("%3d/%3d", decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete())

	return &Bar{bar: bar, start: time.Now()}
}

func (b *Bar) IncrBy(n int) {
	if b == nil {
		return
	}
	b.bar.IncrBy(n, time.Since(b.start))
}

func (b *Bar) Incr() {
	b.IncrBy(1)
}

// Done marks the bar complete at its current count.
func (b *Bar) Done(count int64) {
	if b == nil {
		return
	}
	b.bar.SetTotal(count, true)
}
