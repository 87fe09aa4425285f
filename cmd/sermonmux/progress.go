package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"sermonmux/internal/language"
	"sermonmux/internal/upload"
)

// uploadBar renders one byte progress bar per uploaded language.
type uploadBar struct {
	out io.Writer

	mu   sync.Mutex
	lang string
	bar  *progressbar.ProgressBar
}

// newUploadBar returns nil when out is not an interactive terminal; logs
// already carry sampled progress there.
func newUploadBar(out io.Writer) *uploadBar {
	if !shouldColorize(out) {
		return nil
	}
	return &uploadBar{out: out}
}

func (b *uploadBar) observer() upload.ProgressFunc {
	if b == nil {
		return nil
	}
	return b.observe
}

func (b *uploadBar) observe(p upload.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil || b.lang != p.Language {
		b.finishLocked()
		b.lang = p.Language
		b.bar = progressbar.NewOptions64(p.Total,
			progressbar.OptionSetWriter(b.out),
			progressbar.OptionSetDescription(fmt.Sprintf("Uploading %s", language.DisplayName(p.Language))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(b.out) }),
		)
	}
	_ = b.bar.Set64(p.Sent)
	if p.Total > 0 && p.Sent >= p.Total {
		b.finishLocked()
	}
}

func (b *uploadBar) finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.finishLocked()
	b.mu.Unlock()
}

func (b *uploadBar) finishLocked() {
	if b.bar == nil {
		return
	}
	if !b.bar.IsFinished() {
		_ = b.bar.Finish()
	}
	b.bar = nil
	b.lang = ""
}
