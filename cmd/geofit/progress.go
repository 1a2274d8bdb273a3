package main

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// barProgress shows one progress bar per evaluation stage.
type barProgress struct {
	mu  sync.Mutex
	out io.Writer
	bar *pb.ProgressBar
}

func newBarProgress(out io.Writer) *barProgress {
	return &barProgress{out: out}
}

func (p *barProgress) Start(stage string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
	}
	p.bar = pb.New(total).SetWriter(p.out).Set("prefix", stage+" ")
	p.bar.Start()
}

func (p *barProgress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *barProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
