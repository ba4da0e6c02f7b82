package sim

import (
	"context"
	"sync"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap"
)

// Picker answers picks from a queue of scripted results. With an empty queue
// every pick is cancelled.
type Picker struct {
	mu      sync.Mutex
	queue   []worldmap.PickResult
	pending chan struct{}
	picks   int
}

func NewPicker() *Picker { return &Picker{} }

// Choose queues a successful pick of img.
func (p *Picker) Choose(img models.Image) {
	p.push(worldmap.PickResult{Image: img})
}

// Cancel queues a cancelled pick.
func (p *Picker) Cancel() {
	p.push(worldmap.PickResult{Cancelled: true})
}

// Fail queues a pick that ends with err.
func (p *Picker) Fail(err error) {
	p.push(worldmap.PickResult{Err: err})
}

// Hold makes the next picks wait until Release is called, like a picker the
// user has not dismissed yet.
func (p *Picker) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		p.pending = make(chan struct{})
	}
}

// Release lets held picks complete.
func (p *Picker) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		close(p.pending)
		p.pending = nil
	}
}

func (p *Picker) push(r worldmap.PickResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, r)
}

// Picks counts how many times the picker was presented.
func (p *Picker) Picks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.picks
}

func (p *Picker) Pick(ctx context.Context) <-chan worldmap.PickResult {
	p.mu.Lock()
	p.picks++
	r := worldmap.PickResult{Cancelled: true}
	if len(p.queue) > 0 {
		r, p.queue = p.queue[0], p.queue[1:]
	}
	gate := p.pending
	p.mu.Unlock()

	ch := make(chan worldmap.PickResult, 1)
	if gate == nil {
		ch <- r
		return ch
	}
	go func() {
		select {
		case <-gate:
			ch <- r
		case <-ctx.Done():
			ch <- worldmap.PickResult{Cancelled: true}
		}
	}()
	return ch
}
