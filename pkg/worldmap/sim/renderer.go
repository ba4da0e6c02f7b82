package sim

import (
	"sync"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// Renderer records which image was attached to which anchor.
type Renderer struct {
	mu     sync.Mutex
	placed map[models.AnchorID]models.Image
	calls  int
}

func NewRenderer() *Renderer {
	return &Renderer{placed: make(map[models.AnchorID]models.Image)}
}

func (r *Renderer) Place(id models.AnchorID, img models.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed[id] = img.Clone()
	r.calls++
}

// Placed returns the image attached to id, if any.
func (r *Renderer) Placed(id models.AnchorID) (models.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.placed[id]
	return img, ok
}

// Calls counts Place calls.
func (r *Renderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
