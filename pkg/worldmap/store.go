package worldmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// AnchorImageStore maps anchor IDs to the image placed on each anchor.
//
// The store does not own anchor lifecycle: keys for anchors that the session
// no longer tracks stay until the next load replaces the whole mapping.
// It is safe for concurrent use.
type AnchorImageStore struct {
	mu     sync.RWMutex
	images map[models.AnchorID]models.Image
}

// NewAnchorImageStore returns an empty store.
func NewAnchorImageStore() *AnchorImageStore {
	return &AnchorImageStore{images: make(map[models.AnchorID]models.Image)}
}

// Put inserts or overwrites the image for id. The store keeps its own copy of
// the bytes.
func (s *AnchorImageStore) Put(id models.AnchorID, img models.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[id] = img.Clone()
}

// Get returns the image for id and whether one is set.
func (s *AnchorImageStore) Get(id models.AnchorID) (models.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	if !ok {
		return models.Image{}, false
	}
	return img.Clone(), true
}

// Remove drops the image for id and reports whether there was one.
func (s *AnchorImageStore) Remove(id models.AnchorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.images[id]
	delete(s.images, id)
	return ok
}

// Clear empties the store.
func (s *AnchorImageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = make(map[models.AnchorID]models.Image)
}

// ReplaceWith makes s hold exactly the entries of other. Readers never observe
// a mix of old and new entries.
func (s *AnchorImageStore) ReplaceWith(other *AnchorImageStore) {
	fresh := other.snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = fresh
}

// Len returns the number of entries.
func (s *AnchorImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// IDs returns the stored anchor IDs in ascending order.
func (s *AnchorImageStore) IDs() []models.AnchorID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]models.AnchorID, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns an independent copy of the store.
func (s *AnchorImageStore) Clone() *AnchorImageStore {
	return &AnchorImageStore{images: s.snapshot()}
}

// Equal reports whether both stores hold the same keys with equal images.
func (s *AnchorImageStore) Equal(other *AnchorImageStore) bool {
	if s == other {
		return true
	}
	a, b := s.snapshot(), other.snapshot()
	if len(a) != len(b) {
		return false
	}
	for id, img := range a {
		o, ok := b[id]
		if !ok || !img.Equal(o) {
			return false
		}
	}
	return true
}

// snapshot deep-copies the mapping under the read lock.
func (s *AnchorImageStore) snapshot() map[models.AnchorID]models.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.AnchorID]models.Image, len(s.images))
	for id, img := range s.images {
		out[id] = img.Clone()
	}
	return out
}

// imageMapEntry is one anchor/image pair. The anchor ID travels as base64
// bytes so IDs that are not valid UTF-8 survive the JSON body.
type imageMapEntry struct {
	Anchor []byte `json:"anchor"`
	Image  []byte `json:"image"`
}

// imageMapDocument is the body of an image-map blob.
type imageMapDocument struct {
	Images []imageMapEntry `json:"images"`
}

var defaultImageCodec = codec{kind: imageMapBlob}

// Serialize encodes the full mapping as an uncompressed, unsealed image-map
// blob. It fails with *EncodingError if any image is empty.
func (s *AnchorImageStore) Serialize() ([]byte, error) {
	return s.serialize(defaultImageCodec)
}

func (s *AnchorImageStore) serialize(c codec) ([]byte, error) {
	entries := s.snapshot()
	ids := make([]models.AnchorID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	doc := imageMapDocument{Images: make([]imageMapEntry, 0, len(ids))}
	for _, id := range ids {
		img := entries[id]
		if img.Empty() {
			return nil, &EncodingError{What: c.kind.what, Err: fmt.Errorf("image for anchor %q is empty", id)}
		}
		doc.Images = append(doc.Images, imageMapEntry{Anchor: []byte(id), Image: img.Data})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, &EncodingError{What: c.kind.what, Err: err}
	}
	return c.encode(body)
}

// DeserializeStore decodes a blob produced by Serialize. It fails with
// *DecodingError when data is not a valid image-map blob.
func DeserializeStore(data []byte) (*AnchorImageStore, error) {
	return deserializeStore(data, defaultImageCodec)
}

func deserializeStore(data []byte, c codec) (*AnchorImageStore, error) {
	body, err := c.decode(data)
	if err != nil {
		return nil, err
	}

	var doc imageMapDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &DecodingError{What: c.kind.what, Err: err}
	}
	if doc.Images == nil {
		return nil, &DecodingError{What: c.kind.what, Err: errors.New(`missing "images" list`)}
	}

	store := &AnchorImageStore{images: make(map[models.AnchorID]models.Image, len(doc.Images))}
	for i, e := range doc.Images {
		if len(e.Anchor) == 0 {
			return nil, &DecodingError{What: c.kind.what, Err: fmt.Errorf("entry %d has no anchor", i)}
		}
		id := models.AnchorID(e.Anchor)
		if len(e.Image) == 0 {
			return nil, &DecodingError{What: c.kind.what, Err: fmt.Errorf("image for anchor %q is empty", id)}
		}
		if _, dup := store.images[id]; dup {
			return nil, &DecodingError{What: c.kind.what, Err: fmt.Errorf("anchor %q appears twice", id)}
		}
		store.images[id] = models.Image{Data: e.Image}
	}
	return store, nil
}
