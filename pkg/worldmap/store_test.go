package worldmap

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

func img(s string) models.Image { return models.NewImage([]byte(s)) }

func TestStorePutGet(t *testing.T) {
	store := NewAnchorImageStore()
	img1 := img("img1-bytes")

	store.Put("a1", img1)

	got, ok := store.Get("a1")
	if !ok {
		t.Fatal("expected image for a1")
	}
	if !got.Equal(img1) {
		t.Errorf("expected %q, got %q", img1.Data, got.Data)
	}
	if _, ok := store.Get("a2"); ok {
		t.Error("expected no image for a2")
	}
}

func TestStorePutOverwrites(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("a1", img("first"))
	store.Put("a1", img("second"))

	got, _ := store.Get("a1")
	if string(got.Data) != "second" {
		t.Errorf("expected overwrite, got %q", got.Data)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}
}

func TestStoreKeepsOwnCopy(t *testing.T) {
	store := NewAnchorImageStore()
	data := []byte("mutable")
	store.Put("a1", models.Image{Data: data})
	data[0] = 'X'

	got, _ := store.Get("a1")
	if string(got.Data) != "mutable" {
		t.Errorf("store shares caller's buffer: %q", got.Data)
	}

	got.Data[0] = 'Y'
	again, _ := store.Get("a1")
	if string(again.Data) != "mutable" {
		t.Errorf("Get leaks internal buffer: %q", again.Data)
	}
}

func TestStoreRemoveAndClear(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("a1", img("1"))
	store.Put("a2", img("2"))

	if !store.Remove("a1") {
		t.Error("expected Remove to report existing key")
	}
	if store.Remove("a1") {
		t.Error("expected second Remove to report missing key")
	}
	if _, ok := store.Get("a1"); ok {
		t.Error("a1 should be gone")
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("expected empty store after Clear, got %d", store.Len())
	}
}

func TestStoreReplaceWith(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("old", img("old"))

	loaded := NewAnchorImageStore()
	loaded.Put("n1", img("new1"))
	loaded.Put("n2", img("new2"))

	store.ReplaceWith(loaded)

	if diff := cmp.Diff([]models.AnchorID{"n1", "n2"}, store.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	loaded.Put("n3", img("late"))
	if store.Len() != 2 {
		t.Error("ReplaceWith must copy, not alias, the source store")
	}
}

func TestStoreToleratesStaleKeys(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("gone-anchor", img("x"))

	blob, err := store.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if _, err := DeserializeStore(blob); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("a1", img("img1"))

	blob, err := store.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	restored, err := DeserializeStore(blob)
	if err != nil {
		t.Fatalf("DeserializeStore failed: %v", err)
	}
	got, ok := restored.Get("a1")
	if !ok || !got.Equal(img("img1")) {
		t.Errorf("expected img1 after round trip, got %q (ok=%v)", got.Data, ok)
	}
	if !restored.Equal(store) {
		t.Error("restored store differs from original")
	}
}

func TestSerializeRoundTripRandomMappings(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		store := NewAnchorImageStore()
		n := rng.Intn(20)
		for j := 0; j < n; j++ {
			data := make([]byte, 1+rng.Intn(512))
			rng.Read(data)
			id := models.AnchorID(fmt.Sprintf("anchor-%d-%d", i, rng.Int63()))
			store.Put(id, models.Image{Data: data})
		}
		// Keys are opaque: odd characters must survive.
		if n > 0 {
			store.Put("weird \"key\"\né/\\", img("w"))
			store.Put("a\xff", img("ff"))
			store.Put("a\xfe", img("fe"))
		}

		blob, err := store.Serialize()
		if err != nil {
			t.Fatalf("iteration %d: Serialize failed: %v", i, err)
		}
		restored, err := DeserializeStore(blob)
		if err != nil {
			t.Fatalf("iteration %d: DeserializeStore failed: %v", i, err)
		}
		if !restored.Equal(store) {
			t.Fatalf("iteration %d: round trip changed the mapping", i)
		}
	}
}

func TestSerializeKeepsNonUTF8AnchorIDs(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("a\xff", img("first"))
	store.Put("a\xfe", img("second"))

	blob, err := store.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored, err := DeserializeStore(blob)
	if err != nil {
		t.Fatalf("DeserializeStore failed: %v", err)
	}

	if diff := cmp.Diff([]models.AnchorID{"a\xfe", "a\xff"}, restored.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	got, _ := restored.Get("a\xff")
	if string(got.Data) != "first" {
		t.Errorf("expected first image under a\\xff, got %q", got.Data)
	}
}

func TestSerializeEmptyStore(t *testing.T) {
	blob, err := NewAnchorImageStore().Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored, err := DeserializeStore(blob)
	if err != nil {
		t.Fatalf("DeserializeStore failed: %v", err)
	}
	if restored.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", restored.Len())
	}
}

func TestSerializeEmptyImageFails(t *testing.T) {
	store := NewAnchorImageStore()
	store.Put("a1", img("ok"))
	store.Put("a2", models.Image{})

	_, err := store.Serialize()
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected *EncodingError, got %v", err)
	}
}

func TestDeserializeInvalid(t *testing.T) {
	valid, _ := NewAnchorImageStore().Serialize()
	header := valid[:headerSize]
	withBody := func(body string) []byte {
		return append(append([]byte{}, header...), body...)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"short", []byte("AR")},
		{"garbage", []byte("this is not a blob at all")},
		{"world map magic", append([]byte("ARWM\x01\x00"), valid[headerSize:]...)},
		{"future version", append([]byte("ARIM\x09\x00"), valid[headerSize:]...)},
		{"unknown flag", append([]byte("ARIM\x01\x80"), valid[headerSize:]...)},
		{"truncated json", withBody(`{"images":[{"anchor":"YTE=","image":"aW1n"}`)},
		{"missing images", withBody(`{}`)},
		{"null images", withBody(`{"images":null}`)},
		{"not base64", withBody(`{"images":[{"anchor":"YTE=","image":"!!!"}]}`)},
		{"empty image", withBody(`{"images":[{"anchor":"YTE=","image":""}]}`)},
		{"missing anchor", withBody(`{"images":[{"image":"aW1n"}]}`)},
		{"duplicate anchor", withBody(`{"images":[{"anchor":"YTE=","image":"aW1n"},{"anchor":"YTE=","image":"aW1n"}]}`)},
		{"wrong shape", withBody(`{"images":{"a1":"aW1n"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeStore(tt.data)
			var decErr *DecodingError
			if !errors.As(err, &decErr) {
				t.Errorf("expected *DecodingError, got %v", err)
			}
		})
	}
}

func TestStoreEqual(t *testing.T) {
	a := NewAnchorImageStore()
	b := NewAnchorImageStore()
	if !a.Equal(b) {
		t.Error("empty stores should be equal")
	}

	a.Put("x", img("1"))
	if a.Equal(b) {
		t.Error("stores with different sizes should differ")
	}
	b.Put("x", img("2"))
	if a.Equal(b) {
		t.Error("stores with different images should differ")
	}
	b.Put("x", img("1"))
	if !a.Equal(b) {
		t.Error("stores with same content should be equal")
	}
	if !a.Equal(a.Clone()) {
		t.Error("clone should equal original")
	}
}
