package carousel

import (
	"image"
	"sync"

	"github.com/google/uuid"
)

// TextureStore holds the images bound to carousel slots, keyed by an opaque
// handle the renderer uses to fetch them. It is safe for concurrent use: the
// render loop binds and releases while HTTP handlers read.
type TextureStore struct {
	mu       sync.RWMutex
	textures map[string]*image.RGBA
}

// NewTextureStore returns an empty store.
func NewTextureStore() *TextureStore {
	return &TextureStore{textures: make(map[string]*image.RGBA)}
}

// Bind stores img under a fresh handle.
func (s *TextureStore) Bind(img *image.RGBA) string {
	handle := uuid.NewString()

	s.mu.Lock()
	s.textures[handle] = img
	s.mu.Unlock()

	return handle
}

// Release drops the texture for handle. It reports whether the handle was bound.
func (s *TextureStore) Release(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.textures[handle]; !ok {
		return false
	}
	delete(s.textures, handle)
	return true
}

// Get returns the texture bound to handle.
func (s *TextureStore) Get(handle string) (*image.RGBA, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.textures[handle]
	return img, ok
}

// Outstanding returns the number of bound textures.
func (s *TextureStore) Outstanding() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.textures)
}
