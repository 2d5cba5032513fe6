package character

// Store exposes preset retrieval for handlers and the turn pipeline.
type Store interface {
	List() []Preset
	FindByID(id string) (Preset, bool)
}

// MemoryStore implements Store with an in-memory slice, populated once at startup.
type MemoryStore struct {
	items []Preset
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied presets.
func NewMemoryStore(items []Preset) *MemoryStore {
	return &MemoryStore{items: append([]Preset(nil), items...)}
}

// List returns the loaded preset list in load order.
func (s *MemoryStore) List() []Preset {
	return append([]Preset(nil), s.items...)
}

// FindByID looks up a preset by identifier.
func (s *MemoryStore) FindByID(id string) (Preset, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Preset{}, false
}
