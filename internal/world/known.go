package world

// KnownCreatures tracks the creatures an observer has been told about and
// the last position it was told. Maintained by the appear/disappear/move
// callbacks.
type KnownCreatures struct {
	byID map[uint32]Position
}

// NewKnownCreatures returns an empty set.
func NewKnownCreatures() *KnownCreatures {
	return &KnownCreatures{byID: make(map[uint32]Position)}
}

func (k *KnownCreatures) put(id uint32, pos Position) {
	k.byID[id] = pos
}

func (k *KnownCreatures) forget(id uint32) {
	delete(k.byID, id)
}

// Knows reports whether id is in the set.
func (k *KnownCreatures) Knows(id uint32) bool {
	_, ok := k.byID[id]
	return ok
}

// LastSeen returns the last position reported for id.
func (k *KnownCreatures) LastSeen(id uint32) (Position, bool) {
	pos, ok := k.byID[id]
	return pos, ok
}

// Len returns the number of known creatures.
func (k *KnownCreatures) Len() int {
	return len(k.byID)
}

// Reset forgets everything (used when a session takes over a character).
func (k *KnownCreatures) Reset() {
	clear(k.byID)
}
