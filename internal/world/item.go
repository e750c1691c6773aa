package world

// Item is a ground surface (grass, water, lava...). A tile holds at most one.
type Item struct {
	ID   uint16
	Name string
}
