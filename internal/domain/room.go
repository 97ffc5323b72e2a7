package domain

import "fmt"

// MaxRoomsPerType is the number of bookable units of every room type per night.
const MaxRoomsPerType = 2

// defaultMaxGuests applies to room names outside the catalog.
const defaultMaxGuests = 2

type RoomType struct {
	ID           int      `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	BedType      string   `json:"bedType" yaml:"bed_type"`
	Size         string   `json:"size" yaml:"size"`
	MaxOccupancy int      `json:"maxOccupancy" yaml:"max_occupancy"`
	Price        int      `json:"price" yaml:"price"` // nightly, whole dollars
	Facilities   []string `json:"facilities" yaml:"facilities"`
	Image        string   `json:"image" yaml:"image"`
	Description  string   `json:"description" yaml:"description"`
}

// Catalog is the fixed room table. It is built once and never mutated, so it
// can be shared between goroutines without locking.
type Catalog struct {
	rooms  []RoomType
	byName map[string]RoomType
}

func NewCatalog(rooms []RoomType) (*Catalog, error) {
	if len(rooms) == 0 {
		return nil, fmt.Errorf("catalog: no rooms")
	}
	c := &Catalog{
		rooms:  make([]RoomType, 0, len(rooms)),
		byName: make(map[string]RoomType, len(rooms)),
	}
	ids := make(map[int]struct{}, len(rooms))
	for _, r := range rooms {
		if r.ID == 0 {
			return nil, fmt.Errorf("catalog: room %q has id 0", r.Name)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("catalog: room %d has no name", r.ID)
		}
		if r.MaxOccupancy < 1 {
			return nil, fmt.Errorf("catalog: room %q has max occupancy %d", r.Name, r.MaxOccupancy)
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate room id %d", r.ID)
		}
		if _, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate room name %q", r.Name)
		}
		ids[r.ID] = struct{}{}
		r.Facilities = append([]string(nil), r.Facilities...)
		c.rooms = append(c.rooms, r)
		c.byName[r.Name] = r
	}
	return c, nil
}

// Rooms returns the catalog in display order. The slice is a copy.
func (c *Catalog) Rooms() []RoomType {
	out := make([]RoomType, len(c.rooms))
	copy(out, c.rooms)
	return out
}

func (c *Catalog) Room(name string) (RoomType, bool) {
	r, ok := c.byName[name]
	return r, ok
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// MaxGuests is the occupancy limit used by form validation.
func (c *Catalog) MaxGuests(name string) int {
	if r, ok := c.byName[name]; ok {
		return r.MaxOccupancy
	}
	return defaultMaxGuests
}
