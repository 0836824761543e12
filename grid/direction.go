package grid

import "fmt"

// Direction is one of the four cardinal directions, indexed 0..3.
type Direction int

const (
	East Direction = iota
	North
	West
	South
)

// DirectionCount is the number of cardinal directions.
const DirectionCount = 4

var (
	// Directions lists every direction in canonical index order.
	Directions = [DirectionCount]Direction{East, North, West, South}

	vectors = [DirectionCount]Position{
		{X: 1, Y: 0},
		{X: 0, Y: 1},
		{X: -1, Y: 0},
		{X: 0, Y: -1},
	}

	directionNames = [DirectionCount]string{"East", "North", "West", "South"}
)

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	return d >= 0 && d < DirectionCount
}

// Vector returns the unit offset of the direction.
func (d Direction) Vector() (dx, dy int) {
	v := vectors[d]
	return v.X, v.Y
}

// Across returns the direction a neighbor uses to refer back to this cell.
func (d Direction) Across() Direction {
	return (d + 2) % DirectionCount
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection maps a direction name back to its index.
func ParseDirection(name string) (Direction, error) {
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", name)
}

// Position represents a cell coordinate on the grid.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Neighbor returns the coordinate one step away in direction d.
// No bounds check is performed.
func (p Position) Neighbor(d Direction) Position {
	dx, dy := d.Vector()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(directionNames[d]), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
