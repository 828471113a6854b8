package geom

import (
	"fmt"
	"strings"
)

// Boundary is the boundary condition along a single axis.
type Boundary int

const (
	Open Boundary = iota
	Periodic
)

func (b Boundary) String() string {
	switch b {
	case Open:
		return "o"
	case Periodic:
		return "p"
	}
	return "?"
}

// Boundaries gives the boundary condition of each axis, in axis order.
type Boundaries []Boundary

// ParseBoundaries converts a string like "pp" or "ppo" into Boundaries.
// Character i gives the boundary condition of axis i.
func ParseBoundaries(s string) (Boundaries, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, &ConfigError{"Boundary", "boundary string is empty"}
	}

	bc := make(Boundaries, len(s))
	for i, c := range s {
		switch c {
		case 'p':
			bc[i] = Periodic
		case 'o':
			bc[i] = Open
		default:
			return nil, &ConfigError{
				"Boundary",
				fmt.Sprintf("axis %d has boundary '%c', must be 'p' or 'o'", i, c),
			}
		}
	}
	return bc, nil
}

// Uniform returns an n-dimensional Boundaries with the same condition on
// every axis.
func Uniform(n int, b Boundary) Boundaries {
	bc := make(Boundaries, n)
	for i := range bc {
		bc[i] = b
	}
	return bc
}

func (bc Boundaries) String() string {
	sb := strings.Builder{}
	for _, b := range bc {
		sb.WriteString(b.String())
	}
	return sb.String()
}

// Check returns a ConfigError if bc does not describe a grid with dim axes.
func (bc Boundaries) Check(dim int) error {
	if len(bc) != dim {
		return &ConfigError{
			"Boundary",
			fmt.Sprintf("boundary string '%s' has %d axes, but the grid has %d",
				bc, len(bc), dim),
		}
	}
	return nil
}

// Connectivity selects which cells count as neighbours.
type Connectivity int

const (
	// Face connects cells sharing a face: 2n neighbours (4 in 2D).
	Face Connectivity = iota
	// Full connects cells sharing any corner: 3^n - 1 neighbours (8 in 2D).
	Full
)

func (c Connectivity) String() string {
	switch c {
	case Face:
		return "Face"
	case Full:
		return "Full"
	}
	return "Unknown"
}

// ParseConnectivity accepts "Face"/"4" or "Full"/"8", case-insensitively.
func ParseConnectivity(s string) (Connectivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "face", "4":
		return Face, nil
	case "full", "8":
		return Full, nil
	}
	return Face, &ConfigError{
		"Connectivity",
		fmt.Sprintf("'%s' not recognized, must be one of [Face | Full]", s),
	}
}

// ForwardOffsets returns half of the neighbourhood of a cell in dim
// dimensions: every offset whose last non-zero component is +1. Joining
// each cell with its forward neighbours visits every adjacent pair once.
func (c Connectivity) ForwardOffsets(dim int) [][]int {
	if c == Face {
		offsets := make([][]int, dim)
		for i := range offsets {
			offsets[i] = make([]int, dim)
			offsets[i][i] = 1
		}
		return offsets
	}

	offsets := [][]int{}
	delta := make([]int, dim)
	for i := range delta {
		delta[i] = -1
	}

	for {
		last := 0
		for i := dim - 1; i >= 0; i-- {
			if delta[i] != 0 {
				last = delta[i]
				break
			}
		}
		if last == 1 {
			offsets = append(offsets, append([]int{}, delta...))
		}

		// odometer increment over {-1, 0, 1}^dim
		i := 0
		for ; i < dim; i++ {
			if delta[i] < 1 {
				delta[i]++
				break
			}
			delta[i] = -1
		}
		if i == dim {
			break
		}
	}
	return offsets
}

// ConfigError reports an invalid run configuration. It is raised once, when
// a run is set up, never per snapshot.
type ConfigError struct {
	Field, Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration '%s': %s", e.Field, e.Msg)
}
