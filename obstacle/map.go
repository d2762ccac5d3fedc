// Package obstacle holds the static map and dynamic-obstacle models used
// by every planner's collision checks.
package obstacle

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// cell tracks whether a grid square is blocked. distanceToShore is kept
// for future cost-shaping use even though only the zero/nonzero boundary
// is consulted today.
type cell struct {
	distanceToShore int
}

func (c cell) isBlocked() bool { return c.distanceToShore == 0 }

// Map is a static obstacle grid loaded from an ASCII run-length-encoded
// description. GeoTIFF-backed maps are named in the wire protocol but not
// implemented here — they require an external raster parser outside this
// module's scope.
type Map struct {
	cells         [][]cell
	Width, Height int
}

func NewMap(width, height int) *Map {
	cells := make([][]cell, height)
	for y := range cells {
		row := make([]cell, width)
		for x := range row {
			row[x] = cell{distanceToShore: 1}
		}
		cells[y] = row
	}
	return &Map{cells: cells, Width: width, Height: height}
}

func (m *Map) blockRange(x, y, r int) {
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			if y+i < 0 || y+i >= m.Height || x+j < 0 || x+j >= m.Width {
				continue
			}
			m.cells[y+i][x+j].distanceToShore = 0
		}
	}
}

// IsBlocked reports whether (x, y) falls inside a blocked cell, or outside
// the map's bounds entirely (treated as blocked, matching the source
// model's fail-closed behavior).
func (m *Map) IsBlocked(x, y float64) bool {
	if x < 0 || x >= float64(m.Width) || y < 0 || y >= float64(m.Height) {
		return true
	}
	return m.cells[int(y)][int(x)].isBlocked()
}

// EmptyMap is a zero-obstacle map of the given size, used when the
// upstream source reports an empty path (no map loaded yet).
func EmptyMap(width, height int) *Map {
	return NewMap(width, height)
}

// LoadGridWorldMap parses the run-length-encoded ASCII format:
//
//	map <resolution> <width> <height>
//	# 0 5 10    (blocked from column 0 to 5, open from 5 to 10, ...)
//	_ 0 10
//	...height rows, highest y first
//
// Resolution multiplies both grid dimensions and blocked-range coordinates,
// letting a coarse hand-drawn map cover a larger area at a fixed cell size.
func LoadGridWorldMap(r *bufio.Reader) (*Map, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("obstacle: reading map header: %w", err)
	}
	var resolution, width, height int
	if _, err := fmt.Sscanf(header, "map %d %d %d", &resolution, &width, &height); err != nil {
		return nil, fmt.Errorf("obstacle: parsing map header %q: %w", header, err)
	}
	m := NewMap(width*resolution, height*resolution)
	for y := height - 1; y >= 0; y-- {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("obstacle: reading map row: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		block := fields[0] == "#"
		fields = fields[1:]
		x := 0
		for i, f := range fields {
			col, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("obstacle: parsing map row %q: %w", line, err)
			}
			if i == 0 {
				// the first boundary is where the row's leading run starts
				x = col
				continue
			}
			if block {
				for ; x < col; x++ {
					m.blockRange(x*resolution, y*resolution, resolution)
				}
			} else {
				x = col
			}
			block = !block
		}
		if block {
			for ; x < width; x++ {
				m.blockRange(x*resolution, y*resolution, resolution)
			}
		}
	}
	return m, nil
}
