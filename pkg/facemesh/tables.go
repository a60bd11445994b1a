// Package facemesh rebuilds a textured triangle surface from face landmarks
// every frame.
package facemesh

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"
)

// Region names of the face overlay, in build order.
const (
	Forehead   = "forehead"
	LeftEye    = "leftEye"
	RightEye   = "rightEye"
	LeftCheek  = "leftCheek"
	RightCheek = "rightCheek"
	Nose       = "nose"
	Mouth      = "mouth"
)

// DefaultRegionOrder lists the regions a complete overlay is built from
var DefaultRegionOrder = []string{Forehead, LeftEye, RightEye, LeftCheek, RightCheek, Nose, Mouth}

var (
	// ErrMissingUV is returned when a triangle references a landmark without a texture coordinate
	ErrMissingUV = errors.New("missing uv coordinate")

	// ErrInvalidTable is returned for malformed region tables
	ErrInvalidTable = errors.New("invalid region table")
)

// Triangle names three landmark indices
type Triangle [3]int

// Region is a named group of triangles
type Region struct {
	Name      string     `toml:"name" json:"name"`
	Triangles []Triangle `toml:"triangles" json:"triangles"`
}

// UVTable maps a landmark index to its texture coordinate
type UVTable map[int]mgl64.Vec2

// Tables is the static triangulation loaded once at startup
type Tables struct {
	Regions []Region
	UV      UVTable
}

// Region returns the named region, if present
func (t Tables) Region(name string) (Region, bool) {
	for _, r := range t.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Missing returns the names from want that the tables do not define
func (t Tables) Missing(want ...string) []string {
	var missing []string
	for _, name := range want {
		if _, ok := t.Region(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// MaxIndex returns the highest landmark index any triangle references, or -1
func (t Tables) MaxIndex() int {
	hi := -1
	for _, r := range t.Regions {
		for _, tri := range r.Triangles {
			for _, i := range tri {
				if i > hi {
					hi = i
				}
			}
		}
	}
	return hi
}

// Validate checks indices and UV coverage
func (t Tables) Validate() error {
	seen := make(map[string]bool, len(t.Regions))
	for _, r := range t.Regions {
		if r.Name == "" {
			return fmt.Errorf("%w: region without name", ErrInvalidTable)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate region %q", ErrInvalidTable, r.Name)
		}
		seen[r.Name] = true

		for n, tri := range r.Triangles {
			for _, i := range tri {
				if i < 0 {
					return fmt.Errorf("%w: region %q triangle %d has negative index %d", ErrInvalidTable, r.Name, n, i)
				}
				if _, ok := t.UV[i]; !ok {
					return fmt.Errorf("%w: landmark %d (region %q)", ErrMissingUV, i, r.Name)
				}
			}
		}
	}
	return nil
}

// tableFile is the on-disk layout. UV keys are landmark indices.
type tableFile struct {
	UV      map[string]mgl64.Vec2 `toml:"uv"`
	Regions []Region              `toml:"regions"`
}

// LoadTables reads and validates a TOML triangulation file
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read mesh tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes a TOML triangulation document
func ParseTables(data []byte) (Tables, error) {
	var f tableFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return Tables{}, fmt.Errorf("decode mesh tables: %w", err)
	}

	uv := make(UVTable, len(f.UV))
	for key, coord := range f.UV {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return Tables{}, fmt.Errorf("%w: uv key %q is not a landmark index", ErrInvalidTable, key)
		}
		uv[idx] = coord
	}

	t := Tables{Regions: f.Regions, UV: uv}
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Marshal encodes the tables in the LoadTables layout
func (t Tables) Marshal() ([]byte, error) {
	keys := make([]int, 0, len(t.UV))
	for k := range t.UV {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	f := tableFile{UV: make(map[string]mgl64.Vec2, len(keys)), Regions: t.Regions}
	for _, k := range keys {
		f.UV[strconv.Itoa(k)] = t.UV[k]
	}
	return toml.Marshal(f)
}
