package punishment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Location is a position and rotation within a named world. It is stored in the extra data of jail records in
// the form "world:x,y,z,yaw,pitch,roll".
type Location struct {
	World    string
	Position mgl64.Vec3
	// Rotation holds the yaw, pitch and roll in degrees.
	Rotation mgl64.Vec3
}

// String encodes the location.
func (l Location) String() string {
	return fmt.Sprintf("%s:%s,%s,%s,%s,%s,%s", l.World,
		formatFloat(l.Position[0]), formatFloat(l.Position[1]), formatFloat(l.Position[2]),
		formatFloat(l.Rotation[0]), formatFloat(l.Rotation[1]), formatFloat(l.Rotation[2]),
	)
}

// ParseLocation decodes a location produced by Location.String.
func ParseLocation(s string) (Location, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return Location{}, fmt.Errorf("parse location %q: missing world separator", s)
	}
	parts := strings.Split(s[i+1:], ",")
	if len(parts) != 6 {
		return Location{}, fmt.Errorf("parse location %q: expected 6 components, got %d", s, len(parts))
	}

	var v [6]float64
	for n, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Location{}, fmt.Errorf("parse location %q: %w", s, err)
		}
		v[n] = f
	}
	return Location{
		World:    s[:i],
		Position: mgl64.Vec3{v[0], v[1], v[2]},
		Rotation: mgl64.Vec3{v[3], v[4], v[5]},
	}, nil
}

// formatFloat ...
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
