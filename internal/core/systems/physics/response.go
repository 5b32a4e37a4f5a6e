package physics

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
)

// Response selects how a body's velocity reacts to a contact normal.
type Response uint8

const (
	// ResponseProject removes the into-surface component so the body slides.
	ResponseProject Response = iota
	// ResponseReflect mirrors the velocity across the normal so the body bounces.
	ResponseReflect
)

func (r Response) String() string {
	switch r {
	case ResponseProject:
		return "project"
	case ResponseReflect:
		return "reflect"
	default:
		return fmt.Sprintf("response(%d)", uint8(r))
	}
}

// Valid reports whether r is a known response.
func (r Response) Valid() bool {
	return r == ResponseProject || r == ResponseReflect
}

// Apply maps velocity v against the unit normal n.
func (r Response) Apply(v, n r2.Point) r2.Point {
	if r == ResponseReflect {
		return Reflect(v, n)
	}
	return Project(v, n)
}

// ParseResponse accepts "project"/"slide" and "reflect"/"bounce".
func ParseResponse(s string) (Response, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project", "slide":
		return ResponseProject, nil
	case "reflect", "bounce":
		return ResponseReflect, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownResponse, s)
	}
}

// Reflect mirrors v across n: v - 2·dot(v,n)·n. The speed is preserved.
func Reflect(v, n r2.Point) r2.Point {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// Project strips the component of v along n: v - dot(v,n)·n.
func Project(v, n r2.Point) r2.Point {
	return v.Sub(n.Mul(v.Dot(n)))
}
