// Package track describes the courses the car drives on: a set of wall
// segments plus a start and a finish position.
package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/zeu5/edgeracer/geometry"
)

var (
	ErrDegenerateCourse = errors.New("track: start and finish positions coincide")
	ErrInvalidWall      = errors.New("track: wall has zero length or non finite coordinates")
	ErrInvalidPosition  = errors.New("track: position has non finite coordinates")
)

// Wall is an immutable line segment of the track
type Wall struct {
	Start geometry.Position `json:"startPos"`
	End   geometry.Position `json:"endPos"`
}

func (w Wall) Length() float64 {
	return geometry.Distance(w.Start, w.End)
}

// Intersect returns the point where the segment from-to crosses the wall
func (w Wall) Intersect(from, to geometry.Position) (geometry.Position, bool) {
	return geometry.Intersect(from, to, w.Start, w.End)
}

// Course is a complete (walls, start, finish) triple that can be fed to the environment
type Course struct {
	Name   string            `json:"name"`
	Walls  []Wall            `json:"walls"`
	Start  geometry.Position `json:"startPos"`
	Finish geometry.Position `json:"finishPos"`
}

// Validate checks the course can be driven on.
func (c *Course) Validate() error {
	if !c.Start.IsFinite() || !c.Finish.IsFinite() {
		return ErrInvalidPosition
	}
	if geometry.Distance(c.Start, c.Finish) == 0 {
		return ErrDegenerateCourse
	}
	for i, w := range c.Walls {
		if !w.Start.IsFinite() || !w.End.IsFinite() || w.Length() == 0 {
			return fmt.Errorf("wall %d: %w", i, ErrInvalidWall)
		}
	}
	return nil
}

// Snapshot returns a copy of the walls that later edits to the course cannot change
func (c *Course) Snapshot() []Wall {
	walls := make([]Wall, len(c.Walls))
	copy(walls, c.Walls)
	return walls
}

// BorderWalls frames a width x height canvas
func BorderWalls(width, height float64) []Wall {
	return []Wall{
		{Start: geometry.Position{X: 0, Y: 0}, End: geometry.Position{X: 0, Y: height}},
		{Start: geometry.Position{X: 0, Y: 0}, End: geometry.Position{X: width, Y: 0}},
		{Start: geometry.Position{X: width, Y: height}, End: geometry.Position{X: width, Y: 0}},
		{Start: geometry.Position{X: width, Y: height}, End: geometry.Position{X: 0, Y: height}},
	}
}

// Load reads a course from a JSON file
func Load(path string) (*Course, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	course := &Course{}
	if err := json.Unmarshal(bs, course); err != nil {
		return nil, fmt.Errorf("parsing course %s: %w", path, err)
	}
	if course.Name == "" {
		course.Name = path
	}
	if err := course.Validate(); err != nil {
		return nil, fmt.Errorf("course %s: %w", path, err)
	}
	return course, nil
}

// Save writes the course as indented JSON
func Save(path string, course *Course) error {
	bs, err := json.MarshalIndent(course, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0644)
}
