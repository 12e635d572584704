package track

import (
	"sort"

	"github.com/zeu5/edgeracer/geometry"
)

func pos(x, y float64) geometry.Position {
	return geometry.Position{X: x, Y: y}
}

func wall(x0, y0, x1, y1 float64) Wall {
	return Wall{Start: pos(x0, y0), End: pos(x1, y1)}
}

// course1 is a corridor along the top of a 1315x901 canvas that bends
// down the right hand side to the finish
func course1() *Course {
	walls := append(BorderWalls(1315, 901),
		wall(46, 72, 1013, 79),
		wall(1014, 79, 1095, 79),
		wall(1095, 79, 1171, 96),
		wall(1172, 97, 1187, 142),
		wall(1184, 130, 1208, 212),
		wall(1208, 214, 1213, 804),
		wall(49, 167, 171, 166),
		wall(171, 167, 922, 176),
		wall(922, 176, 1007, 180),
		wall(1010, 181, 1056, 204),
		wall(1059, 206, 1074, 243),
		wall(1075, 245, 1083, 297),
		wall(1082, 302, 1084, 799),
		wall(45, 67, 45, 160),
		wall(1085, 802, 1209, 810),
	)
	return &Course{
		Name:   "course1",
		Walls:  walls,
		Start:  pos(102, 113),
		Finish: pos(1138, 745),
	}
}

// straight has only the canvas border and a clear path along +X
func straight() *Course {
	return &Course{
		Name:   "straight",
		Walls:  BorderWalls(800, 600),
		Start:  pos(50, 300),
		Finish: pos(450, 300),
	}
}

var presets = map[string]func() *Course{
	"course1":  course1,
	"straight": straight,
}

// Preset returns a fresh copy of the named course
func Preset(name string) (*Course, bool) {
	ctor, ok := presets[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
