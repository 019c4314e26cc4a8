// Package reference holds static catalogs served to clients, currently the
// FDI tooth numbering scheme (ISO 3950).
package reference

import "fmt"

// Tooth is one permanent tooth in FDI two-digit notation. The first digit is
// the quadrant (1 upper right, 2 upper left, 3 lower left, 4 lower right),
// the second is the position counted from the midline.
type Tooth struct {
	Code     string `json:"code"`
	Quadrant int    `json:"quadrant"`
	Position int    `json:"position"`
	Name     string `json:"name"`
}

var quadrantNames = [...]string{
	1: "upper right",
	2: "upper left",
	3: "lower left",
	4: "lower right",
}

var positionNames = [...]string{
	1: "central incisor",
	2: "lateral incisor",
	3: "canine",
	4: "first premolar",
	5: "second premolar",
	6: "first molar",
	7: "second molar",
	8: "third molar",
}

var (
	teeth  []Tooth
	byCode map[string]Tooth
)

func init() {
	teeth = make([]Tooth, 0, 32)
	byCode = make(map[string]Tooth, 32)
	for quadrant := 1; quadrant <= 4; quadrant++ {
		for position := 1; position <= 8; position++ {
			tooth := Tooth{
				Code:     fmt.Sprintf("%d%d", quadrant, position),
				Quadrant: quadrant,
				Position: position,
				Name:     fmt.Sprintf("%s %s", quadrantNames[quadrant], positionNames[position]),
			}
			teeth = append(teeth, tooth)
			byCode[tooth.Code] = tooth
		}
	}
}

// Teeth returns the full FDI catalog in quadrant/position order.
func Teeth() []Tooth {
	out := make([]Tooth, len(teeth))
	copy(out, teeth)
	return out
}

// LookupTooth returns the tooth for an FDI code.
func LookupTooth(code string) (Tooth, bool) {
	tooth, ok := byCode[code]
	return tooth, ok
}

// ValidToothCode reports whether code is a known FDI code.
func ValidToothCode(code string) bool {
	_, ok := byCode[code]
	return ok
}
