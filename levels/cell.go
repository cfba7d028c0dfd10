package levels

import "fmt"

// CellType is the tile token stored in a level matrix.
type CellType uint8

const (
	Empty       CellType = 0
	Paddle      CellType = 1
	Ball        CellType = 2
	LegacyBrick CellType = 3

	// MultiHit1..MultiHit4 need that many more hits; the last hit on
	// MultiHit1 turns it into a SimpleBrick.
	MultiHit1 CellType = 10
	MultiHit2 CellType = 11
	MultiHit3 CellType = 12
	MultiHit4 CellType = 13

	SimpleBrick       CellType = 20
	ExtraLife         CellType = 41
	PaddleDestroyable CellType = 57
	Indestructible    CellType = 90
)

var cellNames = map[CellType]string{
	Empty:             "empty",
	Paddle:            "paddle",
	Ball:              "ball",
	LegacyBrick:       "legacy_brick",
	MultiHit1:         "multi_hit_1",
	MultiHit2:         "multi_hit_2",
	MultiHit3:         "multi_hit_3",
	MultiHit4:         "multi_hit_4",
	SimpleBrick:       "simple_brick",
	ExtraLife:         "extra_life",
	PaddleDestroyable: "paddle_destroyable",
	Indestructible:    "indestructible",
}

func (c CellType) Valid() bool {
	_, ok := cellNames[c]
	return ok
}

func (c CellType) String() string {
	if name, ok := cellNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cell(%d)", uint8(c))
}

func (c CellType) IsMultiHit() bool {
	return c >= MultiHit1 && c <= MultiHit4
}

// IsBrick reports whether the cell spawns a brick of any kind.
func (c CellType) IsBrick() bool {
	switch c {
	case LegacyBrick, SimpleBrick, ExtraLife, PaddleDestroyable, Indestructible:
		return true
	}
	return c.IsMultiHit()
}

