package agent

import (
	"encoding/json"

	"github.com/vovakirdan/blockfall/internal/tetris"
)

// Observation is the fixed-shape view handed to agents. It shares no memory
// with the engine.
type Observation struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Board is row-major, Height*Width long. 0 is empty; other values are
	// the kind tag 1..7, or 1 for every filled cell in binary mode.
	Board      []uint8 `json:"board"`
	ActiveKind uint8   `json:"active_kind"` // 0 when no piece is falling
	NextKind   uint8   `json:"next_kind"`
	Rotation   int     `json:"rotation"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
}

// At returns the encoded value at (x, y), or 0 outside the board.
func (o Observation) At(x, y int) uint8 {
	if x < 0 || x >= o.Width || y < 0 || y >= o.Height {
		return 0
	}
	return o.Board[y*o.Width+x]
}

type observationJSON struct {
	Width      int   `json:"width"`
	Height     int   `json:"height"`
	Board      []int `json:"board"`
	ActiveKind uint8 `json:"active_kind"`
	NextKind   uint8 `json:"next_kind"`
	Rotation   int   `json:"rotation"`
	X          int   `json:"x"`
	Y          int   `json:"y"`
}

// MarshalJSON writes the board as a number array rather than base64.
func (o Observation) MarshalJSON() ([]byte, error) {
	board := make([]int, len(o.Board))
	for i, v := range o.Board {
		board[i] = int(v)
	}
	return json.Marshal(observationJSON{
		Width: o.Width, Height: o.Height, Board: board,
		ActiveKind: o.ActiveKind, NextKind: o.NextKind,
		Rotation: o.Rotation, X: o.X, Y: o.Y,
	})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var w observationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Observation{
		Width: w.Width, Height: w.Height, Board: make([]uint8, len(w.Board)),
		ActiveKind: w.ActiveKind, NextKind: w.NextKind,
		Rotation: w.Rotation, X: w.X, Y: w.Y,
	}
	for i, v := range w.Board {
		o.Board[i] = uint8(v)
	}
	return nil
}

// Info carries episode bookkeeping that is not part of the observation.
type Info struct {
	Score   int  `json:"score"`
	Level   int  `json:"level"`
	Lines   int  `json:"lines"`
	Cleared int  `json:"cleared"` // lines cleared by the last step
	Steps   int  `json:"steps"`
	Pieces  int  `json:"pieces"`
	Lost    bool `json:"lost"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
}

// Encode builds an observation from a snapshot.
func Encode(s tetris.Snapshot, binary, includeActive bool) Observation {
	obs := Observation{
		Width:    s.Width,
		Height:   s.Height,
		Board:    make([]uint8, len(s.Cells)),
		NextKind: uint8(s.Next),
	}
	for i, k := range s.Cells {
		obs.Board[i] = encodeCell(k, binary)
	}
	if s.Active != nil {
		obs.ActiveKind = uint8(s.Active.Kind)
		obs.Rotation = s.Active.Rotation
		obs.X = s.Active.Pos.X
		obs.Y = s.Active.Pos.Y
		if includeActive {
			for _, c := range s.Active.Cells {
				obs.Board[c.Y*s.Width+c.X] = encodeCell(s.Active.Kind, binary)
			}
		}
	}
	return obs
}

func encodeCell(k tetris.Kind, binary bool) uint8 {
	switch {
	case k == tetris.KindNone:
		return 0
	case binary:
		return 1
	default:
		return uint8(k)
	}
}

// Spaces describes the action and observation shapes.
type Spaces struct {
	Actions     int      `json:"actions"`
	ActionNames []string `json:"action_names"`
	Shape       [2]int   `json:"shape"` // height, width
	CellMax     int      `json:"cell_max"`
}
