package model

// Point is a single 2D coordinate on the board.
type Point [2]float32

// Line is one drawn stroke: an ordered point sequence plus style.
// JSON keys are kept short to match the client wire format.
type Line struct {
	Points []Point `json:"p"`
	Color  string  `json:"c"`
	Width  uint32  `json:"w"`
}

// CursorPosition is the last known cursor of one collaborator.
type CursorPosition struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	UserID string  `json:"userId"`
	Color  string  `json:"color"`
}

// WhiteboardData is the whole document. Updates replace it entirely;
// strokes carry no identity and there is no version number.
type WhiteboardData struct {
	Lines          []Line          `json:"lines"`
	CursorPosition *CursorPosition `json:"cursorPosition"`
}

// NewEmptyWhiteboard returns a blank document. A project that has never
// been drawn on is a legitimate state, not an error.
func NewEmptyWhiteboard() WhiteboardData {
	return WhiteboardData{Lines: []Line{}}
}
