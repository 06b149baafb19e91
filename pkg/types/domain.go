package types

// Player identifies the side to move. Positive is black, negative is white,
// matching the sign convention of SignMap.
type Player int8

const (
	PlayerBlack Player = 1
	PlayerWhite Player = -1
)

// SignMap is a board position: 1 for a black stone, -1 for white, 0 empty.
// Indexed [row][col]; len(SignMap) is the board edge length.
type SignMap [][]int8

// AnalysisOptions carries per-position analysis parameters.
type AnalysisOptions struct {
	Komi float32 `json:"komi"`
	// NextPlayer forces the side to move; zero lets the featurizer infer it
	// from the position history.
	NextPlayer Player `json:"nextPlayer,omitempty"`
	// History holds preceding positions, most recent last.
	History []SignMap `json:"history,omitempty"`
}

// MoveEval is one move candidate from the policy head.
type MoveEval struct {
	// Row and Col locate the move; Row == -1 denotes a pass.
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Weight float64 `json:"weight"`
}

// AnalysisResult is the structured outcome for one analyzed position,
// produced by the host application's result assembler.
type AnalysisResult struct {
	WinRate   float64    `json:"winRate"`
	ScoreLead float64    `json:"scoreLead"`
	Moves     []MoveEval `json:"moves,omitempty"`
	// Ownership holds per-point territory estimates, row-major, when the
	// model emits an ownership head.
	Ownership []float32 `json:"ownership,omitempty"`
}
