package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultRating is assigned to a participant the first time it appears.
const DefaultRating = 1500.0

// MaxAttempts is the number of guesses a puzzle allows.
const MaxAttempts = 6

// Attempts is the number of guesses a participant needed.
type Attempts int

// Failed marks a puzzle that was not solved within MaxAttempts.
const Failed Attempts = 0

// ParseAttempts accepts "1".."6" and "X" (either case).
func ParseAttempts(s string) (Attempts, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "x") {
		return Failed, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxAttempts {
		return 0, fmt.Errorf("invalid attempts %q", s)
	}
	return Attempts(n), nil
}

// IsFailed reports whether a is the failure sentinel.
func (a Attempts) IsFailed() bool { return a == Failed }

// Valid reports whether a is Failed or a success count in 1..MaxAttempts.
func (a Attempts) Valid() bool { return a >= Failed && a <= MaxAttempts }

func (a Attempts) String() string {
	if a == Failed {
		return "X"
	}
	return strconv.Itoa(int(a))
}

// PointsTable maps an outcome to leaderboard points.
type PointsTable map[Attempts]int

// DefaultPoints is the stock scoring table.
var DefaultPoints = PointsTable{
	1:      25,
	2:      18,
	3:      15,
	4:      12,
	5:      10,
	6:      5,
	Failed: -5,
}

// Points returns the points for a, and false when the table has no entry.
func (t PointsTable) Points(a Attempts) (int, bool) {
	p, ok := t[a]
	return p, ok
}

// Outcome is one participant's result for a puzzle.
type Outcome struct {
	Participant string
	Attempts    Attempts
}

// Prior is the persisted state of a participant before a puzzle is applied.
// Games excludes the puzzle being processed.
type Prior struct {
	Rating float64
	Games  int
}

// PlayRow is the persisted unit for one (puzzle, participant).
type PlayRow struct {
	PuzzleID    string
	Participant string
	Attempts    Attempts
	Points      int
	Rating      float64
}

// PuzzleCommit carries every row of one puzzle plus the snapshot the rows were
// computed from. Stores must apply it all-or-nothing and reject it when Before
// no longer matches committed state.
type PuzzleCommit struct {
	PuzzleID string
	Rows     []PlayRow
	Before   map[string]Prior
}

// Stats is one leaderboard line. AvgAttempts is nil when the participant has
// never solved a puzzle.
type Stats struct {
	Participant string
	Rating      float64
	Games       int
	Wins        int
	AvgAttempts *float64
	TotalPoints int
}
