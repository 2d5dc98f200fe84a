// Package adjudicator holds the win conditions of the built-in mini-games.
package adjudicator

import (
	"strconv"
	"strings"
	"sync"

	"github.com/ghozitech/ledger/internal/model"
)

// Checker reports whether a raw player input solves a level
type Checker func(input string) bool

// Registry maps levels to their checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[model.LevelID]Checker
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{checkers: make(map[model.LevelID]Checker)}
}

// Default returns a Registry with the three built-in mini-games
func Default() *Registry {
	r := New()
	r.Register(1, PasswordCracker)
	r.Register(2, SQLInjection)
	r.Register(3, BugHunter)
	return r
}

// Register sets the checker for a level
func (r *Registry) Register(levelID model.LevelID, c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[levelID] = c
}

// Adjudicate evaluates input for a level and builds the outcome.
// A solved level earns its full points; a miss earns nothing.
func (r *Registry) Adjudicate(level model.Level, input string, elapsedSeconds int) (model.Outcome, error) {
	r.mu.RLock()
	check, ok := r.checkers[level.ID]
	r.mu.RUnlock()
	if !ok {
		return model.Outcome{}, model.ErrLevelNotFound
	}

	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	outcome := model.Outcome{ElapsedSeconds: elapsedSeconds}
	if check(input) {
		outcome.Accepted = true
		outcome.PointsEarned = level.Points
	}
	return outcome, nil
}

// PasswordCracker accepts the guessed admin password
func PasswordCracker(input string) bool {
	return input == "admin123"
}

// SQLInjection accepts a payload carrying a tautology injection
func SQLInjection(input string) bool {
	return strings.Contains(input, "' OR 1=1 --") || strings.Contains(input, "' OR '1'='1")
}

// vulnerableLine is the line of the bug-hunter snippet assigning to innerHTML
const vulnerableLine = 3

// BugHunter accepts the number of the vulnerable line
func BugHunter(input string) bool {
	line, err := strconv.Atoi(strings.TrimSpace(input))
	return err == nil && line == vulnerableLine
}
