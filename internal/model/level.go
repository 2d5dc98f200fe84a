package model

import "time"

// LevelID identifies a puzzle level
type LevelID int

// DefaultTimeLimit is how long a player has to solve a level
const DefaultTimeLimit = 180 * time.Second

// Level describes a playable puzzle level
type Level struct {
	ID          LevelID
	Name        string
	Description string
	Points      int
	TimeLimit   time.Duration
}

var levels = []Level{
	{ID: 1, Name: "Password Cracker", Description: "Guess the admin password by brute force", Points: 100, TimeLimit: DefaultTimeLimit},
	{ID: 2, Name: "SQL Injection", Description: "Bypass the login form with an injection payload", Points: 150, TimeLimit: DefaultTimeLimit},
	{ID: 3, Name: "Bug Hunter", Description: "Find the vulnerable line in the code", Points: 200, TimeLimit: DefaultTimeLimit},
}

// Levels returns the level catalog in play order
func Levels() []Level {
	result := make([]Level, len(levels))
	copy(result, levels)
	return result
}

// GetLevel looks up a level by ID
func GetLevel(id LevelID) (Level, error) {
	for _, l := range levels {
		if l.ID == id {
			return l, nil
		}
	}
	return Level{}, ErrLevelNotFound
}
