// Package tasks holds presentation helpers shared by the task pages and CLI.
package tasks

import (
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/axis/internal/backend"
)

const (
	MaxStars      = 5
	DefaultStars  = 2
	HighlightSize = 3
)

var difficultyStars = []struct {
	words []string
	stars int
}{
	{[]string{"新手"}, 1},
	{[]string{"入门"}, 2},
	{[]string{"中等"}, 3},
	{[]string{"进阶", "高级"}, 4},
	{[]string{"专家", "挑战"}, 5},
}

// Stars maps a difficulty label to a 1-5 rating. The first matching keyword
// wins; unknown labels rate 2.
func Stars(label string) int {
	l := strings.ToLower(label)
	for _, d := range difficultyStars {
		for _, w := range d.words {
			if strings.Contains(l, w) {
				return d.stars
			}
		}
	}
	return DefaultStars
}

func StarString(n int) string {
	n = max(0, min(MaxStars, n))
	return strings.Repeat("★", n) + strings.Repeat("☆", MaxStars-n)
}

// RoundRate rounds a success rate to a whole percent, halves away from zero.
func RoundRate(rate float64) int {
	return int(math.Round(rate))
}

func Highlight(list []backend.Task, n int) []backend.Task {
	if n > len(list) {
		n = len(list)
	}
	return list[:n]
}

// PrimaryID is the id of the first highlighted task, or 0.
func PrimaryID(list []backend.Task) int {
	if len(list) == 0 {
		return 0
	}
	return list[0].ID
}

// ParseID accepts a positive decimal task id.
func ParseID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
