// Package evaluation scores projects against the fixed grading rubric.
package evaluation

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Rubric criteria keys
const (
	CodeQuality   = "codeQuality"
	Functionality = "functionality"
	UserInterface = "userInterface"
	Documentation = "documentation"
	Innovation    = "innovation"

	MaxTotalScore = 100
)

// Criterion is one fixed-weight component of the rubric.
type Criterion struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type gradeBand struct {
	min   int
	grade string
}

var (
	Rubric = []Criterion{
		{Key: CodeQuality, Name: "Code Quality", Weight: 25},
		{Key: Functionality, Name: "Functionality", Weight: 30},
		{Key: UserInterface, Name: "User Interface", Weight: 20},
		{Key: Documentation, Name: "Documentation", Weight: 15},
		{Key: Innovation, Name: "Innovation", Weight: 10},
	}

	// inclusive lower bounds, highest first
	gradeBands = []gradeBand{
		{90, "A+"},
		{80, "A"},
		{70, "B+"},
		{60, "B"},
		{50, "C+"},
		{40, "C"},
	}
	failGrade = "F"

	criteriaByKey = func() map[string]Criterion {
		m := make(map[string]Criterion, len(Rubric))
		for _, c := range Rubric {
			m[c.Key] = c
		}
		return m
	}()
)

// UnknownCriteriaError lists criteria keys that are not part of the rubric.
type UnknownCriteriaError struct {
	Keys []string
}

func (err UnknownCriteriaError) Error() string {
	return fmt.Sprintf("unknown rubric criteria: %s", strings.Join(err.Keys, ", "))
}

// Result is the outcome of scoring a set of criteria scores.
type Result struct {
	CriteriaScores map[string]float64
	TotalScore     int
	Grade          string
}

// Clamp bounds score to [0, weight] of the criterion. NaN counts as 0.
func (c Criterion) Clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > c.Weight {
		return c.Weight
	}
	return score
}

// Score clamps every criterion score, sums them and suggests a grade.
// Missing criteria count as 0.
func Score(scores map[string]float64) (Result, error) {
	var unknown []string
	for key := range scores {
		if _, ok := criteriaByKey[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Result{}, UnknownCriteriaError{Keys: unknown}
	}

	clamped := make(map[string]float64, len(Rubric))
	var sum float64
	for _, c := range Rubric {
		s := c.Clamp(scores[c.Key])
		clamped[c.Key] = s
		sum += s
	}
	total := TotalScore(sum)
	return Result{CriteriaScores: clamped, TotalScore: total, Grade: Grade(total)}, nil
}

// TotalScore rounds sum half away from zero and bounds it to [0, 100].
func TotalScore(sum float64) int {
	total := int(math.Round(sum))
	switch {
	case total < 0:
		return 0
	case total > MaxTotalScore:
		return MaxTotalScore
	}
	return total
}

// Grade maps a total score to its letter grade.
func Grade(total int) string {
	for _, b := range gradeBands {
		if total >= b.min {
			return b.grade
		}
	}
	return failGrade
}
