// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package report implements the secure report pipeline of the Data & Security agent.

A user proves control of their email or phone, the service aggregates their
diet, fitness and mental-health records into one document, encrypts it under
a key derived for that user, and later releases the plaintext only after a
second proof of control.

Architecture:

  - Aggregator: Concurrent fan-out over the three agent sources.
  - Service: The per-identifier state machine gluing challenges, aggregation and crypto.
  - FlowStore: Expiring flow records updated by compare-and-swap.
  - Handler: chi routes under /api/v1/reports.
*/
package report

import (
	"time"

	"github.com/taibuivan/vitalis/internal/records"
	"github.com/taibuivan/vitalis/pkg/pointer"
)

// # Report Selection

// Type selects which agent sections a report carries.
type Type string

const (
	TypeAll          Type = "all"
	TypeDiet         Type = "diet"
	TypeFitness      Type = "fitness"
	TypeMentalHealth Type = "mental_health"
)

// Types lists every accepted report type.
var Types = []string{string(TypeAll), string(TypeDiet), string(TypeFitness), string(TypeMentalHealth)}

// Valid reports whether t is a known report type.
func (t Type) Valid() bool {
	switch t {
	case TypeAll, TypeDiet, TypeFitness, TypeMentalHealth:
		return true
	}
	return false
}

// Agent names a report section; the values double as JSON keys.
type Agent string

const (
	AgentDiet         Agent = "diet_agent"
	AgentFitness      Agent = "fitness_agent"
	AgentMentalHealth Agent = "mental_health_agent"
)

// Agents returns the sections selected by t, in report order.
func (t Type) Agents() []Agent {
	switch t {
	case TypeDiet:
		return []Agent{AgentDiet}
	case TypeFitness:
		return []Agent{AgentFitness}
	case TypeMentalHealth:
		return []Agent{AgentMentalHealth}
	case TypeAll:
		return []Agent{AgentDiet, AgentFitness, AgentMentalHealth}
	}
	return nil
}

// # Time Window

// MaxPeriodDays bounds the relative "days" form; explicit ranges may span one extra day.
const (
	MaxPeriodDays = 365
	MaxRangeDays  = 366
)

// Window is the inclusive time range a report covers.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// LastDays returns the window [now - days, now].
func LastDays(now time.Time, days int) Window {
	return Window{Start: now.AddDate(0, 0, -days), End: now, Days: days}
}

// DateRange returns the window covering whole UTC days from start through end.
func DateRange(start, end time.Time) Window {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	return Window{
		Start: startDay,
		End:   endDay.Add(24*time.Hour - time.Nanosecond),
		Days:  int(endDay.Sub(startDay).Hours()/24) + 1,
	}
}

// # Agent Sections

// Section is one agent's slice of a report. The interface is sealed: only the
// three section types in this package implement it.
type Section interface {
	Agent() Agent
	sealed()
}

// DietSection carries meals eaten inside the window.
type DietSection struct {
	Meals         []records.Meal `json:"meals"`
	Count         int            `json:"count"`
	TotalCalories int            `json:"total_calories"`
}

// FitnessSection carries workouts performed inside the window.
type FitnessSection struct {
	Workouts            []records.Workout `json:"workouts"`
	Count               int               `json:"count"`
	TotalMinutes        int               `json:"total_minutes"`
	TotalCaloriesBurned int               `json:"total_calories_burned"`
}

// MentalHealthSection carries mood check-ins recorded inside the window.
type MentalHealthSection struct {
	Entries      []records.MoodEntry `json:"entries"`
	Count        int                 `json:"count"`
	AverageScore *float64            `json:"average_score,omitempty"`
}

func (*DietSection) Agent() Agent         { return AgentDiet }
func (*FitnessSection) Agent() Agent      { return AgentFitness }
func (*MentalHealthSection) Agent() Agent { return AgentMentalHealth }

func (*DietSection) sealed()         {}
func (*FitnessSection) sealed()      {}
func (*MentalHealthSection) sealed() {}

// NewDietSection summarizes meals.
func NewDietSection(meals []records.Meal) *DietSection {
	section := &DietSection{Meals: meals, Count: len(meals)}
	for _, meal := range meals {
		section.TotalCalories += meal.Calories
	}
	return section
}

// NewFitnessSection summarizes workouts.
func NewFitnessSection(workouts []records.Workout) *FitnessSection {
	section := &FitnessSection{Workouts: workouts, Count: len(workouts)}
	for _, workout := range workouts {
		section.TotalMinutes += workout.DurationMinutes
		section.TotalCaloriesBurned += workout.CaloriesBurned
	}
	return section
}

// NewMentalHealthSection summarizes mood entries. AverageScore is nil for an empty window.
func NewMentalHealthSection(entries []records.MoodEntry) *MentalHealthSection {
	section := &MentalHealthSection{Entries: entries, Count: len(entries)}
	if len(entries) == 0 {
		return section
	}

	total := 0
	for _, entry := range entries {
		total += entry.Score
	}
	section.AverageScore = pointer.To(float64(total) / float64(len(entries)))
	return section
}

// # Aggregated Report

// Summary holds cross-agent totals. Fields of unselected or unavailable agents stay nil.
type Summary struct {
	MealCount      *int     `json:"meal_count,omitempty"`
	TotalCalories  *int     `json:"total_calories,omitempty"`
	WorkoutCount   *int     `json:"workout_count,omitempty"`
	WorkoutMinutes *int     `json:"workout_minutes,omitempty"`
	MoodEntryCount *int     `json:"mood_entry_count,omitempty"`
	AverageMood    *float64 `json:"average_mood,omitempty"`
}

// AggregatedReport is the plaintext document that gets encrypted.
type AggregatedReport struct {
	UserID      string    `json:"user_id"`
	ReportType  Type      `json:"report_type"`
	GeneratedAt time.Time `json:"generated_at"`
	PeriodDays  int       `json:"period_days"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`

	Diet         *DietSection         `json:"diet_agent,omitempty"`
	Fitness      *FitnessSection      `json:"fitness_agent,omitempty"`
	MentalHealth *MentalHealthSection `json:"mental_health_agent,omitempty"`

	Summary Summary `json:"summary"`

	UnavailableSections []Agent `json:"unavailable_sections,omitempty"`
}

// Attach places section in its slot and folds its totals into the summary.
func (report *AggregatedReport) Attach(section Section) {
	switch s := section.(type) {
	case *DietSection:
		report.Diet = s
		report.Summary.MealCount = pointer.To(s.Count)
		report.Summary.TotalCalories = pointer.To(s.TotalCalories)
	case *FitnessSection:
		report.Fitness = s
		report.Summary.WorkoutCount = pointer.To(s.Count)
		report.Summary.WorkoutMinutes = pointer.To(s.TotalMinutes)
	case *MentalHealthSection:
		report.MentalHealth = s
		report.Summary.MoodEntryCount = pointer.To(s.Count)
		report.Summary.AverageMood = s.AverageScore
	}
}

// Sections returns the populated sections in report order.
func (report *AggregatedReport) Sections() []Section {
	var sections []Section
	if report.Diet != nil {
		sections = append(sections, report.Diet)
	}
	if report.Fitness != nil {
		sections = append(sections, report.Fitness)
	}
	if report.MentalHealth != nil {
		sections = append(sections, report.MentalHealth)
	}
	return sections
}

// # Encrypted Artifact

// EncryptedReport is what GenerateReport hands back. The server keeps no copy
// unless the archive is enabled, and even then only the ciphertext.
type EncryptedReport struct {
	ReportID            string    `json:"report_id"`
	Ciphertext          string    `json:"ciphertext"`
	DecryptionToken     string    `json:"decryption_token"`
	TokenExpiresAt      time.Time `json:"token_expires_at"`
	UserID              string    `json:"user_id"`
	ReportType          Type      `json:"report_type"`
	GeneratedAt         time.Time `json:"generated_at"`
	PeriodDays          int       `json:"period_days"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	UnavailableSections []Agent   `json:"unavailable_sections,omitempty"`
	ArchiveURL          string    `json:"archive_url,omitempty"`
}
