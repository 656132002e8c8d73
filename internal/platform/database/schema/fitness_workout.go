// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// FitnessWorkoutTable represents the 'fitness.workout' table
type FitnessWorkoutTable struct {
	Table           string
	ID              string
	UserID          string
	Activity        string
	DurationMinutes string
	CaloriesBurned  string
	PerformedAt     string
}

// FitnessWorkout is the schema definition for fitness.workout
var FitnessWorkout = FitnessWorkoutTable{
	Table:           "fitness.workout",
	ID:              "id",
	UserID:          "userid",
	Activity:        "activity",
	DurationMinutes: "durationminutes",
	CaloriesBurned:  "caloriesburned",
	PerformedAt:     "performedat",
}

// Columns returns all standard column names
func (t FitnessWorkoutTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Activity, t.DurationMinutes, t.CaloriesBurned, t.PerformedAt}
}
