// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MentalMoodEntryTable represents the 'mental.moodentry' table
type MentalMoodEntryTable struct {
	Table      string
	ID         string
	UserID     string
	Score      string
	Note       string
	RecordedAt string
}

// MentalMoodEntry is the schema definition for mental.moodentry
var MentalMoodEntry = MentalMoodEntryTable{
	Table:      "mental.moodentry",
	ID:         "id",
	UserID:     "userid",
	Score:      "score",
	Note:       "note",
	RecordedAt: "recordedat",
}

// Columns returns all standard column names
func (t MentalMoodEntryTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Score, t.Note, t.RecordedAt}
}
