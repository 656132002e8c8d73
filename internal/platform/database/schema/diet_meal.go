// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// DietMealTable represents the 'diet.meal' table
type DietMealTable struct {
	Table        string
	ID           string
	UserID       string
	Name         string
	Calories     string
	ProteinGrams string
	CarbsGrams   string
	FatGrams     string
	EatenAt      string
}

// DietMeal is the schema definition for diet.meal
var DietMeal = DietMealTable{
	Table:        "diet.meal",
	ID:           "id",
	UserID:       "userid",
	Name:         "name",
	Calories:     "calories",
	ProteinGrams: "proteingrams",
	CarbsGrams:   "carbsgrams",
	FatGrams:     "fatgrams",
	EatenAt:      "eatenat",
}

// Columns returns all standard column names
func (t DietMealTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Name, t.Calories, t.ProteinGrams, t.CarbsGrams, t.FatGrams, t.EatenAt}
}
