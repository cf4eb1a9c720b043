// Package recipes registers the built-in preparation recipes.
//
// Import it for its side effect:
//
//	import _ "github.com/JonMunkholm/paraprep/internal/prepare/recipes"
package recipes

import (
	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/prepare"
)

// Paralympics is the name of the Paralympic Games editions recipe.
const Paralympics = "paralympics"

// ParalympicsPlan returns the fixed plan for the Paralympic Games editions table.
func ParalympicsPlan() prepare.Plan {
	return prepare.Plan{
		DropColumns: []string{"URL", "disabilities_included", "highlights"},
		DropRows:    []int{0, 17, 31},
		Category: prepare.CategoryRule{
			Column:     "type",
			Rewrites:   map[string]string{"Summer": "summer"},
			Vocabulary: []string{"summer", "winter"},
		},
		IntColumns:  []string{"countries", "events", "participants_m", "participants_f", "participants"},
		DateColumns: []string{"start", "end"},
		DateLayout:  "2/1/2006",
		Duration: prepare.DurationRule{
			Name:  "duration",
			Start: "start",
			End:   "end",
		},
		Join: prepare.JoinRule{
			Column: "country",
			Renames: map[string]string{
				"UK":     "Great Britain",
				"USA":    "United States of America",
				"Korea":  "Republic of Korea",
				"Russia": "Russian Federation",
				"China":  "People's Republic of China",
			},
			ReferenceKey:   "Name",
			ReferenceValue: "Code",
			As:             "country_code",
		},
	}
}

func init() {
	prepare.Register(prepare.Recipe{
		Name:          Paralympics,
		Description:   "Paralympic Games editions joined with NPC country codes",
		RawFile:       "paralympics_raw.csv",
		ReferenceFile: "npc_codes.csv",
		OutputFile:    "paralympics_prepared.csv",
		Reference: core.ReadOptions{
			Encoding:      "utf-8",
			IgnoreInvalid: true,
			Columns:       []string{"Code", "Name"},
		},
		Plan: ParalympicsPlan(),
	})
}
