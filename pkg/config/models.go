package config

import "fmt"

// Model describes one ensemble forecast source: how it is labeled and
// how many member columns to expect when pivoting its rows.
type Model struct {
	Key         string
	Label       string
	Description string
	Members     int
	HorizonDays int
}

// Models is the closed registry of selectable ensemble models.
var Models = map[string]Model{
	"eceps": {
		Key:         "eceps",
		Label:       "ECMWF ENS (eceps)",
		Description: "ECMWF Ensemble - 50 members, 15-day horizon",
		Members:     50,
		HorizonDays: 15,
	},
	"ec46": {
		Key:         "ec46",
		Label:       "ECMWF Extended (ec46)",
		Description: "ECMWF Extended Range - 99 members, 46-day horizon",
		Members:     99,
		HorizonDays: 46,
	},
	"gfsens": {
		Key:         "gfsens",
		Label:       "GFS Ensemble (gfsens)",
		Description: "NCEP GFS Ensemble - 30 members, 16-day horizon",
		Members:     30,
		HorizonDays: 16,
	},
	"ecaifsens": {
		Key:         "ecaifsens",
		Label:       "ECMWF AIFS ENS (ecaifsens)",
		Description: "ECMWF AI-based Ensemble - 50 members, 15-day horizon",
		Members:     50,
		HorizonDays: 15,
	},
}

// PercentileMembers are the pre-computed percentile labels stored
// alongside the numeric ensemble members.
var PercentileMembers = []string{"0%", "10%", "25%", "40%", "60%", "75%", "90%", "100%"}

// SpecialMembers are the non-percentile summary members.
var SpecialMembers = []string{"control", "mean", "median"}

// ModelByKey looks up a model in the registry.
func ModelByKey(key string) (Model, error) {
	m, ok := Models[key]
	if !ok {
		return Model{}, fmt.Errorf("unknown model %q", key)
	}
	return m, nil
}
