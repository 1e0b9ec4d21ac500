package menu

import (
	"time"

	"diningstatus/internal/model"
)

// ParseSpecial splits "<name> (<type>)" into a DailySpecial. Type is empty
// when the label has no "(".
func ParseSpecial(label string) model.DailySpecial {
	name, rest, ok := splitLabel(label)
	if !ok {
		return model.DailySpecial{Name: name}
	}
	return model.DailySpecial{Name: name, Type: rest}
}

// Result holds the parsed menu entries of one location.
type Result struct {
	Chefs    []model.ChefAppearance
	Specials []model.DailySpecial
}

// Parse routes a location's menu entries by category.
//
// The first malformed visiting chef label stops parsing of every entry after
// it, matching how the feed has always been consumed. What was parsed up to
// that point is returned together with the error.
func Parse(entries []model.Menu, date, now time.Time) (Result, error) {
	var res Result
	for _, entry := range entries {
		switch entry.Category {
		case model.CategoryVisitingChef:
			chef, err := ParseChef(entry, date, now)
			if err != nil {
				return res, err
			}
			res.Chefs = append(res.Chefs, chef)
		case model.CategoryDailySpecials:
			res.Specials = append(res.Specials, ParseSpecial(entry.Name))
		}
	}
	return res, nil
}

// RecomputeChefs returns a copy of chefs with every status reclassified at
// now. Windows are reused as parsed.
func RecomputeChefs(chefs []model.ChefAppearance, now time.Time) []model.ChefAppearance {
	if chefs == nil {
		return nil
	}
	out := make([]model.ChefAppearance, len(chefs))
	for i, c := range chefs {
		c.Status = ChefStatusFor(now, model.Interval{Open: c.Open, Close: c.Close})
		out[i] = c
	}
	return out
}
