package utils

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

// creatureNames lists the three evolution names of each category mascot.
var creatureNames = map[dto.Category][3]string{
	dto.CategoryFood:     {"Nibbi", "Nibbo", "Nibblaze"},
	dto.CategoryShopping: {"Shoppy", "Shoppero", "Shopstorm"},
	dto.CategoryFinance:  {"Penny", "Coino", "Goldflare"},
}

// CreatureFor returns the mascot of a category, or nil for general bills.
func CreatureFor(cat dto.Category) *dto.Creature {
	names, ok := creatureNames[cat]
	if !ok {
		return nil
	}

	id := string(cat)
	levels := make([]string, 0, len(names))
	for i, n := range names {
		levels = append(levels, fmt.Sprintf("%s-xp%d-%s.png", id, i+1, n))
	}

	return &dto.Creature{
		ID:     id,
		Name:   CategoryLabel(cat),
		Levels: levels,
		Badge:  fmt.Sprintf("badges-512-%s.png", id),
	}
}

// CategoryLabel is the display form of a category, e.g. "Food". A Caser
// keeps state, so one is built per call.
func CategoryLabel(cat dto.Category) string {
	if cat == "" {
		cat = dto.CategoryGeneral
	}
	return cases.Title(language.English).String(string(cat))
}
