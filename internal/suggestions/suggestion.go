// Package suggestions fetches workout suggestions from the ExerciseDB catalog
// and falls back to a built-in list when the catalog is unavailable.
package suggestions

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Suggestion is an immutable exercise description.
type Suggestion struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	FullDescription  string   `json:"full_description"`
	ImageURL         string   `json:"image_url"`
	BodyPart         string   `json:"body_part"`
	Equipment        string   `json:"equipment"`
	Target           string   `json:"target"`
	SecondaryMuscles []string `json:"secondary_muscles"`
	Instructions     []string `json:"instructions"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
}

// exerciseDTO mirrors one element of the ExerciseDB /exercises response.
type exerciseDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	BodyPart         string   `json:"bodyPart"`
	Equipment        string   `json:"equipment"`
	Target           string   `json:"target"`
	GifURL           string   `json:"gifUrl"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	Instructions     []string `json:"instructions"`
	Description      *string  `json:"description"`
	Difficulty       *string  `json:"difficulty"`
	Category         *string  `json:"category"`
}

func (d exerciseDTO) toSuggestion() Suggestion {
	parts := []string{capitalizeWords(d.Target), capitalizeWords(d.Equipment)}
	if d.Difficulty != nil {
		parts = append(parts, capitalizeWords(*d.Difficulty))
	}

	s := Suggestion{
		ID:               d.ID,
		Title:            capitalizeWords(d.Name),
		ShortDescription: strings.Join(parts, " • "),
		ImageURL:         d.GifURL,
		BodyPart:         d.BodyPart,
		Equipment:        d.Equipment,
		Target:           d.Target,
		SecondaryMuscles: nonNil(d.SecondaryMuscles),
		Instructions:     nonNil(d.Instructions),
	}
	if d.Description != nil {
		s.FullDescription = *d.Description
	}
	if d.Difficulty != nil {
		s.Difficulty = *d.Difficulty
	}
	if d.Category != nil {
		s.Category = *d.Category
	}
	return s
}

// capitalizeWords upper-cases the first rune of every space-separated word.
func capitalizeWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError || !unicode.IsLower(r) {
			continue
		}
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
