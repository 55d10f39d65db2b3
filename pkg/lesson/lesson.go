// Package lesson ships the built-in catalog of practice scenarios shown by
// the console menu. Lessons are starting points; the tutor improvises the
// rest of the exercise from the kickoff prompt.
package lesson

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

//go:embed lessons.yaml
var lessonsYAML []byte

// Lesson is one practice scenario from the catalog.
type Lesson struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	// Prompt is sent to the tutor verbatim when the learner picks the lesson.
	Prompt string `yaml:"prompt"`
}

// Catalog returns the built-in lessons in menu order.
func Catalog() ([]Lesson, error) {
	var doc struct {
		Lessons []Lesson `yaml:"lessons"`
	}
	if err := yaml.Unmarshal(lessonsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parsing lesson catalog: %w", err)
	}
	return doc.Lessons, nil
}
