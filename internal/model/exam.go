package model

import (
	"fmt"
)

// DefaultDurationSeconds is used when the test payload carries no section durations.
const DefaultDurationSeconds = 1800

// TestPayload is the body of GET /api/test/{testId}.
type TestPayload struct {
	Name     string           `json:"name"`
	Sections []SectionPayload `json:"Sections"`
}

// SectionPayload is one section of a test. Duration is in minutes.
type SectionPayload struct {
	Name            string                  `json:"name"`
	Duration        int                     `json:"duration"`
	MCQs            []MCQPayload            `json:"MCQs"`
	CodingQuestions []CodingQuestionPayload `json:"codingQuestions"`
}

// MCQPayload is the wire shape of a multiple-choice question.
type MCQPayload struct {
	ID            string `json:"_id"`
	Question      string `json:"question"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	OptionAImage  string `json:"optionAImage,omitempty"`
	OptionBImage  string `json:"optionBImage,omitempty"`
	OptionCImage  string `json:"optionCImage,omitempty"`
	OptionDImage  string `json:"optionDImage,omitempty"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
	Marks         int    `json:"marks"`
}

// CodingQuestionPayload is the wire shape of a coding problem.
type CodingQuestionPayload struct {
	ID               string     `json:"_id"`
	Title            string     `json:"title"`
	ProblemStatement string     `json:"problemStatement"`
	Constraints      string     `json:"constraints,omitempty"`
	SampleTestCases  []TestCase `json:"sampleTestCases"`
	AllowedLanguages []string   `json:"allowedLanguages"`
	Marks            int        `json:"marks"`
}

// Exam is the immutable, loaded form of a test.
type Exam struct {
	TestID               string
	Name                 string
	Questions            []Question
	TotalDurationSeconds int
}

// BuildExam flattens the sections of a payload into an ordered question list.
// MCQs precede coding questions within each section.
func BuildExam(testID string, p *TestPayload) (*Exam, error) {
	if p == nil {
		return nil, fmt.Errorf("empty test payload")
	}

	exam := &Exam{TestID: testID, Name: p.Name}
	seen := make(map[string]struct{})
	minutes := 0

	for si, sec := range p.Sections {
		minutes += sec.Duration

		for i, m := range sec.MCQs {
			id := m.ID
			if id == "" {
				id = fmt.Sprintf("s%d-mcq-%d", si, i)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("duplicate question id %q", id)
			}
			seen[id] = struct{}{}

			exam.Questions = append(exam.Questions, &MCQQuestion{
				ID:      id,
				Section: sec.Name,
				Prompt:  m.Question,
				Options: [4]Option{
					{Letter: "A", Text: m.OptionA, Image: m.OptionAImage},
					{Letter: "B", Text: m.OptionB, Image: m.OptionBImage},
					{Letter: "C", Text: m.OptionC, Image: m.OptionCImage},
					{Letter: "D", Text: m.OptionD, Image: m.OptionDImage},
				},
				CorrectOption: m.CorrectAnswer,
				Explanation:   m.Explanation,
				Marks:         m.Marks,
			})
		}

		for i, c := range sec.CodingQuestions {
			id := c.ID
			if id == "" {
				id = fmt.Sprintf("s%d-code-%d", si, i)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("duplicate question id %q", id)
			}
			seen[id] = struct{}{}

			exam.Questions = append(exam.Questions, &CodingQuestion{
				ID:               id,
				Section:          sec.Name,
				Title:            c.Title,
				ProblemStatement: c.ProblemStatement,
				Constraints:      c.Constraints,
				SampleTestCases:  c.SampleTestCases,
				AllowedLanguages: c.AllowedLanguages,
				Marks:            c.Marks,
			})
		}
	}

	exam.TotalDurationSeconds = minutes * 60
	if exam.TotalDurationSeconds <= 0 {
		exam.TotalDurationSeconds = DefaultDurationSeconds
	}

	return exam, nil
}

// Question returns the question with the given id and its index.
func (e *Exam) Question(id string) (Question, int, bool) {
	for i, q := range e.Questions {
		if q.QuestionID() == id {
			return q, i, true
		}
	}
	return nil, -1, false
}
