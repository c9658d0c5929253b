package model

// QuestionKind tags the variant of a Question.
type QuestionKind string

const (
	QuestionKindMCQ    QuestionKind = "MCQ"
	QuestionKindCoding QuestionKind = "CODING"
)

// OptionLetters lists the option letters of an MCQ in display order.
var OptionLetters = [4]string{"A", "B", "C", "D"}

// Question is one of MCQQuestion or CodingQuestion. Callers switch on Kind().
type Question interface {
	QuestionID() string
	Kind() QuestionKind
	SectionName() string
	MarksValue() int
	isQuestion()
}

// Option is a single MCQ choice. Image is optional.
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
}

// MCQQuestion is a four-option multiple-choice question.
type MCQQuestion struct {
	ID            string    `json:"id"`
	Section       string    `json:"section"`
	Prompt        string    `json:"prompt"`
	Options       [4]Option `json:"options"`
	CorrectOption string    `json:"-"`
	Explanation   string    `json:"-"`
	Marks         int       `json:"marks"`
}

func (q *MCQQuestion) QuestionID() string  { return q.ID }
func (q *MCQQuestion) Kind() QuestionKind  { return QuestionKindMCQ }
func (q *MCQQuestion) SectionName() string { return q.Section }
func (q *MCQQuestion) MarksValue() int     { return q.Marks }
func (q *MCQQuestion) isQuestion()         {}

// TestCase is a sample input/output pair shown with a coding problem.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// CodingQuestion is a programming problem scored by the code-execution collaborator.
type CodingQuestion struct {
	ID               string     `json:"id"`
	Section          string     `json:"section"`
	Title            string     `json:"title"`
	ProblemStatement string     `json:"problem_statement"`
	Constraints      string     `json:"constraints,omitempty"`
	SampleTestCases  []TestCase `json:"sample_test_cases"`
	AllowedLanguages []string   `json:"allowed_languages"`
	Marks            int        `json:"marks"`
}

func (q *CodingQuestion) QuestionID() string  { return q.ID }
func (q *CodingQuestion) Kind() QuestionKind  { return QuestionKindCoding }
func (q *CodingQuestion) SectionName() string { return q.Section }
func (q *CodingQuestion) MarksValue() int     { return q.Marks }
func (q *CodingQuestion) isQuestion()         {}

// Answer is a learner's response. MCQ answers set Option; coding answers set Code and Language.
// Values are stored as given; membership in the option set is not checked.
type Answer struct {
	Option   string `json:"option,omitempty"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}
