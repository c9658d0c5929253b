package proctor

import (
	"github.com/stemsi/exstem-proctor/internal/model"
)

// CompileResult scores a session. MCQs are correct when the stored option equals
// the key; unanswered questions are wrong. Coding questions are not re-scored:
// codingScores carries what the execution collaborator returned at submit time
// and is reported separately from the MCQ aggregate.
func CompileResult(questions []model.Question, answers map[string]model.Answer, codingScores map[string]float64) model.SubmissionResult {
	res := model.SubmissionResult{
		Breakdown: make([]model.QuestionOutcome, 0, len(questions)),
	}

	for _, q := range questions {
		ans, answered := answers[q.QuestionID()]
		out := model.QuestionOutcome{
			QuestionID: q.QuestionID(),
			Kind:       q.Kind(),
			Marks:      q.MarksValue(),
		}

		switch q := q.(type) {
		case *model.MCQQuestion:
			res.MaxScore++
			out.CorrectOption = q.CorrectOption
			out.Answered = answered && ans.Option != ""
			out.Selected = ans.Option
			out.Correct = out.Answered && ans.Option == q.CorrectOption
			if out.Correct {
				res.Score++
			}
		case *model.CodingQuestion:
			res.CodingMaxScore += float64(q.Marks)
			out.Answered = answered && ans.Code != ""
			if score, ok := codingScores[q.ID]; ok {
				s := score
				out.CodeScore = &s
				out.Answered = true
				res.CodingScore += score
			}
		}

		res.Breakdown = append(res.Breakdown, out)
	}

	if res.MaxScore > 0 {
		res.Percentage = float64(res.Score) / float64(res.MaxScore) * 100
	}

	return res
}
