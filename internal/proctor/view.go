package proctor

import (
	"github.com/stemsi/exstem-proctor/internal/model"
)

// DialogKind is the modal shown for the current state.
type DialogKind string

const (
	DialogNone               DialogKind = "NONE"
	DialogSupervisorOverride DialogKind = "SUPERVISOR_OVERRIDE"
	DialogFullscreenWarning  DialogKind = "FULLSCREEN_WARNING"
)

// Dialog describes the active modal. Its fields are derived from session state only.
type Dialog struct {
	Kind          DialogKind          `json:"kind"`
	Dismissable   bool                `json:"dismissable,omitempty"`
	TimeUp        bool                `json:"time_up,omitempty"`
	Error         string              `json:"error,omitempty"`
	GraceSeconds  int                 `json:"grace_seconds,omitempty"`
	ViolationKind model.ViolationKind `json:"violation_kind,omitempty"`
}

// PaletteStatus colours a question in the navigation palette.
type PaletteStatus string

const (
	PaletteCurrent        PaletteStatus = "CURRENT"
	PaletteAnswered       PaletteStatus = "ANSWERED"
	PaletteMarked         PaletteStatus = "MARKED"
	PaletteAnsweredMarked PaletteStatus = "ANSWERED_MARKED"
	PaletteUnanswered     PaletteStatus = "UNANSWERED"
)

type PaletteEntry struct {
	Index      int                `json:"index"`
	QuestionID string             `json:"question_id"`
	Kind       model.QuestionKind `json:"kind"`
	Status     PaletteStatus      `json:"status"`
}

// QuestionView carries exactly one variant of the current question.
type QuestionView struct {
	Kind   model.QuestionKind    `json:"kind"`
	MCQ    *model.MCQQuestion    `json:"mcq,omitempty"`
	Coding *model.CodingQuestion `json:"coding,omitempty"`
}

// View is a read-only snapshot of a session for display.
type View struct {
	SessionID        string                    `json:"session_id"`
	TestID           string                    `json:"test_id,omitempty"`
	TestName         string                    `json:"test_name,omitempty"`
	State            model.SessionState        `json:"state"`
	CurrentIndex     int                       `json:"current_index"`
	Question         *QuestionView             `json:"question,omitempty"`
	Answer           *model.Answer             `json:"answer,omitempty"`
	DryRun           *model.DryRunResponse     `json:"dry_run,omitempty"`
	CodeResult       *model.CodeSubmitResponse `json:"code_result,omitempty"`
	RemainingSeconds int                       `json:"remaining_seconds"`
	TotalSeconds     int                       `json:"total_seconds"`
	CanSubmit        bool                      `json:"can_submit"`
	ViolationCount   int                       `json:"violation_count"`
	ViolationLimit   int                       `json:"violation_limit"`
	Violations       []model.ViolationEvent    `json:"violations,omitempty"`
	Dialog           Dialog                    `json:"dialog"`
	Palette          []PaletteEntry            `json:"palette,omitempty"`
	Reason           string                    `json:"reason,omitempty"`
	Result           *model.SubmissionResult   `json:"result,omitempty"`
}

// dialogInput is the state that determines the modal.
type dialogInput struct {
	state        model.SessionState
	timeUp       bool
	overrideErr  string
	warning      bool
	warningKind  model.ViolationKind
	graceSeconds int
}

// dialogFor maps state to the modal. The supervisor override takes precedence
// over the fullscreen warning.
func dialogFor(in dialogInput) Dialog {
	switch in.state {
	case model.SessionStateAwaitingSupervisorOverride:
		return Dialog{
			Kind:        DialogSupervisorOverride,
			Dismissable: !in.timeUp,
			TimeUp:      in.timeUp,
			Error:       in.overrideErr,
		}
	}
	if warningShown(in.state, in.warning) {
		return Dialog{
			Kind:          DialogFullscreenWarning,
			GraceSeconds:  in.graceSeconds,
			ViolationKind: in.warningKind,
		}
	}
	return Dialog{Kind: DialogNone}
}

// warningShown reports whether the fullscreen warning is on screen. The grace
// countdown only runs while it is.
func warningShown(state model.SessionState, warning bool) bool {
	return warning && state == model.SessionStateInProgress
}

func questionView(q model.Question) *QuestionView {
	switch q := q.(type) {
	case *model.MCQQuestion:
		return &QuestionView{Kind: model.QuestionKindMCQ, MCQ: q}
	case *model.CodingQuestion:
		return &QuestionView{Kind: model.QuestionKindCoding, Coding: q}
	}
	return nil
}

func paletteStatus(q model.Question, idx, current int, answers map[string]model.Answer, marked map[string]bool) PaletteStatus {
	if idx == current {
		return PaletteCurrent
	}

	ans, ok := answers[q.QuestionID()]
	answered := false
	if ok {
		switch q.Kind() {
		case model.QuestionKindMCQ:
			answered = ans.Option != ""
		case model.QuestionKindCoding:
			answered = ans.Code != ""
		}
	}

	switch {
	case answered && marked[q.QuestionID()]:
		return PaletteAnsweredMarked
	case marked[q.QuestionID()]:
		return PaletteMarked
	case answered:
		return PaletteAnswered
	default:
		return PaletteUnanswered
	}
}
