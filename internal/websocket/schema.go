package websocket

import (
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEnv              Action = "env"
	ActionAnswer           Action = "answer"
	ActionMarkReview       Action = "mark_review"
	ActionClear            Action = "clear"
	ActionGoto             Action = "goto"
	ActionNext             Action = "next"
	ActionPrev             Action = "prev"
	ActionSubmit           Action = "submit"
	ActionDismiss          Action = "dismiss"
	ActionPasscode         Action = "passcode"
	ActionReturnFullscreen Action = "return_fullscreen"
	ActionDryRun           Action = "dry_run"
	ActionSubmitCode       Action = "submit_code"
	ActionPing             Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// EnvRequest forwards one document event observed by the browser shim.
type EnvRequest struct {
	Action Action        `json:"action"`
	Seq    int64         `json:"seq"`
	Event  proctor.Event `json:"event"`
}

// AnswerRequest stores an MCQ option or the code of a coding question.
type AnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id" binding:"required"`
	Option     string `json:"option"`
	Code       string `json:"code"`
	Language   string `json:"language"`
}

// QuestionRequest addresses one question (mark_review, clear).
type QuestionRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id" binding:"required"`
}

type GotoRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index" binding:"min=0"`
}

type PasscodeRequest struct {
	Action Action `json:"action"`
	Code   string `json:"code" binding:"max=64"`
}

// CodeRequest runs or submits code. Empty code is rejected by the session itself.
type CodeRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id" binding:"required"`
	Code       string `json:"code"`
	Language   string `json:"language" binding:"required"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot     Event = "snapshot"
	EventToast        Event = "toast"
	EventCommand      Event = "command"
	EventAck          Event = "ack"
	EventNavigate     Event = "navigate"
	EventLoadFailed   Event = "load_failed"
	EventDryRunResult Event = "dry_run_result"
	EventCodeResult   Event = "code_result"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// Command is an instruction the browser shim applies to the real document.
type Command string

const (
	CommandRequestFullscreen Command = "request_fullscreen"
	CommandExitFullscreen    Command = "exit_fullscreen"
	CommandListen            Command = "listen"
	CommandUnlisten          Command = "unlisten"
)

type SnapshotEvent struct {
	Event Event        `json:"event"`
	View  proctor.View `json:"view"`
}

type ToastEvent struct {
	Event Event         `json:"event"`
	Toast proctor.Toast `json:"toast"`
}

type CommandEvent struct {
	Event   Event             `json:"event"`
	Command Command           `json:"command"`
	Type    proctor.EventType `json:"type,omitempty"`
	Capture bool              `json:"capture,omitempty"`
}

// AckEvent reports how the server handled an env event.
type AckEvent struct {
	Event              Event `json:"event"`
	Seq                int64 `json:"seq"`
	DefaultPrevented   bool  `json:"default_prevented"`
	PropagationStopped bool  `json:"propagation_stopped"`
}

type NavigateEvent struct {
	Event  Event  `json:"event"`
	Target string `json:"target"`
}

type LoadFailedEvent struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

type DryRunResultEvent struct {
	Event      Event                 `json:"event"`
	QuestionID string                `json:"question_id"`
	Result     *model.DryRunResponse `json:"result"`
}

type CodeResultEvent struct {
	Event      Event                     `json:"event"`
	QuestionID string                    `json:"question_id"`
	Result     *model.CodeSubmitResponse `json:"result"`
}

type ErrorResponse struct {
	Event    Event             `json:"event"`
	Code     string            `json:"code,omitempty"`
	Error    string            `json:"error"`
	Category proctor.Category  `json:"category,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
