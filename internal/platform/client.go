package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/observability"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 4 << 10

// Error is a failed call to a platform endpoint. Status is 0 for transport failures.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("platform %s: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the test, coding, passcode and results endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	log     zerolog.Logger
}

// NewClient creates a platform client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("github.com/stemsi/exstem-proctor/internal/platform"),
		log:     log.With().Str("component", "platform").Logger(),
	}
}

// LoadTest fetches a test and builds the ordered exam. Every failure wraps proctor.ErrLoadFailure.
func (c *Client) LoadTest(ctx context.Context, testID string) (*model.Exam, error) {
	var payload model.TestPayload
	if err := c.do(ctx, "load_test", http.MethodGet, "/api/test/"+url.PathEscape(testID), nil, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", proctor.ErrLoadFailure, err)
	}

	exam, err := model.BuildExam(testID, &payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", proctor.ErrLoadFailure, err)
	}
	if len(exam.Questions) == 0 {
		return nil, fmt.Errorf("%w: test %s has no questions", proctor.ErrLoadFailure, testID)
	}
	return exam, nil
}

func (c *Client) DryRun(ctx context.Context, req model.DryRunRequest) (*model.DryRunResponse, error) {
	var resp model.DryRunResponse
	if err := c.do(ctx, "dry_run", http.MethodPost, "/api/coding/dry-run", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitCode(ctx context.Context, req model.CodeSubmitRequest) (*model.CodeSubmitResponse, error) {
	var resp model.CodeSubmitResponse
	if err := c.do(ctx, "submit_code", http.MethodPost, "/api/coding/submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidatePasscode returns Valid=false for a rejected code, including 4xx answers
// carrying a message. Only transport and server failures are errors.
func (c *Client) ValidatePasscode(ctx context.Context, req model.PasscodeRequest) (*model.PasscodeResponse, error) {
	var resp model.PasscodeResponse
	err := c.do(ctx, "validate_passcode", http.MethodPost, "/api/passcode/validate", req, &resp)
	if err == nil {
		return &resp, nil
	}

	var perr *Error
	if errors.As(err, &perr) && perr.Status >= 400 && perr.Status < 500 {
		msg := resp.Message
		if msg == "" {
			msg = "Invalid passcode"
		}
		return &model.PasscodeResponse{Valid: false, Message: msg}, nil
	}
	return nil, err
}

// SubmitResult posts a result record to the results endpoint.
func (c *Client) SubmitResult(ctx context.Context, rec model.TestResultRecord) error {
	return c.do(ctx, "submit_result", http.MethodPost, "/api/student/test-results", rec, nil)
}

// do performs one JSON round trip. On non-2xx responses the body is still decoded
// into out when possible so callers can read error messages.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "platform."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	))
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		label := "error"
		if status != 0 {
			label = strconv.Itoa(status)
		}
		observability.CollaboratorDuration.WithLabelValues(op, label).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
			c.log.Warn().Err(err).Str("op", op).Int("status", status).Msg("Platform call failed")
		}
	}()

	var reader io.Reader
	if body != nil {
		buf, mErr := json.Marshal(body)
		if mErr != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", mErr)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer res.Body.Close()

	status = res.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status < 200 || status > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		if out != nil {
			_ = json.Unmarshal(raw, out)
		}
		msg := string(bytes.TrimSpace(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &Error{Op: op, Status: status, Err: errors.New(msg)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
