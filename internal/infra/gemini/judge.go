package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"pyquest-backend/internal/domain"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.0-flash"
)

const codingSystemPrompt = `You are a Python tutor grading a student's answer to a coding question.
Decide whether the code logically solves what the question asks for. Do not
compare to a reference answer literally; the answer must also satisfy the
stated constraints or it is incorrect.
If correct: feedback gives brief positive reinforcement; hint poses a
deeper-thinking follow-up challenge.
If incorrect: feedback states only what the submitted code currently does;
hint asks a Socratic question that nudges the student toward the mistake.
Never reveal the correct answer, never include code, never praise an
incorrect answer. Score points out of 10 considering timeTakenSeconds
against avgTimeSeconds.
Respond with a single JSON object: {"isCorrect": bool, "feedback": string, "hint": string, "points": number}.`

const fillInSystemPrompt = `You are a Python tutor grading a student's fill-in-the-blank answer.
Judge whether the student's answer is semantically equivalent to the
reference answer; accept reasonable spelling and casing variations.
If correct: feedback gives brief positive reinforcement; hint poses a small
follow-up question. If incorrect: hint nudges the student toward the right
concept without revealing the reference answer. Score points out of 10
considering timeTakenSeconds against avgTimeSeconds.
Respond with a single JSON object: {"isCorrect": bool, "feedback": string, "hint": string, "points": number}.`

// Judge grades free-text answers through an OpenAI-compatible
// chat-completions endpoint (Gemini by default).
type Judge struct {
	client *openai.Client
	model  string
}

// Option configures the Judge.
type Option func(*settings)

type settings struct {
	baseURL string
	model   string
}

// WithBaseURL points the judge at a different OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

func NewJudge(apiKey string, opts ...Option) *Judge {
	cfg := settings{baseURL: DefaultBaseURL, model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
	)
	return &Judge{client: client, model: cfg.model}
}

func (j *Judge) GradeCoding(ctx context.Context, req domain.JudgeRequest) (domain.Verdict, error) {
	return j.grade(ctx, codingSystemPrompt, req)
}

func (j *Judge) GradeFillIn(ctx context.Context, req domain.JudgeRequest) (domain.Verdict, error) {
	return j.grade(ctx, fillInSystemPrompt, req)
}

func (j *Judge) grade(ctx context.Context, systemPrompt string, req domain.JudgeRequest) (domain.Verdict, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("encode judge request: %w", err)
	}

	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(openai.ChatModel(j.model)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(payload)),
		}),
		Temperature: openai.F(0.2),
		MaxTokens:   openai.F(int64(500)),
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("judge call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Verdict{}, fmt.Errorf("judge returned no choices")
	}

	return parseVerdict(resp.Choices[0].Message.Content)
}

// parseVerdict decodes the model's JSON reply; models occasionally wrap the
// object in a markdown fence, so strip one if present.
func parseVerdict(content string) (domain.Verdict, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var raw struct {
		IsCorrect bool     `json:"isCorrect"`
		Feedback  string   `json:"feedback"`
		Hint      string   `json:"hint"`
		Points    *float64 `json:"points"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return domain.Verdict{}, fmt.Errorf("malformed judge response: %w", err)
	}

	verdict := domain.Verdict{
		IsCorrect: raw.IsCorrect,
		Feedback:  raw.Feedback,
		Hint:      raw.Hint,
	}
	if raw.Points != nil {
		points := int(*raw.Points)
		verdict.Points = &points
	}
	return verdict, nil
}
