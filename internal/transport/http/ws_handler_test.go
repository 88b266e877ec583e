package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pyquest-backend/internal/app"
	"pyquest-backend/internal/domain"
	"pyquest-backend/internal/infra/memory"
)

func newWSServer(t *testing.T) (*httptest.Server, *AuthService) {
	t.Helper()

	questions := memory.NewQuestionStore(memory.NewStaticQuestionLoader(map[string]domain.Question{
		"q-mcq": {
			ID:             "q-mcq",
			Type:           domain.MultipleChoice,
			Text:           "What is 2 + 2?",
			CorrectAnswer:  "4",
			AvgTimeSeconds: 30,
		},
		"q-drag": {
			ID:             "q-drag",
			Type:           domain.DragAndDrop,
			Text:           "Order the steps.",
			CorrectAnswer:  `["a","b","c"]`,
			AvgTimeSeconds: 60,
		},
	}), time.Minute)
	answers := memory.NewAnswerStore()
	users := memory.NewUserStore(map[string]domain.User{
		"u1": {ID: "u1", SkillLevel: 1, Points: 0},
	})

	evaluator := app.NewEvaluator(questions, answers, &stubJudge{}, app.DefaultJudgeTimeout)
	processor := app.NewBatchProcessor(evaluator, answers, users, nil, app.DefaultConcurrency)

	auth := NewAuthService("test-secret")
	handler := NewWSHandler(processor, users, nil)

	mux := http.NewServeMux()
	mux.Handle("/ws/submit", auth.Middleware(http.HandlerFunc(handler.ServeWS)))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, auth
}

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/submit?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg.Type, msg.Payload
}

func TestWSSubmitStreamsResults(t *testing.T) {
	server, auth := newWSServer(t)
	token, err := auth.IssueToken("u1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	conn := dialWS(t, server, token)

	now := time.Now().Unix()
	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"answers": []map[string]any{
				{"questionId": "q-mcq", "questionTypeId": 1, "userAnswer": "4", "startTime": now - 10, "endTime": now},
				{"questionId": "q-drag", "questionTypeId": 4, "userAnswer": `["a","b","c"]`, "startTime": now - 20, "endTime": now},
			},
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	// Two per-answer results arrive in completion order, then a summary.
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		typ, payload := readMessage(t, conn)
		if typ != "result" {
			t.Fatalf("message %d type = %q, want result", i, typ)
		}
		var item domain.ItemResult
		if err := json.Unmarshal(payload, &item); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if !item.Success || !item.IsCorrect {
			t.Fatalf("unexpected item %+v", item)
		}
		seen[item.QuestionID] = true
	}
	if !seen["q-mcq"] || !seen["q-drag"] {
		t.Fatalf("missing results, saw %v", seen)
	}

	typ, payload := readMessage(t, conn)
	if typ != "summary" {
		t.Fatalf("final type = %q, want summary", typ)
	}
	var summary summaryPayload
	if err := json.Unmarshal(payload, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("summary has %d results, want 2", len(summary.Results))
	}
	// MCQ: 5+1+3; DragDrop: 8+1+3.
	if summary.Awarded != 21 {
		t.Fatalf("awarded = %d, want 21", summary.Awarded)
	}
	if summary.NewBalance != 21 {
		t.Fatalf("newBalance = %d, want 21", summary.NewBalance)
	}
	// Summary order follows submission order even though grading is concurrent.
	if summary.Results[0].QuestionID != "q-mcq" || summary.Results[1].QuestionID != "q-drag" {
		t.Fatalf("results out of order: %+v", summary.Results)
	}
}

func TestWSRejectsBadPayload(t *testing.T) {
	server, auth := newWSServer(t)
	token, _ := auth.IssueToken("u1")
	conn := dialWS(t, server, token)

	if err := conn.WriteJSON(map[string]any{"type": "submit", "payload": "nope"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, payload := readMessage(t, conn)
	if typ != "error" {
		t.Fatalf("type = %q, want error", typ)
	}
	var errMsg errorPayload
	if err := json.Unmarshal(payload, &errMsg); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if errMsg.Message != "invalid submit payload" {
		t.Fatalf("unexpected error message %q", errMsg.Message)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, _ = readMessage(t, conn)
	if typ != "error" {
		t.Fatalf("type = %q, want error for unsupported type", typ)
	}
}

func TestWSRequiresToken(t *testing.T) {
	server, _ := newWSServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/submit"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}
