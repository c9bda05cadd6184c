package contract

import (
	"encoding/json"
	"time"
)

// Persona is a display label for the sub-agent a reply is attributed to.
type Persona string

const (
	PersonaOrchestrator Persona = "Orchestrator"
	PersonaRecords      Persona = "Medical Records (SA1)"
	PersonaBilling      Persona = "Billing & Payments (SA2)"
	PersonaRegistration Persona = "Registration (SA3)"
	PersonaScheduling   Persona = "Scheduling (SA4)"
)

// View names a console tab.
type View string

const (
	ViewDashboard    View = "dashboard"
	ViewRegistration View = "registration"
	ViewScheduling   View = "scheduling"
	ViewBilling      View = "billing"
	ViewRecords      View = "records"
)

func (v View) Valid() bool {
	switch v {
	case ViewDashboard, ViewRegistration, ViewScheduling, ViewBilling, ViewRecords:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// ChatMessage is one entry of the user-facing transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentName Persona   `json:"agentName,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ToolRequest struct {
	Tool         string         `json:"tool"`
	InvocationID string         `json:"invocation_id,omitempty"`
	Args         map[string]any `json:"args,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolResult is the outcome of one tool call. Business failures are carried in
// Status/Message (or Error for unknown tools), never as Go errors.
type ToolResult struct {
	Tool         string         `json:"tool"`
	InvocationID string         `json:"invocation_id,omitempty"`
	Status       string         `json:"status,omitempty"`
	Message      string         `json:"message,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func (r ToolResult) OK() bool {
	return r.Status == StatusSuccess
}

// Response renders the object handed back to the model as the tool response.
func (r ToolResult) Response() map[string]any {
	out := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		out[k] = v
	}
	if r.Status != "" {
		out["status"] = r.Status
	}
	if r.Message != "" {
		out["message"] = r.Message
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return out
}

func (r ToolResult) ResponseJSON() (string, error) {
	raw, err := json.Marshal(r.Response())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Part is one ordered element of a model response: free text or a tool call.
type Part struct {
	Text     string       `json:"text,omitempty"`
	ToolCall *ToolRequest `json:"tool_call,omitempty"`
}

type ModelResponse struct {
	Parts []Part `json:"parts"`
}

func (m ModelResponse) ToolCalls() []ToolRequest {
	var calls []ToolRequest
	for _, p := range m.Parts {
		if p.ToolCall != nil {
			calls = append(calls, *p.ToolCall)
		}
	}
	return calls
}

// Text returns the first non-empty text part.
func (m ModelResponse) Text() string {
	for _, p := range m.Parts {
		if p.ToolCall == nil && p.Text != "" {
			return p.Text
		}
	}
	return ""
}

type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeFailed    Outcome = "failed"
	OutcomeExhausted Outcome = "exhausted"
)

// Reply is what a finished turn hands back to the presentation layer.
type Reply struct {
	Message   ChatMessage `json:"message"`
	Outcome   Outcome     `json:"outcome"`
	Rounds    int         `json:"rounds"`
	ToolCalls int         `json:"tool_calls"`
}
