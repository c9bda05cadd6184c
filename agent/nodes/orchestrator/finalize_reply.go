package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

func FinalizeReply(in *GraphState, classifier contractx.PersonaClassifier, nowFn func() time.Time) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	var (
		text    string
		persona = contractx.PersonaOrchestrator
	)
	switch in.Outcome {
	case contractx.OutcomeDone:
		text = strings.TrimSpace(in.Final.Text())
		if text == "" {
			text = FallbackText
		}
		if classifier != nil {
			persona = classifier.Classify(text)
		}
	case contractx.OutcomeExhausted:
		text = ExhaustedText
	default:
		// Connection failures are not attributed to any persona.
		in.Outcome = contractx.OutcomeFailed
		text = FailedText
		persona = ""
	}

	// The reply never sorts before the user message it answers.
	ts := nowFn().UTC()
	if ts.Before(in.Now) {
		ts = in.Now
	}

	in.Reply = contractx.ChatMessage{
		ID:        uuid.NewString(),
		Role:      contractx.RoleModel,
		Content:   text,
		AgentName: persona,
		Timestamp: ts,
	}
	in.Session.Append(in.Reply)
	return in, nil
}
