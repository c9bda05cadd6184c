package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
	statex "github.com/tanpawarit/clinic-admin-console/agent/state"
)

// LoadOrCreateState resumes the stored conversation, appends the user message
// and saves it, so readers see the message while the turn is still running.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.SessionID)
	switch {
	case errors.Is(err, statex.ErrStateNotFound):
		st = statex.NewSessionState(in.SessionID, in.Now)
	case err != nil:
		return nil, fmt.Errorf("load session state: %w", err)
	}

	st.Append(contractx.ChatMessage{
		ID:        uuid.NewString(),
		Role:      contractx.RoleUser,
		Content:   in.Text,
		Timestamp: in.Now,
	})
	st.Touch(in.Now)
	if err := store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	in.Session = st
	return in, nil
}
