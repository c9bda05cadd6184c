package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// OpenSession resumes the provider chat from the stored transcript. An opener
// that cannot reach a provider fails the turn instead of the request.
func OpenSession(ctx context.Context, in *GraphState, opener contractx.SessionOpener) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	chat, err := opener.Open(in.Session.History)
	if err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Msg("open chat session failed")
		in.fail(err)
		return in, nil
	}
	in.Chat = chat
	return in, nil
}
