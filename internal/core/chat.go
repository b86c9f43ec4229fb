package core

import (
	"context"
	"errors"
	"fmt"

	"clinic-assistant/internal/db"
	"clinic-assistant/internal/llm"
	"clinic-assistant/pkg"
)

// ChatService orchestrates one patient interaction: assemble the
// conversation context, obtain a reply from the completion client, and
// persist both turns. Completion failures never surface as errors; they
// become fixed advisory replies so the patient always gets an answer.
type ChatService struct {
	repo         *db.Repository
	client       llm.Client
	historyLimit int
}

// NewChatService constructs a ChatService. historyLimit bounds how many
// prior turns feed the context window.
func NewChatService(repo *db.Repository, client llm.Client, historyLimit int) *ChatService {
	return &ChatService{repo: repo, client: client, historyLimit: historyLimit}
}

// Reply handles one user message for a patient. The message is expected to
// be validated (non-empty, trimmed) by the caller. Both the user turn and
// the assistant turn are persisted on every path, including advisory
// replies; only storage failures propagate as errors.
func (s *ChatService) Reply(ctx context.Context, patientID int64, message string) (string, error) {
	prior, err := s.repo.RecentTurns(ctx, patientID, s.historyLimit)
	if err != nil {
		return "", fmt.Errorf("load context: %w", err)
	}

	reply := s.complete(ctx, BuildContext(SystemPrompt, prior, message, s.historyLimit))

	if _, err := s.repo.AppendTurn(ctx, patientID, pkg.RoleUser, message); err != nil {
		return "", fmt.Errorf("persist user turn: %w", err)
	}
	if _, err := s.repo.AppendTurn(ctx, patientID, pkg.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("persist assistant turn: %w", err)
	}
	return reply, nil
}

// complete normalizes every completion-client outcome into a reply string.
// Upstream failures are absorbed here and not logged anywhere else.
func (s *ChatService) complete(ctx context.Context, messages []llm.Message) string {
	reply, err := s.client.Complete(ctx, messages)
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		return MissingKeyMessage
	case errors.Is(err, llm.ErrEmptyCompletion):
		return EmptyResponseMessage
	case err != nil:
		return ServiceErrorPrefix + err.Error()
	}
	return reply
}
