package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"clinic-assistant/internal/config"
	"clinic-assistant/internal/db"
	"clinic-assistant/internal/llm"
	"clinic-assistant/pkg"

	_ "modernc.org/sqlite"
)

// stubClient returns a canned reply or error and records the context it saw.
type stubClient struct {
	reply string
	err   error
	seen  []llm.Message
}

func (s *stubClient) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.seen = messages
	return s.reply, s.err
}

func newTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	ctx := context.Background()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "clinic.db"),
	}
	conn, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(ctx, conn, cfg.Driver))
	return db.NewRepository(conn, cfg.Driver)
}

func createPatient(t *testing.T, repo *db.Repository) int64 {
	t.Helper()
	p, err := repo.CreatePatient(context.Background(), "Jane Doe", nil, nil, nil)
	require.NoError(t, err)
	return p.ID
}

func TestReplyPersistsBothTurns(t *testing.T) {
	repo := newTestRepo(t)
	client := &stubClient{reply: "Try resting and hydration."}
	svc := NewChatService(repo, client, 40)
	ctx := context.Background()
	id := createPatient(t, repo)

	reply, err := svc.Reply(ctx, id, "I have a headache")
	require.NoError(t, err)
	require.Equal(t, "Try resting and hydration.", reply)

	turns, err := repo.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, pkg.RoleUser, turns[0].Role)
	require.Equal(t, "I have a headache", turns[0].Content)
	require.Equal(t, pkg.RoleAssistant, turns[1].Role)
	require.Equal(t, "Try resting and hydration.", turns[1].Content)
}

func TestReplyContextExcludesPendingUtterance(t *testing.T) {
	repo := newTestRepo(t)
	client := &stubClient{reply: "ok"}
	svc := NewChatService(repo, client, 40)
	ctx := context.Background()
	id := createPatient(t, repo)

	_, err := svc.Reply(ctx, id, "first")
	require.NoError(t, err)
	_, err = svc.Reply(ctx, id, "second")
	require.NoError(t, err)

	// Second call: system + (first, ok) + the new utterance. The utterance
	// must appear exactly once, as the final message.
	require.Len(t, client.seen, 4)
	require.Equal(t, "system", client.seen[0].Role)
	require.Equal(t, "first", client.seen[1].Content)
	require.Equal(t, "ok", client.seen[2].Content)
	require.Equal(t, "second", client.seen[3].Content)
}

func TestReplyTurnCountGrowsByTwo(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewChatService(repo, &stubClient{reply: "noted"}, 40)
	ctx := context.Background()
	id := createPatient(t, repo)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := svc.Reply(ctx, id, "message")
		require.NoError(t, err)
	}

	turns, err := repo.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, turns, 2*n)
	for i := 1; i < len(turns); i++ {
		require.False(t, turns[i].CreatedAt.Before(turns[i-1].CreatedAt))
	}
}

func TestReplyMissingCredentialAdvisory(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewChatService(repo, &stubClient{err: llm.ErrNoCredential}, 40)
	ctx := context.Background()
	id := createPatient(t, repo)

	reply, err := svc.Reply(ctx, id, "hello")
	require.NoError(t, err)
	require.Equal(t, MissingKeyMessage, reply)

	// The advisory reply is persisted like any other assistant turn.
	turns, err := repo.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, MissingKeyMessage, turns[1].Content)
}

func TestReplyEmptyCompletionAdvisory(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewChatService(repo, &stubClient{err: llm.ErrEmptyCompletion}, 40)
	id := createPatient(t, repo)

	reply, err := svc.Reply(context.Background(), id, "hello")
	require.NoError(t, err)
	require.Equal(t, EmptyResponseMessage, reply)
}

func TestReplyServiceErrorAdvisoryIncludesDiagnostic(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewChatService(repo, &stubClient{err: errors.New("completion endpoint returned 503 Service Unavailable")}, 40)
	id := createPatient(t, repo)

	reply, err := svc.Reply(context.Background(), id, "hello")
	require.NoError(t, err)
	require.Contains(t, reply, ServiceErrorPrefix)
	require.Contains(t, reply, "503")
}
