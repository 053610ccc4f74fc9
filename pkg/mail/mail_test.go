package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestClient_Send(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "re_test", "Formation <formation@example.org>")
	err := c.Send(context.Background(), Message{To: []string{"jean@example.org"}, Subject: "Hi", Text: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "Formation <formation@example.org>", got.From)
	assert.Equal(t, []string{"jean@example.org"}, got.To)
	assert.Equal(t, "Hi", got.Subject)
}

func TestClient_SendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "key", "bad").Send(context.Background(), Message{To: []string{"a@example.org"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "invalid from address")
}

func TestClient_SendRequiresRecipient(t *testing.T) {
	err := NewClient("http://127.0.0.1:0", "key", "from@example.org").Send(context.Background(), Message{})
	assert.Error(t, err)
}

func TestNoop_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNoop(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Message{To: []string{"a@example.org"}, Subject: "Invitation"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Invitation", logs.All()[0].ContextMap()["subject"])
}

func TestNoop_SendLogsLinkAtDebug(t *testing.T) {
	msg, err := InviteEmail(InviteData{
		Email:     "jean@example.org",
		AcceptURL: "https://portal.example.org/accept-invite?token=abc",
		ExpiresAt: time.Date(2026, 5, 8, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	require.NoError(t, NewNoop(zap.New(core)).Send(context.Background(), msg))

	links := logs.FilterField(zap.String("link", "https://portal.example.org/accept-invite?token=abc"))
	require.Equal(t, 1, links.Len())
	assert.Equal(t, zap.DebugLevel, links.All()[0].Level)

	// The link stays out of the API payload
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"link"`)
}

func TestInviteEmail(t *testing.T) {
	msg, err := InviteEmail(InviteData{
		FullName:  "Jean <Dupont>",
		Email:     "jean@example.org",
		InvitedBy: "Frère Paul",
		AcceptURL: "https://portal.example.org/accept?token=abc&x=1",
		ExpiresAt: time.Date(2026, 5, 8, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"jean@example.org"}, msg.To)
	assert.Equal(t, inviteSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "Jean &lt;Dupont&gt;")
	assert.Contains(t, msg.HTML, `href="https://portal.example.org/accept?token=abc&amp;x=1"`)
	assert.Contains(t, msg.Text, "Jean <Dupont>")
	assert.Contains(t, msg.Text, "08/05/2026 à 10:00 UTC")
}
