package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedHandler struct {
	seen   []string
	resets int
}

func (h *scriptedHandler) HandleMessage(_ context.Context, userID string, text string) (string, error) {
	h.seen = append(h.seen, userID+":"+text)
	return "echo " + text, nil
}

func (h *scriptedHandler) Reset(context.Context, string) error {
	h.resets++
	return nil
}

func TestRunChat(t *testing.T) {
	t.Parallel()

	h := &scriptedHandler{}
	in := strings.NewReader("hello\n\n/reset\n1 + 1\n/quit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), h, "local", in, &out))
	assert.Equal(t, []string{"local:hello", "local:1 + 1"}, h.seen)
	assert.Equal(t, 1, h.resets)
	assert.Contains(t, out.String(), "echo hello")
	assert.Contains(t, out.String(), "Conversation cleared.")
}

func TestRunChatStopsAtEOF(t *testing.T) {
	t.Parallel()

	h := &scriptedHandler{}
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), h, "local", strings.NewReader("hi"), &out))
	assert.Equal(t, []string{"local:hi"}, h.seen)
}

func TestRootCommandWiresSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "chat"})
	assert.NotNil(t, root.PersistentFlags().Lookup("env"))
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
}
