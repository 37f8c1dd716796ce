// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package llm

import (
	"context"
	"strings"
)

// Message is one turn in a chat-style conversation.
type Message struct {
	Role    string
	Content string
}

// StreamChat satisfies the stream_chat(messages) -> token-stream side
// of the generator contract. The backend itself is non-streaming (the
// teacher's chat-completions call returns one response body), so this
// runs Generate to completion and then replays it word-by-word onto
// the returned channel, closing it once the full response has been
// sent or ctx is canceled.
func (c *Client) StreamChat(ctx context.Context, messages []Message) (<-chan string, error) {
	prompt := flattenMessages(messages)
	text, _, err := c.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	tokens := make(chan string)
	go func() {
		defer close(tokens)
		for _, word := range strings.Fields(text) {
			select {
			case <-ctx.Done():
				return
			case tokens <- word + " ":
			}
		}
	}()
	return tokens, nil
}

func flattenMessages(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
