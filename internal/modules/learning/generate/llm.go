package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lingua-backend/internal/cache"
	"github.com/yungbote/lingua-backend/internal/platform/openai"
)

// LLMGenerator adapts a chat-completion client to the cache's generator signature.
// Instructions become the system message; the input becomes the user turns.
func LLMGenerator(client openai.Client) cache.Generator {
	return func(ctx context.Context, req cache.Request) (string, error) {
		msgs, err := messagesFor(req.Input)
		if err != nil {
			return "", err
		}
		return client.GenerateJSON(ctx, req.Instructions, msgs)
	}
}

func messagesFor(in cache.Input) ([]openai.Message, error) {
	switch v := in.(type) {
	case cache.PlainText:
		return []openai.Message{{Role: openai.RoleUser, Content: v.Text}}, nil
	case cache.Conversation:
		out := make([]openai.Message, 0, len(v.Turns))
		for _, t := range v.Turns {
			role := strings.ToLower(strings.TrimSpace(t.Role))
			switch role {
			case cache.RoleSystem, cache.RoleUser, cache.RoleAssistant:
			default:
				return nil, fmt.Errorf("%w: unsupported role %q", cache.ErrInvalidRequest, t.Role)
			}
			out = append(out, openai.Message{Role: role, Content: t.Content})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported input %T", cache.ErrInvalidRequest, in)
	}
}
