package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

// Input is the user-supplied part of a request: either PlainText or Conversation.
type Input interface {
	isInput()
}

type PlainText struct {
	Text string
}

func (PlainText) isInput() {}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Conversation struct {
	Turns []Turn
}

func (Conversation) isInput() {}

// Request is one logical generation. Instructions must already have their template
// placeholders substituted.
type Request struct {
	Category     learning.CacheCategory
	Input        Input
	Instructions string
	Context      map[string]string
}

// Generator produces the raw model output for req.
type Generator func(ctx context.Context, req Request) (string, error)

func (r Request) Validate() error {
	if !r.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, r.Category)
	}
	switch in := r.Input.(type) {
	case PlainText:
		if strings.TrimSpace(in.Text) == "" {
			return fmt.Errorf("%w: empty input text", ErrInvalidRequest)
		}
	case Conversation:
		if len(in.Turns) == 0 {
			return fmt.Errorf("%w: empty conversation", ErrInvalidRequest)
		}
		for i, t := range in.Turns {
			if strings.TrimSpace(t.Role) == "" {
				return fmt.Errorf("%w: turn %d has no role", ErrInvalidRequest, i)
			}
		}
	case nil:
		return fmt.Errorf("%w: missing input", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: unsupported input %T", ErrInvalidRequest, in)
	}
	return nil
}
