package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const fingerprintVersion = 1

type fingerprintDoc struct {
	V            int         `json:"v"`
	Category     string      `json:"category"`
	Input        any         `json:"input"`
	Instructions string      `json:"instructions"`
	Context      [][2]string `json:"context"`
}

// Fingerprint is the SHA-256 hex digest of the canonical form of req. Requests that
// differ only in casing or whitespace of the learner's text share a fingerprint.
func Fingerprint(req Request) (string, error) {
	doc := fingerprintDoc{
		V:            fingerprintVersion,
		Category:     strings.ToLower(strings.TrimSpace(string(req.Category))),
		Instructions: canonicalInstructions(req.Instructions),
		Context:      canonicalContext(req.Context),
	}
	switch in := req.Input.(type) {
	case PlainText:
		doc.Input = canonicalText(in.Text)
	case Conversation:
		turns := make([]Turn, 0, len(in.Turns))
		for _, t := range in.Turns {
			turns = append(turns, Turn{
				Role:    strings.ToLower(strings.TrimSpace(t.Role)),
				Content: canonicalText(t.Content),
			})
		}
		doc.Input = turns
	default:
		return "", fmt.Errorf("%w: unsupported input %T", ErrInvalidRequest, req.Input)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func canonicalInstructions(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func canonicalContext(ctx map[string]string) [][2]string {
	out := make([][2]string, 0, len(ctx))
	for k, v := range ctx {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out = append(out, [2]string{k, strings.ToLower(strings.TrimSpace(v))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
