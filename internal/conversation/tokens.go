package conversation

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token footprint of a message list.
type TokenCounter interface {
	Count(msgs []Message) int
}

// ApproxCounter estimates roughly 4 characters per token plus a fixed
// per-message overhead for role framing. It needs no model data, which keeps
// the memory manager deterministic and dependency-free in tests.
type ApproxCounter struct{}

// Count implements TokenCounter.
func (ApproxCounter) Count(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)/4 + 5
	}
	return total
}

// TiktokenCounter counts with a real BPE vocabulary when precision matters
// more than the encoder download at startup.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoder for a model, falling back to the
// cl100k_base vocabulary for unknown models.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (t *TiktokenCounter) Count(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += len(t.enc.Encode(m.Content, nil, nil)) + 5
	}
	return total
}
