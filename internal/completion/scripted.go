// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ScriptedClient serves completions without network access. Tests script it
// with canned responses; the CLI's dry-run mode uses it with Synthesize set,
// which fabricates a short deterministic completion per request so the whole
// pipeline can run offline.
type ScriptedClient struct {
	// Responses are returned in order, one per Complete call. Each entry's
	// text still passes through sentinel decoding, so a scripted "ERROR: x"
	// produces the same typed error a live provider would.
	Responses []Result

	// Errs maps call index to a forced error for that call.
	Errs map[int]error

	// Synthesize fabricates a completion when the script is exhausted
	// instead of failing.
	Synthesize bool

	mu       sync.Mutex
	calls    int
	requests []Request
}

// Calls returns the number of Complete invocations so far.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Requests returns a copy of every request received so far, in call order.
func (s *ScriptedClient) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Complete returns the next scripted result or a synthesized one.
func (s *ScriptedClient) Complete(_ context.Context, req Request) (Result, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err, ok := s.Errs[idx]; ok {
		return Result{}, err
	}

	if idx < len(s.Responses) {
		r := s.Responses[idx]
		text, err := decodeText(r.Text)
		if err != nil {
			return Result{}, err
		}
		r.Text = text
		return r, nil
	}

	if !s.Synthesize {
		return Result{}, &ProviderError{Kind: KindEmpty, Message: fmt.Sprintf("script exhausted at call %d", idx)}
	}

	text := synthesizeText(req.Prompt)
	return Result{
		Text:             text,
		PromptTokens:     approxTokens(req.System) + approxTokens(req.Prompt),
		CompletionTokens: approxTokens(text),
	}, nil
}

// synthesizeText builds placeholder prose from the prompt's leading words.
// The output is plain text, so downstream structured-output parsers reject it
// and fall back to their deterministic paths.
func synthesizeText(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 12 {
		words = words[:12]
	}
	return "Placeholder response for: " + strings.Join(words, " ")
}

// approxTokens estimates a token count from text length. Four characters per
// token keeps dry-run ledger arithmetic non-zero and stable.
func approxTokens(text string) int {
	return (len(text) + 3) / 4
}
