// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion adapts the external text-completion service behind a
// single-method Client interface. All provider failure signaling, including
// the legacy "ERROR:" sentinel some deployments emit inside otherwise
// successful responses, is decoded here into typed errors. Callers branch on
// *ProviderError; nothing outside this package inspects response text for
// error markers.
package completion

import (
	"context"
	"fmt"
	"strings"
)

// Request is one completion call.
type Request struct {
	// System is the system instruction framing the call.
	System string

	// Prompt is the user-turn content.
	Prompt string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length. Zero lets the client default apply.
	MaxTokens int

	// Seed, when non-zero, requests reproducible sampling.
	Seed int
}

// Result is a successful completion with its token accounting.
type Result struct {
	// Text is the completion text, trimmed.
	Text string

	// PromptTokens is the provider's count of input tokens.
	PromptTokens int

	// CompletionTokens is the provider's count of output tokens.
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens.
func (r Result) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Client is the completion boundary the pipeline calls through. A Complete
// invocation resolves to one result or one error; any transport-level retry
// happens inside the implementation, never in callers.
type Client interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

// ProviderErrorKind discriminates provider failure modes.
type ProviderErrorKind string

const (
	// KindSentinel: the provider returned 200 but the text carries the
	// "ERROR:" failure sentinel.
	KindSentinel ProviderErrorKind = "sentinel"

	// KindRefusal: the provider refused the request (content filter).
	KindRefusal ProviderErrorKind = "refusal"

	// KindEmpty: the provider returned no usable text.
	KindEmpty ProviderErrorKind = "empty"

	// KindHTTP: the provider returned a non-success status code.
	KindHTTP ProviderErrorKind = "http"

	// KindDecode: the provider response body could not be decoded.
	KindDecode ProviderErrorKind = "decode"
)

// ProviderError is any failure of the completion provider. The writer aborts
// the run on one; augmentation recovers locally instead.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string

	// StatusCode is set for KindHTTP.
	StatusCode int
}

func (e *ProviderError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("completion provider: %s %d: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion provider: %s: %s", e.Kind, e.Message)
}

// errorSentinel is the in-band failure prefix legacy provider deployments
// prepend to response text.
const errorSentinel = "ERROR:"

// decodeText inspects completion text for in-band failure signals and returns
// the cleaned text or a typed error. Every Client implementation routes its
// text through here so the sentinel is decoded exactly once.
func decodeText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &ProviderError{Kind: KindEmpty, Message: "provider returned no text"}
	}
	if strings.HasPrefix(trimmed, errorSentinel) {
		msg := strings.TrimSpace(strings.TrimPrefix(trimmed, errorSentinel))
		if msg == "" {
			msg = "provider signaled failure"
		}
		return "", &ProviderError{Kind: KindSentinel, Message: msg}
	}
	return trimmed, nil
}
