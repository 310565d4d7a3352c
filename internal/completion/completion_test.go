// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		wantKind ProviderErrorKind
	}{
		{"plain text passes", "The network uses a star topology.", "The network uses a star topology.", ""},
		{"surrounding whitespace trimmed", "  some text \n", "some text", ""},
		{"empty text rejected", "", "", KindEmpty},
		{"whitespace-only rejected", "   \n\t ", "", KindEmpty},
		{"sentinel decoded", "ERROR: model overloaded", "", KindSentinel},
		{"sentinel with leading whitespace", "\n ERROR: quota exhausted", "", KindSentinel},
		{"bare sentinel gets default message", "ERROR:", "", KindSentinel},
		{"sentinel mid-text is content", "The word ERROR: appears here.", "The word ERROR: appears here.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeText(tt.text)
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var pErr *ProviderError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.wantKind, pErr.Kind)
			assert.NotEmpty(t, pErr.Message)
		})
	}
}

func TestDecodeTextSentinelMessage(t *testing.T) {
	_, err := decodeText("ERROR: model overloaded")
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "model overloaded", pErr.Message)
}

func TestResultTotalTokens(t *testing.T) {
	r := Result{PromptTokens: 120, CompletionTokens: 310}
	assert.Equal(t, 430, r.TotalTokens())
}

func TestScriptedClientPlaysResponsesInOrder(t *testing.T) {
	c := &ScriptedClient{Responses: []Result{
		{Text: "first", PromptTokens: 10, CompletionTokens: 5},
		{Text: "second", PromptTokens: 20, CompletionTokens: 7},
	}}

	r1, err := c.Complete(context.Background(), Request{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Text)
	assert.Equal(t, 15, r1.TotalTokens())

	r2, err := c.Complete(context.Background(), Request{Prompt: "b"})
	require.NoError(t, err)
	assert.Equal(t, "second", r2.Text)
	assert.Equal(t, 2, c.Calls())
}

func TestScriptedClientDecodesSentinel(t *testing.T) {
	c := &ScriptedClient{Responses: []Result{{Text: "ERROR: scripted failure"}}}

	_, err := c.Complete(context.Background(), Request{Prompt: "a"})
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, KindSentinel, pErr.Kind)
	assert.Equal(t, "scripted failure", pErr.Message)
}

func TestScriptedClientForcedError(t *testing.T) {
	forced := fmt.Errorf("boom")
	c := &ScriptedClient{
		Responses: []Result{{Text: "ok"}, {Text: "unreached"}},
		Errs:      map[int]error{1: forced},
	}

	_, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{})
	assert.True(t, errors.Is(err, forced))
}

func TestScriptedClientExhaustedWithoutSynthesize(t *testing.T) {
	c := &ScriptedClient{}

	_, err := c.Complete(context.Background(), Request{Prompt: "a"})
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, KindEmpty, pErr.Kind)
}

func TestScriptedClientSynthesize(t *testing.T) {
	c := &ScriptedClient{Synthesize: true}

	r, err := c.Complete(context.Background(), Request{
		System: "You write coursework sections.",
		Prompt: "Write an introduction for the unit Networked Systems covering scope and scenario.",
	})
	require.NoError(t, err)
	assert.Contains(t, r.Text, "Placeholder response for:")
	assert.Greater(t, r.PromptTokens, 0)
	assert.Greater(t, r.CompletionTokens, 0)

	// Same request synthesizes the same text.
	c2 := &ScriptedClient{Synthesize: true}
	r2, err := c2.Complete(context.Background(), Request{
		System: "You write coursework sections.",
		Prompt: "Write an introduction for the unit Networked Systems covering scope and scenario.",
	})
	require.NoError(t, err)
	assert.Equal(t, r.Text, r2.Text)
}
