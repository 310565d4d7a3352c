// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"time"

	"github.com/pdiddy/coursework-engine/internal/logging"
)

// Notifier receives lifecycle events for generation runs. The orchestrator
// calls it once per transition; implementations must not block for long.
// The default implementation logs the events, and deployments can inject a
// webhook or queue publisher instead.
type Notifier interface {
	GenerationStarted(assignmentID, userID string)
	GenerationCompleted(assignmentID string, totalTokens int, duration time.Duration, artifactPath string)
	GenerationFailed(assignmentID, reason string)
}

// LogNotifier reports lifecycle events through the structured log.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier builds the default notifier. A nil logger is replaced with
// a no-op one.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	if log == nil {
		log = logging.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) GenerationStarted(assignmentID, userID string) {
	n.log.Info("generation started", "assignment", assignmentID, "user", userID)
}

func (n *LogNotifier) GenerationCompleted(assignmentID string, totalTokens int, duration time.Duration, artifactPath string) {
	n.log.Info("generation completed",
		"assignment", assignmentID,
		"tokens", totalTokens,
		"duration", duration.Round(time.Millisecond).String(),
		"artifact", artifactPath)
}

func (n *LogNotifier) GenerationFailed(assignmentID, reason string) {
	n.log.Warn("generation failed", "assignment", assignmentID, "reason", reason)
}
