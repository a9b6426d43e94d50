// Package speech speaks assistant responses through an external
// text-to-speech command.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Speaker renders text as audio. Implementations block until done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Speak(context.Context, string) error { return nil }

// CommandSpeaker runs a command per utterance with the text on stdin, e.g.
// ["espeak-ng", "--stdin"] or ["piper", "--output-raw"].
type CommandSpeaker struct {
	name string
	args []string
	log  logrus.FieldLogger
}

// New returns a CommandSpeaker for command, or Nop when command is empty.
func New(command []string, log logrus.FieldLogger) Speaker {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CommandSpeaker{name: command[0], args: command[1:], log: log}
}

func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("speak: %w", ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("speech command %q not found: %w", s.name, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech command %s: %w: %s", s.name, err, msg)
		}
		return fmt.Errorf("speech command %s: %w", s.name, err)
	}
	s.log.WithField("chars", len(text)).Debug("spoke response")
	return nil
}
