// Package auth resolves secrets for CLI commands (Slack tokens, OAuth client
// secrets) from an ordered list of sources: flags, environment variables
// and, when attached to a terminal, an interactive prompt.
package auth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrSecretNotFound is returned when no source produced a value.
var ErrSecretNotFound = errors.New("secret not provided")

// Source indicates where a secret was found
type Source string

const (
	SourceFlag   Source = "flag"
	SourceEnv    Source = "env"
	SourcePrompt Source = "prompt"
	SourceNone   Source = "none"
)

// Result contains the resolved secret and its source
type Result struct {
	Value  string
	Source Source
	Name   string // e.g. "SLACK_TOKEN", "--token"
}

// Provider attempts to supply a secret. It returns an empty value when the
// source has nothing, and an error only for unexpected failures.
type Provider func() (value string, source Source, name string, err error)

// Resolver tries providers in the order they were added.
type Resolver struct {
	label     string
	providers []Provider
	hint      string
	validate  func(string) error
}

// NewResolver creates a resolver; label names the secret in messages.
func NewResolver(label string) *Resolver {
	return &Resolver{label: label}
}

// WithFlag adds a flag value. name is the flag as typed, e.g. "--token".
func (r *Resolver) WithFlag(name, value string) *Resolver {
	r.providers = append(r.providers, func() (string, Source, string, error) {
		return strings.TrimSpace(value), SourceFlag, name, nil
	})

	return r
}

// WithEnv adds environment variables, checked in order.
func (r *Resolver) WithEnv(vars ...string) *Resolver {
	for _, v := range vars {
		r.providers = append(r.providers, func() (string, Source, string, error) {
			return strings.TrimSpace(os.Getenv(v)), SourceEnv, v, nil
		})
	}

	return r
}

// WithPrompt reads the secret from the terminal without echo. It is skipped
// when in is not a terminal.
func (r *Resolver) WithPrompt(in *os.File, out io.Writer) *Resolver {
	r.providers = append(r.providers, func() (string, Source, string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", SourcePrompt, "", nil
		}

		_, _ = fmt.Fprintf(out, "%s: ", r.label)

		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(out)

		if err != nil {
			return "", SourcePrompt, "", fmt.Errorf("failed to read %s: %w", r.label, err)
		}

		return strings.TrimSpace(string(b)), SourcePrompt, "terminal", nil
	})

	return r
}

// WithProvider adds a custom provider.
func (r *Resolver) WithProvider(p Provider) *Resolver {
	r.providers = append(r.providers, p)
	return r
}

// WithHint sets the help text appended when nothing is found.
func (r *Resolver) WithHint(hint string) *Resolver {
	r.hint = hint
	return r
}

// WithValidator rejects resolved values; a rejected value is an error, not
// a fall-through to the next source.
func (r *Resolver) WithValidator(fn func(string) error) *Resolver {
	r.validate = fn
	return r
}

// Resolve returns the first non-empty value.
func (r *Resolver) Resolve() (*Result, error) {
	for _, p := range r.providers {
		value, source, name, err := p()
		if err != nil {
			return nil, err
		}

		if value == "" {
			continue
		}

		if r.validate != nil {
			if err := r.validate(value); err != nil {
				return nil, fmt.Errorf("invalid %s from %s: %w", r.label, name, err)
			}
		}

		return &Result{Value: value, Source: source, Name: name}, nil
	}

	if r.hint != "" {
		return nil, fmt.Errorf("%w: %s\n\n%s", ErrSecretNotFound, r.label, r.hint)
	}

	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, r.label)
}

// SlackToken checks the token prefix: xoxb- for bot tokens, xoxp- for user
// tokens.
func SlackToken(value string) error {
	if strings.HasPrefix(value, "xoxb-") || strings.HasPrefix(value, "xoxp-") {
		return nil
	}

	return errors.New("expected a token starting with xoxb- or xoxp-")
}
