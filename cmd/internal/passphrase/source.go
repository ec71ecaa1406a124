package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrMismatch = errors.New("passphrases do not match")

// Source resolves a keystore passphrase once, from the environment or an
// interactive prompt, and caches the result.
type Source struct {
	envVar  string
	label   string
	confirm bool
	prompt  io.Writer
	read    func() (string, bool, error)

	once  sync.Once
	value string
	err   error
}

// Option customises a Source.
type Option func(*Source)

// WithLabel names the secret in prompts and errors.
func WithLabel(label string) Option {
	return func(s *Source) {
		if strings.TrimSpace(label) != "" {
			s.label = label
		}
	}
}

// WithConfirm asks twice when prompting. Used when a new keystore is sealed.
func WithConfirm() Option {
	return func(s *Source) { s.confirm = true }
}

func NewSource(envVar string, opts ...Option) *Source {
	s := &Source{
		envVar: strings.TrimSpace(envVar),
		label:  "keystore passphrase",
		prompt: os.Stderr,
		read:   readTerminal,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the passphrase, resolving it on the first call.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if value, ok, err := s.fromEnv(); ok || err != nil {
			s.value, s.err = value, err
			return
		}
		s.value, s.err = s.fromPrompt()
	})
	return s.value, s.err
}

func (s *Source) fromEnv() (string, bool, error) {
	if s.envVar == "" {
		return "", false, nil
	}
	value, ok := os.LookupEnv(s.envVar)
	if !ok {
		return "", false, nil
	}
	if strings.TrimSpace(value) == "" {
		return "", false, fmt.Errorf("%s is set but empty", s.envVar)
	}
	return value, true, nil
}

func (s *Source) fromPrompt() (string, error) {
	first, err := s.ask("Enter " + s.label + ": ")
	if err != nil {
		return "", err
	}
	if !s.confirm {
		return first, nil
	}
	second, err := s.ask("Repeat " + s.label + ": ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrMismatch
	}
	return first, nil
}

func (s *Source) ask(prompt string) (string, error) {
	fmt.Fprint(s.prompt, prompt)
	value, interactive, err := s.read()
	fmt.Fprintln(s.prompt)
	if !interactive {
		if s.envVar != "" {
			return "", fmt.Errorf("%s required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s required and no terminal available", s.label)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.label, err)
	}
	if strings.TrimSpace(value) == "" {
		return "", errors.New(s.label + " cannot be empty")
	}
	return value, nil
}

func readTerminal() (string, bool, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", false, nil
	}
	raw, err := term.ReadPassword(fd)
	return string(raw), true, err
}
