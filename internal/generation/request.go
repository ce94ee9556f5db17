package generation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySubject is returned by NewRequest when the product name is blank.
var ErrEmptySubject = errors.New("subject name is required")

// Request is the input for one testimonial. Build it with NewRequest.
type Request struct {
	SubjectName        string
	SubjectDescription string
}

// NewRequest trims both fields and rejects an empty name. The description is
// expected to be plain text already.
func NewRequest(name, description string) (Request, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Request{}, ErrEmptySubject
	}
	return Request{
		SubjectName:        name,
		SubjectDescription: strings.TrimSpace(description),
	}, nil
}

// Candidate names one backend/model pair to try.
type Candidate struct {
	Backend string `json:"backend"`
	Model   string `json:"model"`
}

func (c Candidate) String() string {
	return c.Backend + ":" + c.Model
}

// ParseCandidate reads "backend:model". Only the first colon separates the
// two parts because OpenRouter ids such as "x/y:free" contain one. A value
// without a known backend prefix is assigned to defaultBackend.
func ParseCandidate(s, defaultBackend string) (Candidate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Candidate{}, fmt.Errorf("empty candidate")
	}
	if backend, model, ok := strings.Cut(s, ":"); ok && isKnownBackend(backend) {
		if model == "" {
			return Candidate{}, fmt.Errorf("candidate %q has no model", s)
		}
		return Candidate{Backend: backend, Model: model}, nil
	}
	if defaultBackend == "" {
		return Candidate{}, fmt.Errorf("candidate %q has no backend", s)
	}
	return Candidate{Backend: defaultBackend, Model: s}, nil
}

// Backend names.
const (
	BackendOpenRouter = "openrouter"
	BackendGemini     = "gemini"
)

func isKnownBackend(name string) bool {
	return name == BackendOpenRouter || name == BackendGemini
}
