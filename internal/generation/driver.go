package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"testimonials/internal/logger"
	"testimonials/internal/metrics"
)

// ErrExhausted matches every *ExhaustedError via errors.Is.
var ErrExhausted = errors.New("all generation candidates failed")

// Params are the sampling settings sent with every call.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	TopK        int
}

// DefaultParams favour varied phrasing; repeated runs should not read as templated.
var DefaultParams = Params{
	MaxTokens:   200,
	Temperature: 0.9,
	TopP:        0.95,
	TopK:        40,
}

// Backend is implemented by each provider adapter.
type Backend interface {
	Generate(ctx context.Context, model, prompt string, params Params) Result
}

// Options control retry and pacing inside one Generate call.
type Options struct {
	Params           Params
	CallTimeout      time.Duration
	RateLimitBackoff time.Duration
	RateLimitRetries int
	ErrorDelay       time.Duration
}

// DefaultOptions mirror the config defaults.
var DefaultOptions = Options{
	Params:           DefaultParams,
	CallTimeout:      45 * time.Second,
	RateLimitBackoff: 4 * time.Second,
	RateLimitRetries: 2,
	ErrorDelay:       2 * time.Second,
}

// Attempt summarises everything tried against one candidate.
type Attempt struct {
	Candidate  Candidate `json:"candidate"`
	Kind       Kind      `json:"outcome"`
	StatusCode int       `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	Tries      int       `json:"tries"`
}

// Generation is a successful result.
type Generation struct {
	Text      string
	Candidate Candidate
	Attempts  []Attempt
}

// ExhaustedError is returned when no candidate produced usable text. It holds
// one Attempt per candidate tried, in order.
type ExhaustedError struct {
	Attempts []Attempt
	// Err is set when the caller's context ended the run early.
	Err error
}

func (e *ExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation stopped after %d candidates: %v", len(e.Attempts), e.Err)
	}
	if len(e.Attempts) == 0 {
		return "no generation candidates available"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("all %d candidates failed, last %s: %s (%d) %s",
		len(e.Attempts), last.Candidate, last.Kind, last.StatusCode, last.Message)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Driver walks the candidate list until one backend returns usable text.
type Driver struct {
	backends map[string]Backend
	resolver Resolver
	opts     Options
	logger   *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewDriver(backends map[string]Backend, resolver Resolver, opts Options, log *logger.Logger) *Driver {
	if opts.RateLimitRetries < 1 {
		opts.RateLimitRetries = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Driver{
		backends: backends,
		resolver: resolver,
		opts:     opts,
		logger:   log,
		sleep:    sleepContext,
	}
}

// Candidates exposes the resolver's current list.
func (d *Driver) Candidates(ctx context.Context) []Candidate {
	return d.resolver.Resolve(ctx)
}

// Generate renders the prompt and tries candidates in resolver order.
//
// A rate-limited candidate is retried after RateLimitBackoff until it has been
// tried RateLimitRetries times. Not-found candidates are skipped at once; any
// other failure waits ErrorDelay before the next candidate. No wait follows
// the final candidate.
func (d *Driver) Generate(ctx context.Context, req Request) (*Generation, error) {
	prompt := BuildPrompt(req)
	candidates := d.resolver.Resolve(ctx)
	attempts := make([]Attempt, 0, len(candidates))

	for i, candidate := range candidates {
		attempt := Attempt{Candidate: candidate}

		for try := 1; ; try++ {
			attempt.Tries = try

			start := time.Now()
			res := d.call(ctx, candidate, prompt)
			if res.Kind == KindSuccess {
				text := Normalize(res.Text)
				if Usable(text) {
					metrics.ObserveAttempt(candidate.Backend, candidate.Model, KindSuccess.String(), time.Since(start))
					attempt.Kind = KindSuccess
					attempt.StatusCode = res.StatusCode
					attempts = append(attempts, attempt)
					d.logger.Info("testimonial generated by %s after %d candidates", candidate, i+1)
					return &Generation{Text: text, Candidate: candidate, Attempts: attempts}, nil
				}
				res = Failed(res.StatusCode, fmt.Sprintf("response too short after normalization (%q)", text))
			}
			metrics.ObserveAttempt(candidate.Backend, candidate.Model, res.Kind.String(), time.Since(start))

			attempt.Kind = res.Kind
			attempt.StatusCode = res.StatusCode
			attempt.Message = res.Message
			d.logger.Warn("candidate %s try %d: %s (%d) %s", candidate, try, res.Kind, res.StatusCode, res.Message)

			if err := ctx.Err(); err != nil {
				return nil, &ExhaustedError{Attempts: append(attempts, attempt), Err: err}
			}
			if res.Kind != KindRateLimited || try >= d.opts.RateLimitRetries {
				break
			}
			if err := d.sleep(ctx, d.opts.RateLimitBackoff); err != nil {
				return nil, &ExhaustedError{Attempts: append(attempts, attempt), Err: err}
			}
		}

		attempts = append(attempts, attempt)
		if i == len(candidates)-1 {
			break
		}

		var wait time.Duration
		switch attempt.Kind {
		case KindRateLimited:
			wait = d.opts.RateLimitBackoff
		case KindError:
			wait = d.opts.ErrorDelay
		}
		if wait > 0 {
			if err := d.sleep(ctx, wait); err != nil {
				return nil, &ExhaustedError{Attempts: attempts, Err: err}
			}
		}
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// call isolates one backend call: missing adapters, panics and timeouts all
// become Results.
func (d *Driver) call(ctx context.Context, candidate Candidate, prompt string) (res Result) {
	backend, ok := d.backends[candidate.Backend]
	if !ok || backend == nil {
		return NotFound(0, fmt.Sprintf("backend %q is not configured", candidate.Backend))
	}

	callCtx := ctx
	if d.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.opts.CallTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = Failed(0, fmt.Sprintf("backend panic: %v", r))
		}
	}()

	res = backend.Generate(callCtx, candidate.Model, prompt, d.opts.Params)
	if res.Kind != KindSuccess && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		res = Failed(res.StatusCode, fmt.Sprintf("timed out after %s", d.opts.CallTimeout))
	}
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
