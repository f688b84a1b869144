// Package assistant coordinates the question pipeline: evidence assembly,
// the clarification gate, the completion call, and the conversation
// history.
package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"goutgle/internal/backend"
	"goutgle/internal/cache"
	"goutgle/internal/clarify"
	"goutgle/internal/config"
	"goutgle/internal/evidence"
	"goutgle/internal/media"
	"goutgle/internal/session"
)

// ErrClarificationPending is returned when a new question arrives while a
// clarification loop is still waiting for answers.
var ErrClarificationPending = errors.New("termine d'abord la clarification en cours")

// chatTemperature is the sampling temperature for answer completions.
const chatTemperature = 0.7

// Completer is the LLM completion service.
type Completer interface {
	Complete(ctx context.Context, messages []session.Message, temperature float64) (string, error)
}

// ModelLister is implemented by completion backends that can enumerate
// the locally available Ollama models.
type ModelLister interface {
	ListOllamaModels(ctx context.Context) ([]backend.OllamaModel, error)
}

// Request is one user action: either a new question or answers to the
// pending clarification questions.
type Request struct {
	Question string
	UseWeb   bool
	Media    *media.File
	Answers  []string
}

// Reply is the pipeline outcome. A non-empty Questions slice means the
// assistant needs clarification before it will answer.
type Reply struct {
	Text      string
	Questions []string
	Warnings  []string
}

// Assistant owns one conversation and runs one pipeline at a time.
type Assistant struct {
	cfg       config.Config
	assembler *evidence.Assembler
	completer Completer
	cache     *cache.Store
	sess      *session.Session
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter

	mu              sync.Mutex
	pending         *clarify.State
	pendingBundle   evidence.Bundle
	pendingQuestion string
}

// New creates an Assistant with a fresh persona-anchored session. tracer
// and meter may be nil; the global providers are used instead.
func New(cfg config.Config, assembler *evidence.Assembler, completer Completer,
	store *cache.Store, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("goutgle")
	}
	if meter == nil {
		meter = otel.Meter("goutgle")
	}
	return &Assistant{
		cfg:       cfg,
		assembler: assembler,
		completer: completer,
		cache:     store,
		sess:      session.New(config.Persona),
		logger:    logger,
		tracer:    tracer,
		meter:     meter,
	}
}

// Session exposes the conversation for display.
func (a *Assistant) Session() *session.Session { return a.sess }

// Pending returns the unanswered clarification questions, if any.
func (a *Assistant) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return nil
	}
	return a.pending.Remaining()
}

// Reset restores the session to the single persona message and drops any
// pending clarification.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sess.Reset()
	a.clearPending()
	a.logger.Info("conversation reset", "session_id", a.sess.ID)
}

func (a *Assistant) clearPending() {
	a.pending = nil
	a.pendingBundle = evidence.Bundle{}
	a.pendingQuestion = ""
}

// Handle runs one pipeline cycle to completion. Runs against the same
// assistant are serialized; there is no cancel-and-replace.
func (a *Assistant) Handle(ctx context.Context, req Request) (Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, span := a.tracer.Start(ctx, "handle_request")
	defer span.End()

	if counter, err := a.meter.Int64Counter("assistant.requests",
		metric.WithDescription("User actions handled")); err == nil {
		counter.Add(ctx, 1)
	}

	if a.pending != nil {
		if len(req.Answers) == 0 {
			return Reply{}, ErrClarificationPending
		}
		return a.finalize(ctx, req.Answers)
	}

	bundle, warnings := a.assembler.Assemble(ctx, req.Question, req.UseWeb, req.Media)

	// Clarification gate: a detected wine label missing required fields
	// blocks the answer until the follow-up questions are resolved. No
	// preliminary completion happens.
	if bundle.LabelText != "" {
		if questions := clarify.Missing(bundle.LabelText); len(questions) > 0 {
			a.pending = clarify.NewState(questions)
			a.pendingBundle = bundle
			a.pendingQuestion = req.Question
			a.logger.Info("clarification requested", "questions", len(questions))
			return Reply{Questions: questions, Warnings: warnings}, nil
		}
	}

	reply, err := a.complete(ctx, bundle.Render(req.Question), req.Media)
	if err != nil {
		return Reply{Warnings: warnings}, err
	}
	reply.Warnings = warnings
	return reply, nil
}

// finalize merges answers into the pending state and, once every question
// is answered, runs the single finalize completion. A failed completion
// keeps the pending state so the caller can retry.
func (a *Assistant) finalize(ctx context.Context, answers []string) (Reply, error) {
	idx := 0
	for i := range a.pending.Questions {
		if _, ok := a.pending.Answers[i]; ok {
			continue
		}
		if idx >= len(answers) {
			break
		}
		a.pending.Answer(i, answers[idx])
		idx++
	}

	if a.pending.Phase() != clarify.ReadyToFinalize {
		return Reply{Questions: a.pending.Remaining()}, nil
	}

	prompt := a.pendingBundle.RenderFinal(a.pendingQuestion, a.pending.Transcript())
	reply, err := a.complete(ctx, prompt, nil)
	if err != nil {
		return Reply{}, err
	}

	a.clearPending()
	return reply, nil
}

// complete appends the evidence-augmented user turn, obtains the assistant
// reply (cache first, then the provider), and appends it. On provider
// failure the session is rolled back to its pre-call state.
func (a *Assistant) complete(ctx context.Context, prompt string, file *media.File) (Reply, error) {
	mark := a.sess.Len()

	if file != nil && file.IsImage() {
		dataURI := fmt.Sprintf("data:%s;base64,%s",
			file.MIMEType(), base64.StdEncoding.EncodeToString(file.Data))
		a.sess.AppendUserParts([]session.ContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: dataURI},
		})
	} else {
		a.sess.AppendUser(prompt)
	}

	messages := a.sess.Messages()
	key := cache.GenerateKey(messages)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			a.sess.AppendAssistant(cached)
			return Reply{Text: cached}, nil
		}
	}

	text, err := a.completer.Complete(ctx, messages, chatTemperature)
	if err != nil {
		a.sess.Truncate(mark)
		a.logger.Error("completion failed", "error", err)
		return Reply{}, err
	}

	if a.cache != nil {
		a.cache.Put(key, text)
	}
	a.sess.AppendAssistant(text)
	return Reply{Text: text}, nil
}
