package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"studysync/internal/domain"
	"studysync/internal/logger"
	"studysync/internal/observability"
)

// ApologyReply is the last-resort answer when a stage fails unexpectedly.
const ApologyReply = "I am having some technical difficulties. The admin has been notified."

// Answer is what the assistant tells the user. Status is OK for normal
// replies, Degraded when retrieval or generation fell back, and Failed when
// the reply is ApologyReply.
type Answer struct {
	Reply  string         `json:"reply"`
	Route  Route          `json:"-"`
	Status domain.Outcome `json:"-"`
}

type Assistant struct {
	router    *Router
	handlers  map[string]FastPathHandler
	retriever *Retriever
	generator *Generator
	log       *logger.Logger
}

func NewAssistant(router *Router, retriever *Retriever, generator *Generator, log *logger.Logger) *Assistant {
	if log == nil {
		log = logger.Nop()
	}
	return &Assistant{
		router:    router,
		handlers:  make(map[string]FastPathHandler),
		retriever: retriever,
		generator: generator,
		log:       log.With("service", "Assistant"),
	}
}

// Handle registers the fast-path handler for an intent.
func (a *Assistant) Handle(intent string, h FastPathHandler) *Assistant {
	a.handlers[intent] = h
	return a
}

// Ask answers a student's message. The only error is ErrInvalidInput for an
// empty message; every other failure is folded into the returned Answer.
func (a *Assistant) Ask(ctx context.Context, message string) (ans Answer, err error) {
	if strings.TrimSpace(message) == "" {
		return Answer{}, fmt.Errorf("%w: no message provided", domain.ErrInvalidInput)
	}
	ctx, span := observability.Tracer().Start(ctx, "assistant.ask")
	defer func() {
		if rec := recover(); rec != nil {
			a.log.Error("assistant panicked", "panic", rec, "stack", string(debug.Stack()))
			ans = a.apologize(ans.Route, fmt.Errorf("panic: %v", rec))
			err = nil
		}
		span.SetAttributes(attribute.String("route", ans.Route.Kind.String()), attribute.String("status", ans.Status.Status.String()))
		observability.EndSpan(span, ans.Status.Err)
	}()

	route := a.router.Route(message)
	ans.Route = route
	if route.Kind == FastPath {
		h, ok := a.handlers[route.Intent]
		if !ok {
			return a.apologize(route, fmt.Errorf("no handler for intent %q", route.Intent)), nil
		}
		reply, err := h.Handle(ctx, message)
		if err != nil {
			return a.apologize(route, err), nil
		}
		return Answer{Reply: reply, Route: route, Status: domain.OK()}, nil
	}

	ret := a.retriever.Retrieve(ctx, message)
	gen := a.generator.Answer(ctx, message, ret.Context)
	status := gen.Outcome
	if status.IsOK() && !ret.Outcome.IsOK() {
		status = ret.Outcome
	}
	a.log.Debug("answered", "retrieval", ret.Outcome.String(), "generation", gen.Outcome.String())
	return Answer{Reply: gen.Reply, Route: route, Status: status}, nil
}

func (a *Assistant) apologize(route Route, err error) Answer {
	a.log.Error("assistant failed", "intent", route.Intent, "error", err)
	return Answer{Reply: ApologyReply, Route: route, Status: domain.Failed("unexpected failure", err)}
}
