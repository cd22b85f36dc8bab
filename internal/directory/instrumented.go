package directory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"smp/internal/identifier"
)

var tracer = otel.Tracer("smp/internal/directory")

// Instrumented decorates a Gateway with metrics and tracing.
type Instrumented struct {
	next    Gateway
	metrics *Metrics
}

// NewInstrumented wraps next. A nil metrics disables metric recording.
func NewInstrumented(next Gateway, metrics *Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

func (g *Instrumented) Register(ctx context.Context, p identifier.ParticipantID) error {
	return g.observe(ctx, "register", p, g.next.Register)
}

func (g *Instrumented) Unregister(ctx context.Context, p identifier.ParticipantID) error {
	return g.observe(ctx, "unregister", p, g.next.Unregister)
}

func (g *Instrumented) UndoRegister(ctx context.Context, p identifier.ParticipantID) error {
	return g.observe(ctx, "undo_register", p, g.next.UndoRegister)
}

func (g *Instrumented) UndoUnregister(ctx context.Context, p identifier.ParticipantID) error {
	return g.observe(ctx, "undo_unregister", p, g.next.UndoUnregister)
}

func (g *Instrumented) observe(ctx context.Context, op string, p identifier.ParticipantID,
	call func(context.Context, identifier.ParticipantID) error) error {
	ctx, span := tracer.Start(ctx, "directory."+op)
	defer span.End()
	span.SetAttributes(attribute.String("smp.participant", p.URIEncoded()))

	start := time.Now()
	err := call(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if g.metrics != nil {
		g.metrics.ObserveCall(op, err, time.Since(start))
	}
	return err
}
