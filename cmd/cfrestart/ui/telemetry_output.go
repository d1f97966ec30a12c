package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"cfrestart/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryOutput prints one line per step transition of the operations
// traced through its tracer.
type TelemetryOutput struct {
	provider *sdktrace.TracerProvider
}

func NewTelemetryOutput(w io.Writer) *TelemetryOutput {
	steps := newStepLog(w)
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&stepSpanProcessor{steps: steps}))
	return &TelemetryOutput{provider: provider}
}

func (o *TelemetryOutput) Tracer(name string) trace.Tracer {
	return o.provider.Tracer(name)
}

func (o *TelemetryOutput) Close() {
	if o == nil || o.provider == nil {
		return
	}
	_ = o.provider.Shutdown(context.Background())
}

type stepLog struct {
	mu    sync.Mutex
	w     io.Writer
	steps map[string]stepState
}

func newStepLog(w io.Writer) *stepLog {
	return &stepLog{w: w, steps: make(map[string]stepState)}
}

func (l *stepLog) onPlan(plan telemetry.Plan) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, planned := range plan.Steps {
		id := strings.TrimSpace(planned.ID)
		title := strings.TrimSpace(planned.Title)
		if title == "" {
			title = id
		}
		l.steps[id] = stepState{ID: id, Title: title, Status: stepPending}
	}
}

func (l *stepLog) onStepStart(id string) {
	l.update(id, stepRunning, "")
}

func (l *stepLog) onStepEnd(id string, failed bool, message string) {
	if failed {
		l.update(id, stepFailed, strings.TrimSpace(message))
		return
	}
	l.update(id, stepDone, "")
}

func (l *stepLog) update(id string, status stepStatus, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	step, ok := l.steps[id]
	if !ok {
		step = stepState{ID: id, Title: id}
	}
	if ok && step.Status == status && step.Message == message {
		return
	}
	step.Status = status
	step.Message = message
	l.steps[id] = step
	fmt.Fprintln(l.w, formatStepLine(step))
}

func formatStepLine(step stepState) string {
	prefix := "[..]"
	style := MutedStyle
	switch step.Status {
	case stepRunning:
		prefix, style = "[->]", AccentStyle
	case stepDone:
		prefix, style = "[ok]", SuccessStyle
	case stepFailed:
		prefix, style = "[x]", ErrorStyle
	}

	title := step.Title
	if title == "" {
		title = step.ID
	}
	if step.Message != "" {
		return fmt.Sprintf("  %s %s (%s)", style.Render(prefix), title, step.Message)
	}
	return fmt.Sprintf("  %s %s", style.Render(prefix), title)
}

// stepSpanProcessor reads the plan from root spans and treats each child span
// as a step.
type stepSpanProcessor struct {
	steps *stepLog
}

func (p *stepSpanProcessor) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	if span.Parent().IsValid() {
		p.steps.onStepStart(span.Name())
		return
	}

	planJSON := attributeValue(span.Attributes(), telemetry.PlanJSONKey)
	if strings.TrimSpace(planJSON) == "" {
		return
	}
	var plan telemetry.Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return
	}
	p.steps.onPlan(plan)
}

func (p *stepSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	if !span.Parent().IsValid() {
		return
	}
	status := span.Status()
	p.steps.onStepEnd(span.Name(), status.Code == codes.Error, status.Description)
}

func (p *stepSpanProcessor) Shutdown(context.Context) error { return nil }

func (p *stepSpanProcessor) ForceFlush(context.Context) error { return nil }

func attributeValue(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}
