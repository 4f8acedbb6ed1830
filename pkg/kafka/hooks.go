package kafka

import (
    "context"
    "fmt"
    "time"

    applogger "FinCast/pkg/logger"

    "github.com/segmentio/kafka-go"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Hooks can mutate context, message, and payload.
// Returning a non-nil error from BeforeHandle will skip handler execution
// and trigger error processing (OnError, DLQ, and offset commit).
type ConsumerHook interface {
    BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
    AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
    OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

// HookFuncs is an adapter that implements ConsumerHook from plain functions.
// All functions are optional; nil functions are treated as no-ops.
type HookFuncs struct {
    Before func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error)
    After  func(context.Context, string, kafka.Message, []byte, error)
    Err    func(context.Context, string, kafka.Message, []byte, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    if h.Before == nil {
        return ctx, km, data, nil
    }
    return h.Before(ctx, topic, km, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    if h.After != nil {
        h.After(ctx, topic, km, data, err)
    }
}

func (h HookFuncs) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    if h.Err != nil {
        h.Err(ctx, topic, km, data, err)
    }
}

// HookChain composes hooks. BeforeHandle runs in order and threads its results
// through; AfterHandle runs in reverse. A panicking hook is recovered.
type HookChain struct {
    hooks []ConsumerHook
}

// NewHookChain creates a composable hook chain. Nil hooks are ignored.
func NewHookChain(hooks ...ConsumerHook) *HookChain {
    filtered := make([]ConsumerHook, 0, len(hooks))
    for _, h := range hooks {
        if h != nil {
            filtered = append(filtered, h)
        }
    }
    return &HookChain{hooks: filtered}
}

func (c *HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    curCtx, curMsg, curData := ctx, km, data
    for _, h := range c.hooks {
        var (
            nextCtx = curCtx
            nextMsg = curMsg
            nextData = curData
            err     error
        )
        // panic-safe execution
        func() {
            defer func() {
                if r := recover(); r != nil {
                    err = fmt.Errorf("hook panic: %v", r)
                }
            }()
            nextCtx, nextMsg, nextData, err = h.BeforeHandle(curCtx, topic, curMsg, curData)
        }()
        if err != nil {
            // notify error to all hooks
            for _, eh := range c.hooks {
                safeOnError(eh, curCtx, topic, curMsg, curData, err)
            }
            return curCtx, curMsg, curData, err
        }
        curCtx, curMsg, curData = nextCtx, nextMsg, nextData
    }
    return curCtx, curMsg, curData, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    // reverse order for after hooks
    for i := len(c.hooks) - 1; i >= 0; i-- {
        safeAfter(c.hooks[i], ctx, topic, km, data, err)
    }
}

func (c *HookChain) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    for _, h := range c.hooks {
        safeOnError(h, ctx, topic, km, data, err)
    }
}

type ctxKey string

const (
    ctxStartTime ctxKey = "kafka_hook_start_time"
    // CtxTraceID holds the correlation id taken from the trace_id header.
    CtxTraceID ctxKey = "kafka_hook_trace_id"
)

// TraceID returns the trace id stored by LoggingHook, if any.
func TraceID(ctx context.Context) string {
    v, _ := ctx.Value(CtxTraceID).(string)
    return v
}

// ExtractTraceID tries to get trace id from Kafka headers.
func ExtractTraceID(msg kafka.Message) string {
    for _, h := range msg.Headers {
        if h.Key == "trace_id" && len(h.Value) > 0 {
            return string(h.Value)
        }
    }
    return ""
}

// LoggingHook logs every handled message with its offset and duration.
type LoggingHook struct {
    Log *applogger.Logger
}

func (h LoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    ctx = context.WithValue(ctx, ctxStartTime, time.Now())
    if id := ExtractTraceID(km); id != "" {
        ctx = context.WithValue(ctx, CtxTraceID, id)
    }
    return ctx, km, data, nil
}

func (h LoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    fields := []applogger.Field{
        applogger.String("topic", topic),
        applogger.Int("partition", km.Partition),
        applogger.Int64("offset", km.Offset),
    }
    if start, ok := ctx.Value(ctxStartTime).(time.Time); ok {
        fields = append(fields, applogger.Duration("duration", time.Since(start)))
    }
    if id := TraceID(ctx); id != "" {
        fields = append(fields, applogger.String("trace_id", id))
    }
    if err != nil {
        h.Log.Warn("kafka message attempt failed", append(fields, applogger.Error(err))...)
        return
    }
    h.Log.Debug("kafka message handled", fields...)
}

func (LoggingHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

// safeAfter executes AfterHandle and recovers from panic.
func safeAfter(h ConsumerHook, ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    defer func() {
        _ = recover()
    }()
    h.AfterHandle(ctx, topic, km, data, err)
}

// safeOnError executes OnError and recovers from panic.
func safeOnError(h ConsumerHook, ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
    defer func() {
        _ = recover()
    }()
    h.OnError(ctx, topic, km, data, err)
}