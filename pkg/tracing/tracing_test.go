package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabled(t *testing.T) {
	tracer, closer, err := InitTracer(Config{})
	require.NoError(t, err)
	defer closer()
	assert.IsType(t, opentracing.NoopTracer{}, tracer)

	span, _ := StartSpan(context.Background(), "op")
	assert.Empty(t, TraceID(span))
	Finish(span, nil)
}

func TestFinishTagsErrors(t *testing.T) {
	mt := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(mt)
	defer opentracing.SetGlobalTracer(prev)

	parent, ctx := StartSpan(context.Background(), "parent")
	child, _ := StartSpan(ctx, "child")
	Finish(child, errors.New("boom"))
	Finish(parent, nil)

	spans := mt.FinishedSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "child", spans[0].OperationName)
	assert.Equal(t, true, spans[0].Tag("error"))
	assert.Equal(t, "boom", spans[0].Tag("error.message"))
	assert.Equal(t, spans[1].SpanContext.SpanID, spans[0].ParentID)
	assert.Nil(t, spans[1].Tag("error"))
}
