package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SendCallsHandlersInOrder(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.Connect("rapports", PostSave, func(_ context.Context, v any) { calls = append(calls, "first:"+v.(string)) })
	r.Connect("rapports", PostSave, func(_ context.Context, v any) { calls = append(calls, "second:"+v.(string)) })
	r.Connect("rapports", PostDelete, func(context.Context, any) { calls = append(calls, "delete") })

	r.Send(context.Background(), "rapports", PostSave, "r1")
	assert.Equal(t, []string{"first:r1", "second:r1"}, calls)
}

func TestRegistry_SendIsNamespaceScoped(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Connect("formations", PostSave, func(context.Context, any) { called = true })
	r.Send(context.Background(), "rapports", PostSave, nil)
	assert.False(t, called)
}

func TestRegistry_Signals(t *testing.T) {
	r := NewRegistry()
	r.Connect("rapports", PostSave, func(context.Context, any) {})
	r.Connect("rapports", PostDelete, func(context.Context, any) {})

	assert.Equal(t, []string{"post_delete", "post_save"}, r.Signals("rapports"))
	assert.Empty(t, r.Signals("centres"))
}
