package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct{ Text string }

func (echo) Key() string { return "test.echo" }

type other struct{}

func (other) Key() string { return "test.other" }

func TestDispatchTypedResult(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[echo, string](bus, "test.echo", HandlerFunc[echo, string](func(ctx context.Context, cmd echo) (string, error) {
		return cmd.Text + "!", nil
	}))

	got, err := Dispatch[echo, string](context.Background(), bus, echo{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)

	_, err = Dispatch[echo, int](context.Background(), bus, echo{Text: "hi"})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = bus.Dispatch(context.Background(), other{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[echo, string](context.Background(), nil, echo{})
	assert.ErrorIs(t, err, ErrNilBus)
	assert.Equal(t, []string{"test.echo"}, bus.Keys())
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[echo, string](func(ctx context.Context, cmd echo) (string, error) { return "", nil })
	RegisterHandler[echo, string](bus, "test.echo", h)
	assert.Panics(t, func() { RegisterHandler[echo, string](bus, "test.echo", h) })
	assert.Panics(t, func() { bus.RegisterRaw("", nil) })
}
