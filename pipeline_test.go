package tap

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineRunsStepsInOrder(t *testing.T) {
	var order []string
	record := func(name string) Step {
		return Named(name, func(_ context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	var out bytes.Buffer
	p := New(WithOutput(&out))

	err := p.Execute(context.Background(), record("resolve"), record("fetch"), record("verify"))
	require.NoError(t, err)

	assert.Equal(t, []string{"resolve", "fetch", "verify"}, order)
	assert.Contains(t, out.String(), "all good")
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	failure := Fail("verify", KindIntegrity, "", errors.New("checksum mismatch"))

	var ran []string
	steps := []Step{
		Named("fetch", func(_ context.Context) error { ran = append(ran, "fetch"); return nil }),
		Named("verify", func(_ context.Context) error { ran = append(ran, "verify"); return failure }),
		Named("install", func(_ context.Context) error { ran = append(ran, "install"); return nil }),
	}

	var out bytes.Buffer
	err := New(WithOutput(&out)).Execute(context.Background(), steps...)

	require.Error(t, err)
	assert.Same(t, failure, err)
	assert.True(t, IsKind(err, KindIntegrity))
	assert.Equal(t, []string{"fetch", "verify"}, ran)
	assert.Contains(t, out.String(), "install skipped")
}

func TestPipelineHooks(t *testing.T) {
	t.Run("pre exec failure aborts before any step", func(t *testing.T) {
		called := false
		p := New(
			WithOutput(&bytes.Buffer{}),
			WithPreExecFunc(func(_ context.Context) error { return errors.New("no config") }),
		)

		err := p.Execute(context.Background(), Named("step", func(_ context.Context) error {
			called = true
			return nil
		}))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no config")
		assert.False(t, called)
	})

	t.Run("post exec runs even when a step fails", func(t *testing.T) {
		post := false
		p := New(
			WithOutput(&bytes.Buffer{}),
			WithPostExecFunc(func(_ context.Context) error { post = true; return nil }),
		)

		err := p.Execute(context.Background(), Named("step", func(_ context.Context) error {
			return errors.New("failed")
		}))

		require.Error(t, err)
		assert.True(t, post)
	})
}

func TestPipelineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New(WithOutput(&bytes.Buffer{})).Execute(ctx, Named("step", func(_ context.Context) error {
		called = true
		return nil
	}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
