package plugin

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bolt/types"
)

func constHandler(v any) Handler {
	return func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		return types.Success(v), nil
	}
}

func TestActionRegistry_RegisterAndLookup(t *testing.T) {
	r := NewActionRegistry()

	require.NoError(t, r.Register("b", constHandler(1)))
	require.NoError(t, r.Register("a", constHandler(2)))

	h, ok := r.Lookup("a")
	require.True(t, ok)
	res, err := h(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Data)

	_, ok = r.Lookup("c")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestActionRegistry_Overwrite(t *testing.T) {
	r := NewActionRegistry()
	var replacedFlags []bool
	r.setNotify(func(name string, replaced bool) {
		replacedFlags = append(replacedFlags, replaced)
	})

	require.NoError(t, r.Register("a", constHandler("first")))
	require.NoError(t, r.Register("a", constHandler("second")))

	h, _ := r.Lookup("a")
	res, _ := h(context.Background(), nil, nil)
	assert.Equal(t, "second", res.Data)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []bool{false, true}, replacedFlags)
}

func TestActionRegistry_Invalid(t *testing.T) {
	r := NewActionRegistry()

	assert.Error(t, r.Register("", constHandler(nil)))
	assert.Error(t, r.Register("a", nil))
	assert.Error(t, r.RegisterFunc("a", nil))
	assert.Equal(t, 0, r.Len())
}

func TestActionRegistry_Clear(t *testing.T) {
	r := NewActionRegistry()
	require.NoError(t, r.Register("a", constHandler(nil)))

	r.Clear()

	assert.Empty(t, r.Names())
	assert.False(t, r.Has("a"))
	assert.ErrorIs(t, r.Register("b", constHandler(nil)), ErrRegistryClosed)
}

func TestActionRegistry_ConcurrentLookups(t *testing.T) {
	r := NewActionRegistry()
	require.NoError(t, r.Register("a", constHandler(nil)))
	r.setOpen(false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Lookup("a")
			assert.True(t, ok)
			assert.Equal(t, []string{"a"}, r.Names())
		}()
	}
	wg.Wait()
}
