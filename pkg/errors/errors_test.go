package errors

import (
	stderr "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := New("not found")
	cause := stderr.New("404")

	wrapped := sentinel.Wrap(cause)
	require.True(t, Is(wrapped, sentinel))
	require.True(t, Is(wrapped, cause))
	assert.Equal(t, "not found: 404", wrapped.Error())

	// the sentinel itself is untouched
	assert.Equal(t, "not found", sentinel.Error())
	assert.Nil(t, sentinel.Unwrap())

	rewrapped := wrapped.Wrapf("key %s", "abc")
	assert.True(t, Is(rewrapped, sentinel))
	assert.Equal(t, "not found: key abc", rewrapped.Error())
}

func TestWrapConcurrently(t *testing.T) {
	sentinel := New("transfer failed")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sentinel.Wrap(stderr.New("boom"))
			assert.True(t, Is(err, sentinel))
		}()
	}
	wg.Wait()
	assert.Equal(t, "transfer failed", sentinel.Error())
}

func TestAs(t *testing.T) {
	var target *Error
	err := New("outer").Wrap(stderr.New("inner"))
	require.True(t, As(err, &target))
	assert.Equal(t, "outer: inner", target.Error())
}
