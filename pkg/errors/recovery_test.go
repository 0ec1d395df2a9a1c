package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, As(err, &panicErr), "expected PanicError, got %T", err)

	assert.Equal(t, "TestOperation", panicErr.Operation)
	assert.Equal(t, "test panic message", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in TestOperation: test panic message", panicErr.Error())
	assert.Contains(t, panicErr.String(), "Stack trace:")
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	assert.NoError(t, testFunc())
}

func TestRecover_KeepsExistingError(t *testing.T) {
	base := New("stage failed")
	testFunc := func() (err error) {
		defer Recover(&err, "merge")
		err = base
		panic("index out of range")
	}

	err := testFunc()
	require.Error(t, err)
	assert.True(t, Is(err, base))
	assert.Contains(t, err.Error(), "panic in merge")
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	cause := fmt.Errorf("mat: dimension mismatch")
	err := SafeExecute("scale", func() error {
		panic(cause)
	})

	require.Error(t, err)
	assert.True(t, Is(err, cause))
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantErr   bool
		wantPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return New("boom") }, wantErr: true},
		{name: "panic", fn: func() error { panic("kaboom") }, wantErr: true, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var panicErr *PanicError
			assert.Equal(t, tt.wantPanic, As(err, &panicErr))
			if tt.wantPanic {
				assert.True(t, strings.HasPrefix(err.Error(), "panic in op"))
			}
		})
	}
}
