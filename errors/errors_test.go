package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyncErrorBasics(t *testing.T) {
	err := errors.New("base error")
	se := &SyncError{
		Op:      "Get",
		Key:     "review/42",
		Err:     err,
		ErrType: ErrorTypeStore,
	}
	require.Contains(t, se.Error(), "Get")
	require.Contains(t, se.Error(), "review/42")
	require.Contains(t, se.Error(), "base error")
	require.Equal(t, err, se.Unwrap())

	se2 := &SyncError{
		Op:      "Get",
		Key:     "review/42",
		Err:     err,
		ErrType: ErrorTypeStore,
	}
	require.True(t, se.Is(se2))
}

func TestWrapErrorAndTypeChecks(t *testing.T) {
	ResetErrorMetrics()
	wrapped := WrapError("Get", "bar", ErrKeyNotFound)
	require.Error(t, wrapped)
	se := GetSyncError(wrapped)
	require.NotNil(t, se)
	require.Equal(t, ErrorTypeStore, se.ErrType)
	require.Equal(t, "Get", se.Op)
	require.Equal(t, "bar", se.Key)
	require.True(t, errors.Is(wrapped, ErrKeyNotFound))

	require.True(t, IsSyncError(wrapped))
	require.True(t, IsErrorType(wrapped, ErrorTypeStore))
	require.True(t, IsKeyNotFound(wrapped))
}

func TestWrapErrorNil(t *testing.T) {
	require.NoError(t, WrapError("Get", "key", nil))
}

func TestClassificationHelpers(t *testing.T) {
	require.True(t, IsNetwork(WrapError("Mutate", nil, ErrNetwork)))
	require.True(t, IsNetwork(WrapError("Mutate", nil, ErrServer)))
	require.False(t, IsNetwork(WrapError("Mutate", nil, ErrConflict)))

	require.True(t, IsConflict(WrapError("Mutate", nil, ErrConflict)))
	require.True(t, IsConflict(WrapError("Mutate", nil,
		fmt.Errorf("%w: book already in library", ErrConflict))))

	require.True(t, IsValidation(WrapError("Validate", nil, ErrEmptyComment)))
	require.True(t, IsValidation(WrapError("Validate", nil, ErrInvalidRating)))
	require.True(t, IsStoreClosed(WrapError("Subscribe", nil, ErrStoreClosed)))
	require.True(t, IsContextCanceled(WrapError("Resolve", nil, ErrContextCanceled)))
}

func TestErrorMetrics(t *testing.T) {
	ResetErrorMetrics()
	_ = WrapError("Get", "k", ErrKeyNotFound)
	_ = WrapError("Mutate", "k", ErrNetwork)
	_ = WrapError("Validate", "k", ErrEmptyComment)
	_ = WrapError("Mutate", "k", fmt.Errorf("mutation coordination failed"))

	m := GetErrorMetrics()
	require.Equal(t, int64(1), m.StoreErrors.Load())
	require.Equal(t, int64(1), m.RemoteErrors.Load())
	require.Equal(t, int64(1), m.ValidationErrors.Load())
	require.Equal(t, int64(1), m.MutationErrors.Load())
}
