package perr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(NoSolution, "no path from %s to %s", "s1", "s2")
	assert.Equal(t, NoSolution, err.Kind)
	assert.Equal(t, "no path from s1 to s2", err.Message)
	assert.Equal(t, "no_solution: no path from s1 to s2", err.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil))
}

func TestWrapPassesThroughExistingError(t *testing.T) {
	original := New(BadFilter, "bad uri")
	wrapped := Wrap(original)
	assert.Same(t, original, wrapped)
}

func TestWrapClassifiesPlainErrorAsInternal(t *testing.T) {
	wrapped := Wrap(errors.New("boom"))
	assert.Equal(t, InternalError, wrapped.Kind)
	assert.Equal(t, "boom", wrapped.Message)
}

func TestKindStringCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		BadFilter, UnknownApi, UnableToParse, BadFormat, InvalidProtobufRequest,
		DateOutOfBounds, NoOrigin, NoDestination, NoOriginNorDestination,
		UnknownObject, NoSolution, DeadlineExpired, ServiceUnavailable, InternalError,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert.NotEqual(t, "unknown", s)
		assert.False(t, seen[s], "duplicate Kind.String() value %q", s)
		seen[s] = true
	}
}
