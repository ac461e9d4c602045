package clanerr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfClassifiesWrappedErrors(t *testing.T) {
	underlying := errors.New("boom")

	assert.Equal(t, KindTransient, KindOf(Transient(underlying)))
	assert.Equal(t, KindValidation, KindOf(Validation(underlying)))
	assert.Equal(t, KindPolicy, KindOf(Policy("bad composition")))
	assert.Equal(t, KindFatal, KindOf(Fatal("invariant-x", underlying)))
}

func TestKindOfDefaultsToFatalForUnclassifiedErrors(t *testing.T) {
	assert.Equal(t, KindFatal, KindOf(errors.New("plain error")))
}

func TestPolicyMessageTruncatedTo2KiB(t *testing.T) {
	long := strings.Repeat("x", maxMessageBytes+500)
	err := Policy(long)
	ce, ok := As(err)
	assert.True(t, ok)
	assert.LessOrEqual(t, len(ce.Message), maxMessageBytes)
}

func TestErrorUnwrap(t *testing.T) {
	underlying := errors.New("root cause")
	err := Transient(underlying)
	assert.True(t, errors.Is(err, underlying))
}
