package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKindAndCode(t *testing.T) {
	wrapped := ErrBadPassword.Wrap(errors.New("pkcs8: parse error"))
	assert.True(t, errors.Is(wrapped, ErrBadPassword))
	assert.False(t, errors.Is(wrapped, ErrKeysDontMatch))
}

func TestErrorWithDetailPreservesIdentity(t *testing.T) {
	detailed := ErrAlreadySetUp.WithDetail("server reports keys exist")
	assert.True(t, errors.Is(detailed, ErrAlreadySetUp))
	assert.Contains(t, detailed.Error(), "server reports keys exist")
}

func TestAPIErrorIsMatchesAnyCode(t *testing.T) {
	a := &APIError{Code: 2100, Message: "invalid fileid"}
	assert.True(t, errors.Is(a, &APIError{}))
}
