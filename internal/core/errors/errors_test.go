// # internal/core/errors/errors_test.go
package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "package not found")
		assert.Equal(t, "[NOT_FOUND] package not found", err.Error())
	})

	t.Run("Wrap", func(t *testing.T) {
		err := Wrap(errors.New("disk full"), CodeInternal, "save file")
		assert.Equal(t, "[INTERNAL_ERROR] save file: disk full", err.Error())
		assert.True(t, IsCode(err, CodeInternal))
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "empty code")
		assert.True(t, IsCode(err, CodeValidationError))
		assert.False(t, IsCode(err, CodeNotFound))
		assert.False(t, IsCode(errors.New("plain"), CodeInternal))
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := AddContext(New(CodeConflict, "exists"), CtxPath, "/src/main.neko")
		err = AddContext(err, CtxOperation, "create")
		assert.Equal(t, "[CONFLICT] exists {operation=create path=/src/main.neko}", err.Error())
	})

	t.Run("AddContextWrapsPlain", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxRunID, "abc")
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.Equal(t, ErrorCode(""), CodeOf(errors.New("x")))
	})
}
