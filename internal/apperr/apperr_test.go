package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidParameter: http.StatusBadRequest,
		KindUnauthorized:     http.StatusUnauthorized,
		KindForbidden:        http.StatusForbidden,
		KindNotFound:         http.StatusNotFound,
		KindConflict:         http.StatusConflict,
		KindUnexpected:       http.StatusInternalServerError,
		Kind("other"):        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(kind), kind)
	}
}

func TestAs_WrappedAndPlain(t *testing.T) {
	wrapped := fmt.Errorf("updating device: %w", Conflict("name", MsgDuplicateDeviceName))
	ae := As(wrapped)
	assert.Equal(t, KindConflict, ae.Kind)
	assert.Equal(t, "name", ae.Field)

	plain := errors.New("boom")
	ae = As(plain)
	assert.Equal(t, KindUnexpected, ae.Kind)
	assert.ErrorIs(t, ae, plain)
	assert.Equal(t, MsgSomethingWentWrong, ae.Message)
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Unexpected(MsgNoDatabaseConnection, cause)
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.Equal(t, KindUnexpected, KindOf(err))

	assert.Equal(t, "NotFound: The device (abcd1234) was not found", NotFound(MsgDeviceNotFound("abcd1234")).Error())
}
