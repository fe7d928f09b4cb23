package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"svccore/internal/controller"
)

func TestExitCodeFor_NotFoundMapsToDistinctCode(t *testing.T) {
	err := &controller.NotFoundError{Name: "missing"}

	assert.Equal(t, ExitCodeNotFound, exitCodeFor(err))
}

func TestExitCodeFor_OtherErrorsMapToGenericCode(t *testing.T) {
	assert.Equal(t, ExitCodeError, exitCodeFor(errors.New("boom")))
}
