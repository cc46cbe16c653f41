package wasapi_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gen2brain/wasapi"
)

func TestFormatError(t *testing.T) {
	requested := wasapi.NewWaveFormat(24, 24, wasapi.SampleTypeInt, 96000, 2)
	nearest := wasapi.NewWaveFormat(32, 32, wasapi.SampleTypeFloat, 48000, 2)

	err := error(&wasapi.FormatError{Requested: requested, Nearest: &nearest, Err: wasapi.AUDCLNT_E_UNSUPPORTED_FORMAT})
	assert.ErrorIs(t, err, wasapi.ErrUnsupportedFormat)
	assert.ErrorIs(t, err, wasapi.AUDCLNT_E_UNSUPPORTED_FORMAT)
	assert.Contains(t, err.Error(), "nearest match")
	assert.Contains(t, err.Error(), "96000")
}

func TestModeCombinationErrors(t *testing.T) {
	for _, err := range []error{
		wasapi.ErrLoopbackWithExclusiveMode,
		wasapi.ErrRenderToCaptureDevice,
		wasapi.ErrAutoConvertInExclusiveMode,
	} {
		assert.True(t, errors.Is(err, wasapi.ErrInvalidModeCombination), err.Error())
	}
	assert.False(t, errors.Is(wasapi.ErrLoopbackWithExclusiveMode, wasapi.ErrRenderToCaptureDevice))
}

func TestDataLengthError(t *testing.T) {
	err := error(&wasapi.DataLengthError{Kind: wasapi.ErrDataLengthMismatch, Received: 7, Expected: 8})

	assert.ErrorIs(t, err, wasapi.ErrDataLengthMismatch)
	assert.NotErrorIs(t, err, wasapi.ErrDataLengthTooShort)
	assert.Equal(t, "data length mismatch: received 7, expected 8", err.Error())
}
