package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHRESULT(t *testing.T) {
	testCases := []struct {
		hr     HRESULT
		name   string
		failed bool
	}{
		{S_FALSE, "S_FALSE", false},
		{AUDCLNT_S_BUFFER_EMPTY, "AUDCLNT_S_BUFFER_EMPTY", false},
		{E_INVALIDARG, "E_INVALIDARG", true},
		{AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED, "AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED", true},
		{HRESULT(0x8889FFFF), "HRESULT 0x8889FFFF", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, tc.hr.Error(), tc.name)
			assert.Equal(t, tc.failed, tc.hr.Failed())
			if tc.failed {
				assert.Equal(t, error(tc.hr), tc.hr.Err())
			} else {
				assert.NoError(t, tc.hr.Err())
			}
		})
	}
}

func TestHRESULTWrapped(t *testing.T) {
	err := fmt.Errorf("IAudioClient::Initialize failed: %w", AUDCLNT_E_DEVICE_IN_USE)

	assert.True(t, errors.Is(err, AUDCLNT_E_DEVICE_IN_USE))
	assert.False(t, errors.Is(err, AUDCLNT_E_NOT_STOPPED))
}
