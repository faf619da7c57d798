package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"0",
		"1.2.3",
		"v1.2.3",
		"1.2.3-r4",
		"1.2.3-rc.1",
		"1.2.3+build.7",
		"2024.1_beta2",
	}
	for _, v := range valid {
		t.Run(v, func(t *testing.T) {
			assert.NoError(t, Validate(v))
		})
	}

	invalid := []string{
		"",
		"abc",
		"1.2.3 beta",
		"-r4",
	}
	for _, v := range invalid {
		t.Run(v, func(t *testing.T) {
			assert.ErrorIs(t, Validate(v), ErrInvalidVersion)
		})
	}
}
