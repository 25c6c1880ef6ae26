package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateInterval_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		wantErr error
	}{
		{"below minimum rejected", 29, ErrIntervalOutOfRange},
		{"minimum accepted", 30, nil},
		{"maximum accepted", 3600, nil},
		{"above maximum rejected", 3601, ErrIntervalOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.seconds)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTimeout_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		millis  int
		wantErr error
	}{
		{"below minimum rejected", 999, ErrTimeoutOutOfRange},
		{"minimum accepted", 1000, nil},
		{"maximum accepted", 60000, nil},
		{"above maximum rejected", 60001, ErrTimeoutOutOfRange},
		{"zero rejected", 0, ErrTimeoutOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimeout(tt.millis)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
