// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prefix  string
		wantLen int
	}{
		{
			name:    "valid",
			prefix:  "eff",
			wantLen: Length + len("eff_"),
		},
		{
			name:    "no-prefix",
			prefix:  "",
			wantLen: Length,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := New(tt.prefix)
			require.NoError(err)
			if tt.prefix != "" {
				assert.Truef(strings.HasPrefix(got, tt.prefix+"_"), "New() = %v, wanted it to start with %v", got, tt.prefix)
			}
			assert.Lenf(got, tt.wantLen, "New() = %v, with len of %d and wanted len of %v", got, len(got), tt.wantLen)
			assert.NotContains(strings.TrimPrefix(got, tt.prefix+"_"), "-")
		})
	}
	t.Run("unique", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		a, err := New("")
		require.NoError(err)
		b, err := New("")
		require.NoError(err)
		require.NotEqual(a, b)
	})
}
