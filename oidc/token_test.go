// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tk := Tokens{
		AccessToken: "at_secret",
		IDToken:     "eyJ.secret.sig",
		Expiry:      time.Now(),
	}
	s := fmt.Sprintf("%v %s", tk.AccessToken, tk.IDToken)
	assert.Equal(RedactedAccessToken+" "+RedactedIDToken, s)

	b, err := json.Marshal(tk)
	require.NoError(err)
	assert.NotContains(string(b), "secret")

	b, err = json.Marshal(RefreshToken("rt_secret"))
	require.NoError(err)
	assert.Equal(`"`+RedactedRefreshToken+`"`, string(b))
	assert.Equal(RedactedRefreshToken, RefreshToken("rt_secret").String())
}

func TestHandle_String(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("oidc session: none", handle{}.String())

	h := handle{
		accessToken:  "at_secret",
		refreshToken: "rt_secret",
		subject:      "alice",
		expiry:       time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	assert.Equal("oidc session: subject=alice expiry=2030-01-02T03:04:05Z", h.String())
	assert.NotContains(fmt.Sprintf("%v", h), "secret")
}

func TestExpired(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	now := time.Now()
	assert.False(expired(time.Time{}, now))
	assert.False(expired(now.Add(time.Minute), now))
	assert.True(expired(now, now))
	assert.True(expired(now.Add(-time.Minute), now))
}
