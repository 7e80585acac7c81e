// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("DAYMARK_T_INT", "42")
	t.Setenv("DAYMARK_T_BAD_INT", "forty")
	t.Setenv("DAYMARK_T_DUR", "90s")
	t.Setenv("DAYMARK_T_BOOL", "YES")
	t.Setenv("DAYMARK_T_FLOAT", "0.25")
	t.Setenv("DAYMARK_T_EMPTY", "")

	assert.Equal(t, 42, ParseInt("DAYMARK_T_INT", 1))
	assert.Equal(t, 1, ParseInt("DAYMARK_T_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, ParseDuration("DAYMARK_T_DUR", time.Second))
	assert.True(t, ParseBool("DAYMARK_T_BOOL", false))
	assert.Equal(t, 0.25, ParseFloat("DAYMARK_T_FLOAT", 1))
	assert.Equal(t, "fallback", ParseString("DAYMARK_T_EMPTY", "fallback"))
	assert.Equal(t, "fallback", ParseString("DAYMARK_T_UNSET", "fallback"))
	assert.Equal(t, []string{"a"}, ParseList("DAYMARK_T_EMPTY", []string{"a"}))
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, isSensitive("DAYMARK_AUTH_SECRET"))
	assert.True(t, isSensitive("DAYMARK_REDIS_PASSWORD"))
	assert.True(t, isSensitive("DAYMARK_WEATHER_API_KEY"))
	assert.False(t, isSensitive("DAYMARK_LISTEN"))
}
