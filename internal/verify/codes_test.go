package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueProducesSixDigits(t *testing.T) {
	c := NewCodes(10 * time.Minute)
	for i := 0; i < 50; i++ {
		code, err := c.Issue("+5211234567")
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in code %q", code)
		}
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	c := NewCodes(10 * time.Minute)
	code, err := c.Issue("+521")
	require.NoError(t, err)

	assert.True(t, c.Consume("+521", code))
	assert.False(t, c.Consume("+521", code), "code must not be replayable")
}

func TestConsumeWrongCodeKeepsEntry(t *testing.T) {
	c := NewCodes(10 * time.Minute)
	code, err := c.Issue("+521")
	require.NoError(t, err)

	assert.False(t, c.Consume("+521", "000000"))
	assert.True(t, c.Consume("+521", code), "a failed attempt must not burn the code")
}

func TestConsumeUnknownPhone(t *testing.T) {
	c := NewCodes(10 * time.Minute)
	assert.False(t, c.Consume("+999", "123456"))
}

func TestCodeExpires(t *testing.T) {
	c := NewCodes(10 * time.Minute)
	code, err := c.Issue("+521")
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.False(t, c.Consume("+521", code))
}

func TestReissueReplacesCode(t *testing.T) {
	c := NewCodes(10 * time.Minute)
	first, err := c.Issue("+521")
	require.NoError(t, err)
	second, err := c.Issue("+521")
	require.NoError(t, err)

	if first != second {
		assert.False(t, c.Consume("+521", first))
	}
	assert.True(t, c.Consume("+521", second))
}
