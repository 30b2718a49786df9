package ncdb

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notiglow/tests/testutil"
)

func TestDecodePayload(t *testing.T) {
	data := testutil.Payload(t, "com.a.App", "Title", "Sub")

	title, subtitle, err := decodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, "Title", title)
	assert.Equal(t, "Sub", subtitle)
}

func TestDecodePayload_MissingFields(t *testing.T) {
	data := testutil.Payload(t, "com.a.App", "", "")

	title, subtitle, err := decodePayload(data)
	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Empty(t, subtitle)
}

func TestDecodePayload_Failures(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": {0x00, 0x01, 0x02, 0xff},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodePayload(data)
			assert.Error(t, err)
		})
	}
}

func TestDeliveredAt_UsesReferenceEpoch(t *testing.T) {
	got := deliveredAt(sql.NullFloat64{Float64: 86400.5, Valid: true})
	want := time.Date(2001, time.January, 2, 0, 0, 0, 500_000_000, time.UTC)
	assert.True(t, got.Equal(want), "got %s", got)

	assert.True(t, deliveredAt(sql.NullFloat64{}).IsZero())
}
