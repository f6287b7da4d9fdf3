package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestMessagesDropped_CountsByReason(t *testing.T) {
	before := testutil.ToFloat64(MessagesDropped.WithLabelValues(DropSelfEcho))
	MessagesDropped.WithLabelValues(DropSelfEcho).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(MessagesDropped.WithLabelValues(DropSelfEcho)))
}
