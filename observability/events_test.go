package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"fusionswap/core/events"
)

func TestEventCounterCountsByType(t *testing.T) {
	before := testutil.ToFloat64(Events().emitted.WithLabelValues("ledger.minted"))
	var emitter events.Emitter = EventCounter{}
	emitter.Emit(events.Mint{Asset: "fsn"})
	emitter.Emit(events.Mint{Asset: "fsn"})
	emitter.Emit(nil)
	require.Equal(t, before+2, testutil.ToFloat64(Events().emitted.WithLabelValues("ledger.minted")))
}
