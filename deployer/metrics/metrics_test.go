package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics("test")
	m.RecordDeployment("LendingPool")
	m.RecordDeployment("LendingPool")
	m.RecordTransaction("batchInitReserve")
	m.RecordRevert("reserves")
	m.RecordStage("libraries", 250*time.Millisecond)
	m.RecordPhase(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.deployments.WithLabelValues("LendingPool")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.reverts.WithLabelValues("reserves")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.phase))

	path := filepath.Join(t.TempDir(), "deployer.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `wv_deployer_test_deployments_total{contract="LendingPool"} 2`)
	require.Contains(t, string(data), "wv_deployer_test_stage_duration_seconds_count")
}
