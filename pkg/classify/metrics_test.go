package classify_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/classify"
	"github.com/undertaker-go/blockdefect/pkg/sat"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, classify.RegisterMetrics(reg))
	require.NoError(t, classify.RegisterMetrics(reg))
}

func TestRegisterMetricsOnASecondRegistryAlsoSucceeds(t *testing.T) {
	require.NoError(t, classify.RegisterMetrics(prometheus.NewRegistry()))
	require.NoError(t, classify.RegisterMetrics(prometheus.NewRegistry()))
}

func TestClassifyBlockIncrementsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, classify.RegisterMetrics(reg))

	before, err := reg.Gather()
	require.NoError(t, err)
	beforeCount := countMetric(before, "blockdefect_blocks_analyzed_total")

	f := block.NewFile("dead_code.c", block.Options{})
	b1 := f.OpenIf("0", false, 1, 1)
	f.CloseIf(3, 7)
	f.LateConstructAll()

	adapter := sat.NewAdapter()
	_, err = classify.ClassifyBlock(context.Background(), adapter, f, b1, nil, nil, nil)
	require.NoError(t, err)

	after, err := reg.Gather()
	require.NoError(t, err)
	afterCount := countMetric(after, "blockdefect_blocks_analyzed_total")

	require.Equal(t, beforeCount+1, afterCount)
}

func countMetric(families []*dto.MetricFamily, name string) float64 {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, m := range fam.Metric {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
		return total
	}
	return 0
}
