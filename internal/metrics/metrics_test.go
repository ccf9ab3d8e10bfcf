package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

type failingRegisterer struct{ prometheus.Registerer }

func (failingRegisterer) Register(prometheus.Collector) error { return errors.New("boom") }

func TestRegister_Error(t *testing.T) {
	assert.EqualError(t, Register(failingRegisterer{}), "boom")
}

func TestTableOps(t *testing.T) {
	before := testutil.ToFloat64(TableOps.WithLabelValues("x_Media", "insert", "ok"))
	TableOps.WithLabelValues("x_Media", "insert", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TableOps.WithLabelValues("x_Media", "insert", "ok")))
}
