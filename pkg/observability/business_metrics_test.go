package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRateFallback(t *testing.T) {
	before := testutil.ToFloat64(rateFallbackTotal)
	RecordRateFallback()
	assert.Equal(t, before+1, testutil.ToFloat64(rateFallbackTotal))
}

func TestRecordRateIngestion(t *testing.T) {
	before := testutil.ToFloat64(rateIngestionsTotal.WithLabelValues("success"))
	RecordRateIngestion("success")
	assert.Equal(t, before+1, testutil.ToFloat64(rateIngestionsTotal.WithLabelValues("success")))
}

func TestSetExchangeRate(t *testing.T) {
	SetExchangeRate("VES", 36.5)
	assert.Equal(t, 36.5, testutil.ToFloat64(exchangeRateValue.WithLabelValues("VES")))
}

func TestRecordNotification(t *testing.T) {
	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("duplicate"))
	RecordNotification("duplicate", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(notificationsTotal.WithLabelValues("duplicate")))
}
