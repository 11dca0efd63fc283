package mock_test

import (
	"testing"
	"time"

	"github.com/fako1024/btweight/pkg/miscale"
	"github.com/fako1024/btweight/pkg/mock"
	"github.com/fako1024/btweight/pkg/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "C8:47:8C:11:22:33"

func TestWeightFrameDecodes(t *testing.T) {
	adv := mock.WeightFrame(testAddr, miscale.WeightServiceUUID, 72.35, true)

	require.Equal(t, testAddr, adv.Addr)
	data, ok := adv.ServiceData[miscale.WeightServiceUUID]
	require.True(t, ok)

	reading, err := miscale.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "72.35", reading.WeightString())
	assert.True(t, reading.Stable)

	reading, err = miscale.Decode(mock.WeightFrame(testAddr, miscale.WeightServiceUUID, 58.6, false).ServiceData[miscale.WeightServiceUUID])
	require.NoError(t, err)
	assert.Equal(t, "58.60", reading.WeightString())
	assert.False(t, reading.Stable)
}

func TestScanPlayback(t *testing.T) {
	r := mock.New()
	r.QueueFrame(5*time.Millisecond, mock.WeightFrame(testAddr, miscale.WeightServiceUUID, 70, false))
	r.QueueFrame(5*time.Millisecond, mock.WeightFrame(testAddr, miscale.WeightServiceUUID, 71, false))

	advChan := make(chan scale.Advertisement, 8)
	timeoutChan := make(chan struct{}, 1)

	require.NoError(t, r.Scan(scale.ScanOptions{Timeout: 50 * time.Millisecond},
		func(adv scale.Advertisement) { advChan <- adv },
		func() { timeoutChan <- struct{}{} },
	))

	for i := 0; i < 2; i++ {
		select {
		case <-advChan:
		case <-time.After(time.Second):
			t.Fatalf("frame %d not delivered", i)
		}
	}

	select {
	case <-timeoutChan:
	case <-time.After(time.Second):
		t.Fatal("scan timeout not delivered")
	}
}

func TestStopScanSuppressesTimeout(t *testing.T) {
	r := mock.New()

	timeoutChan := make(chan struct{}, 1)
	require.NoError(t, r.Scan(scale.ScanOptions{Timeout: 30 * time.Millisecond},
		func(adv scale.Advertisement) {},
		func() { timeoutChan <- struct{}{} },
	))

	require.NoError(t, r.StopScan())
	require.NoError(t, r.StopScan())

	select {
	case <-timeoutChan:
		t.Fatal("timeout delivered after stop")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, 2, r.StopScanCalls())
}
