package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fako1024/btweight/pkg/miscale"
	"github.com/fako1024/btweight/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "C8:47:8C:11:22:33"

func newTestAPI(t *testing.T, r *mock.Radio) *API {
	t.Helper()

	s, err := miscale.New(
		miscale.WithTargetAddress(testAddr),
		miscale.WithRadio(r),
		miscale.WithScanWindow(100*time.Millisecond),
		miscale.WithCountdownInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return newAPI(s)
}

func getStatus(t *testing.T, api *API) statusResponse {
	t.Helper()

	resp, err := api.router.Test(httptest.NewRequest(http.MethodGet, "/status", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var status statusResponse
	require.NoError(t, json.Unmarshal(body, &status))

	return status
}

func TestStatusIdle(t *testing.T) {
	api := newTestAPI(t, mock.New())

	status := getStatus(t, api)

	assert.Equal(t, "idle", status.State)
	assert.Equal(t, "--.--", status.Weight)
	assert.Equal(t, "ready", status.Text)
}

func TestStartCancelRoundTrip(t *testing.T) {
	api := newTestAPI(t, mock.New())

	resp, err := api.router.Test(httptest.NewRequest(http.MethodPost, "/start", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, "scanning", getStatus(t, api).State)

	// A racing duplicate start is rejected
	resp, err = api.router.Test(httptest.NewRequest(http.MethodPost, "/start", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = api.router.Test(httptest.NewRequest(http.MethodPost, "/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, "idle", getStatus(t, api).State)
}

func TestStatusReflectsCompletedReading(t *testing.T) {
	r := mock.New()
	r.QueueFrame(10*time.Millisecond, mock.WeightFrame(testAddr, miscale.WeightServiceUUID, 72.35, true))
	api := newTestAPI(t, r)

	resp, err := api.router.Test(httptest.NewRequest(http.MethodPost, "/start", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := api.router.Test(httptest.NewRequest(http.MethodGet, "/status", nil))
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		var status statusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return false
		}
		return status.State == "completed"
	}, time.Second, 5*time.Millisecond)

	status := getStatus(t, api)
	assert.Equal(t, "72.35", status.Weight)
	assert.True(t, status.Stable)
}
