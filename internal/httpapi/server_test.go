package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/bridge"
	"github.com/nukibridge/core/pkg/device"
	"github.com/nukibridge/core/pkg/nukicrypto"
	"github.com/nukibridge/core/pkg/nukiproto"
)

func testBridge(t *testing.T) *bridge.Bridge {
	t.Helper()
	port := bleport.NewFakePort()
	port.AddPeer("AA:BB:CC:DD:EE:FF")

	b := bridge.New(bridge.Config{Identity: bridge.Identity{Name: "test-bridge", AppID: 1}, Port: port})

	pub, priv, err := nukicrypto.GenerateKeypair()
	require.NoError(t, err)
	nukiPub, _, err := nukicrypto.GenerateKeypair()
	require.NoError(t, err)

	_, err = b.RegisterDevice(device.Record{
		Address:          "AA:BB:CC:DD:EE:FF",
		Kind:             nukiproto.DeviceKindSmartLock12,
		NukiPublicKey:    nukiPub,
		BridgePublicKey:  pub,
		BridgePrivateKey: priv,
	})
	require.NoError(t, err)
	return b
}

func TestServer_InfoRequiresToken(t *testing.T) {
	s := New(Config{Token: "secret", Bridge: testBridge(t)})

	req := httptest.NewRequest("GET", "/info", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 403, rec.Code, "expected 403 without a token")

	req = httptest.NewRequest("GET", "/info?token=secret", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, "expected 200 with a valid token: %s", rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "scanResults")
}

func TestServer_HashTokenScheme(t *testing.T) {
	s := New(Config{Token: "secret", Bridge: testBridge(t)})

	ts, rnr := "1000", "42"
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s,%s,%s", ts, rnr, "secret")))
	hash := hex.EncodeToString(sum[:])

	req := httptest.NewRequest("GET", fmt.Sprintf("/info?hash=%s&rnr=%s&ts=%s", hash, rnr, ts), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code, "expected 200 with a valid hash")
}

func TestServer_CallbackAddListRemove(t *testing.T) {
	s := New(Config{Token: "secret", Bridge: testBridge(t)})

	req := httptest.NewRequest("GET", "/callback/add?token=secret&url=http://example.com/hook", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, "callback add: %s", rec.Body.String())

	req = httptest.NewRequest("GET", "/callback/list?token=secret", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var listResp struct {
		Callbacks []struct {
			ID  int    `json:"id"`
			URL string `json:"url"`
		} `json:"callbacks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Callbacks, 1)
	assert.Equal(t, "http://example.com/hook", listResp.Callbacks[0].URL)

	req = httptest.NewRequest("GET", fmt.Sprintf("/callback/remove?token=secret&id=%d", listResp.Callbacks[0].ID), nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code, "callback remove")
}

func TestServer_ListOmitsUnconfiguredDevices(t *testing.T) {
	s := New(Config{Token: "secret", Bridge: testBridge(t)})

	req := httptest.NewRequest("GET", "/list?token=secret", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, "list: %s", rec.Body.String())

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp, "expected no devices to have a config snapshot yet")
}
