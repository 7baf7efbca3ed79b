// Package httpapi exposes the bridge's Core API over HTTP, implementing the
// Nuki Bridge HTTP API surface the original Python bridge's web_server.py
// serves: /info, /list, /lock, /unlock, /lockAction, /lockState, and the
// /callback/* webhook routes, all gated by the same token check.
package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/logging"

	"github.com/nukibridge/core/pkg/bridge"
	"github.com/nukibridge/core/pkg/nukiproto"
)

// Config configures the HTTP front-end.
type Config struct {
	Token         string
	ServerID      uint32
	Bridge        *bridge.Bridge
	LoggerFactory logging.LoggerFactory
}

// Server is the gin-backed HTTP front-end wrapping a Bridge.
type Server struct {
	token    string
	serverID uint32
	bridge   *bridge.Bridge
	log      logging.LeveledLogger
	start    time.Time

	engine *gin.Engine

	mu        sync.Mutex
	callbacks [3]string // Nuki Bridge supports up to 3 registered callbacks
}

// New builds a Server with its routes registered. The caller runs it via
// Server.Run or by using Handler directly with its own net/http.Server.
func New(cfg Config) *Server {
	s := &Server{
		token:    cfg.Token,
		serverID: cfg.ServerID,
		bridge:   cfg.Bridge,
		start:    time.Now(),
	}
	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("httpapi")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.routes(engine)
	s.engine = engine

	s.bridge.SetStateObserver(s.onStateChanged)
	return s
}

// Handler returns the http.Handler serving every route, for embedding in a
// caller-owned http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API on addr until the process exits or ctx-driven
// shutdown is handled by the caller.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/info", s.authorized(s.handleInfo))
	r.GET("/list", s.authorized(s.handleList))
	r.GET("/lock", s.authorized(s.handleLock))
	r.GET("/unlock", s.authorized(s.handleUnlock))
	r.GET("/lockAction", s.authorized(s.handleLockAction))
	r.GET("/lockState", s.authorized(s.handleLockState))
	r.GET("/callback/add", s.authorized(s.handleCallbackAdd))
	r.GET("/callback/list", s.authorized(s.handleCallbackList))
	r.GET("/callback/remove", s.authorized(s.handleCallbackRemove))
}

// authorized wraps a handler with the same token check the original bridge
// performs on every route: either a plain ?token= match, or the
// ?hash=&rnr=&ts= HMAC-less digest scheme (sha256(ts,rnr,token) == hash)
// some Nuki app integrations use instead of sending the token in the clear.
func (s *Server) authorized(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.checkToken(c) {
			if s.log != nil {
				s.log.Error("invalid token")
			}
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		h(c)
	}
}

func (s *Server) checkToken(c *gin.Context) bool {
	if hash := c.Query("hash"); hash != "" {
		rnr := c.Query("rnr")
		ts := c.Query("ts")
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s,%s,%s", ts, rnr, s.token)))
		want := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(want), []byte(hash)) == 1
	}
	if token := c.Query("token"); token != "" {
		return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
	}
	return false
}

func (s *Server) handleInfo(c *gin.Context) {
	devices := s.bridge.Devices()
	scanResults := make([]gin.H, 0, len(devices))
	for _, v := range devices {
		if !v.HasConfig {
			continue
		}
		scanResults = append(scanResults, gin.H{
			"nukiId": nukiIDHex(v.ID),
			"type":   int(v.Kind),
			"name":   v.Config.Name,
			"rssi":   v.RSSI,
			"paired": true,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"bridgeType":      2, // BRIDGE_SW
		"ids":             gin.H{"hardwareId": s.serverID, "serverId": s.serverID},
		"versions":        gin.H{"appVersion": "0.1.0"},
		"uptime":          int(time.Since(s.start).Seconds()),
		"currentTime":     time.Now().UTC().Format("2006-01-02T15:04:05") + "Z",
		"serverConnected": false,
		"scanResults":     scanResults,
	})
}

func (s *Server) handleList(c *gin.Context) {
	devices := s.bridge.Devices()
	resp := make([]gin.H, 0, len(devices))
	for _, v := range devices {
		if !v.HasConfig {
			continue
		}
		resp = append(resp, gin.H{
			"nukiId":         nukiIDHex(v.ID),
			"deviceType":     int(v.Kind),
			"name":           v.Config.Name,
			"lastKnownState": lastStateJSON(v),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLockState(c *gin.Context) {
	v, ok := s.deviceFromQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, lastStateJSON(v))
}

func (s *Server) handleLock(c *gin.Context) {
	s.doAction(c, func(ctx context.Context, id uint32) error { return s.bridge.Lock(ctx, id) })
}

func (s *Server) handleUnlock(c *gin.Context) {
	s.doAction(c, func(ctx context.Context, id uint32) error { return s.bridge.Unlock(ctx, id) })
}

func (s *Server) handleLockAction(c *gin.Context) {
	actionStr := c.Query("action")
	action, err := strconv.Atoi(actionStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid action"})
		return
	}
	s.doAction(c, func(ctx context.Context, id uint32) error {
		return s.bridge.LockAction(ctx, id, nukiproto.Action(action))
	})
}

func (s *Server) doAction(c *gin.Context, fn func(ctx context.Context, id uint32) error) {
	id, err := parseNukiID(c.Query("nukiId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid nukiId"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	if err := fn(ctx, id); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	v, err := s.bridge.DeviceByID(id)
	batteryCritical := false
	if err == nil {
		batteryCritical = v.BatteryCritical
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "batteryCritical": batteryCritical})
}

func (s *Server) deviceFromQuery(c *gin.Context) (bridge.DeviceView, bool) {
	id, err := parseNukiID(c.Query("nukiId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid nukiId"})
		return bridge.DeviceView{}, false
	}
	v, err := s.bridge.DeviceByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "device not found"})
		return bridge.DeviceView{}, false
	}
	return v, true
}

func (s *Server) handleCallbackAdd(c *gin.Context) {
	url := c.Query("url")
	s.mu.Lock()
	added := false
	for i, existing := range s.callbacks {
		if existing == "" {
			s.callbacks[i] = url
			added = true
			break
		}
	}
	s.mu.Unlock()

	if !added {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "maximum callback count exceeded"})
		return
	}
	if s.log != nil {
		s.log.Infof("added http callback: %s", url)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCallbackList(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	}
	out := make([]entry, 0, len(s.callbacks))
	for i, url := range s.callbacks {
		if url != "" {
			out = append(out, entry{ID: i, URL: url})
		}
	}
	c.JSON(http.StatusOK, gin.H{"callbacks": out})
}

func (s *Server) handleCallbackRemove(c *gin.Context) {
	idx, err := strconv.Atoi(c.Query("id"))
	if err != nil || idx < 0 || idx >= len(s.callbacks) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return
	}
	s.mu.Lock()
	s.callbacks[idx] = ""
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// onStateChanged posts the device's current state to every registered
// callback URL, matching the original bridge's _newstate webhook fanout.
func (s *Server) onStateChanged(v bridge.DeviceView) {
	s.mu.Lock()
	urls := make([]string, 0, len(s.callbacks))
	for _, u := range s.callbacks {
		if u != "" {
			urls = append(urls, u)
		}
	}
	s.mu.Unlock()
	if len(urls) == 0 {
		return
	}

	payload := lastStateJSON(v)
	payload["nukiId"] = nukiIDHex(v.ID)
	payload["deviceType"] = int(v.Kind)
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	for _, url := range urls {
		go s.postCallback(url, body)
	}
}

func (s *Server) postCallback(url string, body []byte) {
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", jsonReader(body))
	if err != nil {
		if s.log != nil {
			s.log.Errorf("callback post to %s: %v", url, err)
		}
		return
	}
	resp.Body.Close()
}

func lastStateJSON(v bridge.DeviceView) gin.H {
	h := gin.H{
		"success":               true,
		"batteryCritical":       v.BatteryCritical,
		"batteryCharging":       v.BatteryCharging,
		"batteryChargeState":    v.BatteryPercentage,
		"keypadBatteryCritical": false,
	}
	if !v.HasState {
		h["success"] = false
		return h
	}

	st := v.State
	h["mode"] = int(st.NukiState)
	h["doorsensorState"] = int(st.DoorSensorState)
	h["doorsensorStateName"] = st.DoorSensorState.String()
	h["timestamp"] = st.CurrentTime.UTC().Format("2006-01-02T15:04:05")

	if v.Kind == nukiproto.DeviceKindOpener {
		h["state"] = int(st.OpenerState())
		h["stateName"] = st.OpenerState().String()
		h["ringactionTimestamp"] = st.CurrentTime.UTC().Format("2006-01-02T15:04:05")
		h["ringactionState"] = st.LastLockActionCompletionStatus
	} else {
		h["state"] = int(st.LockState())
		h["stateName"] = st.LockState().String()
	}
	return h
}

func parseNukiID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func nukiIDHex(id uint32) string {
	return fmt.Sprintf("%x", id)
}

func jsonReader(body []byte) *bytes.Reader {
	return bytes.NewReader(body)
}
