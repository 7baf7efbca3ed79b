// Package nukiconfig persists the bridge's identity and paired-device
// records to a YAML file, following the shape of the original bridge's
// config.py: generate an identity and access token on first run, append a
// device record after a successful pairing, reload both on startup.
package nukiconfig

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeviceRecord is the persisted form of one paired device: everything
// needed to reconnect and resume encrypted communication without repeating
// the pairing handshake.
type DeviceRecord struct {
	Address           string `yaml:"address"`
	AuthID            string `yaml:"auth_id"`
	NukiPublicKey     string `yaml:"nuki_public_key"`
	BridgePublicKey   string `yaml:"bridge_public_key"`
	BridgePrivateKey  string `yaml:"bridge_private_key"`
	Retry             int    `yaml:"retry,omitempty"`
	ConnectionTimeout int    `yaml:"connection_timeout,omitempty"`
	CommandTimeout    int    `yaml:"command_timeout,omitempty"`
}

// ServerConfig is the bridge-wide identity and HTTP front-end settings.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Adapter string `yaml:"adapter"`
	Name    string `yaml:"name"`
	AppID   uint32 `yaml:"app_id"`
	Token   string `yaml:"token"`
}

// File is the full persisted configuration document: the bridge identity
// plus zero or more paired device records.
type File struct {
	Server    ServerConfig   `yaml:"server"`
	Smartlock []DeviceRecord `yaml:"smartlock,omitempty"`
}

// Default returns a fresh configuration with a newly generated app id and
// access token, matching config.py's _random_app_id_and_token behavior for
// a first run with no existing file.
func Default() (File, error) {
	appID, err := randomUint32()
	if err != nil {
		return File{}, err
	}
	token, err := randomHex(32)
	if err != nil {
		return File{}, err
	}
	return File{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    "8080",
			Adapter: "hci0",
			Name:    "nuki-bridge",
			AppID:   appID,
			Token:   token,
		},
	}, nil
}

// Load reads and parses path. If the file does not exist, it returns a
// Default configuration instead of an error, mirroring config.py's
// init_config: first run has no file, so one is synthesized in memory.
// Load itself never writes the file; that is left to the caller's Save.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default()
		}
		return File{}, fmt.Errorf("nukiconfig: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("nukiconfig: parse %s: %w", path, err)
	}
	return f, nil
}

// Save writes f to path as YAML, creating or overwriting it.
func Save(path string, f File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("nukiconfig: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("nukiconfig: write %s: %w", path, err)
	}
	return nil
}

// AppendDevice appends rec to f.Smartlock, returning the updated file. The
// caller is responsible for calling Save to persist it, as the original
// bridge does right after its pairing_completed callback fires.
func (f File) AppendDevice(rec DeviceRecord) File {
	f.Smartlock = append(f.Smartlock, rec)
	return f
}

func randomUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
