package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartcube.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Bridge.Listen == "" || cfg.Capture.Path == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
bridge:
  enabled: true
  listen: 0.0.0.0:9000
capture:
  path: /tmp/frames.db
devices:
  - address: "AB:12:34:62:F9:C5"
    vendor: gan
    auto_connect: true
    key: "000102030405060708090a0b0c0d0e0f"
    iv: "0f0e0d0c0b0a09080706050403020100"
  - address: "d1:23:45:67:89:ab"
    vendor: gocube
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" || !cfg.Bridge.Enabled || cfg.Bridge.Listen != "0.0.0.0:9000" {
		t.Errorf("parsed config = %+v", cfg)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("parsed %d devices, want 2", len(cfg.Devices))
	}
	key, err := cfg.Devices[0].KeyBytes()
	if err != nil || len(key) != 16 || key[1] != 0x01 {
		t.Errorf("key = %x, err = %v", key, err)
	}
	if k, _ := cfg.Devices[1].KeyBytes(); k != nil {
		t.Errorf("unset key decoded to %x", k)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name, body, wantErr string
	}{
		{
			"unknown vendor",
			"devices:\n  - address: aa:bb\n    vendor: rubik9000\n",
			"unknown vendor",
		},
		{
			"duplicate address",
			"devices:\n  - {address: 'aa:bb', vendor: gocube}\n  - {address: 'AA:BB', vendor: gan}\n",
			"listed twice",
		},
		{
			"missing address",
			"devices:\n  - {address: '', vendor: gocube}\n",
			"no address",
		},
		{
			"short key",
			"devices:\n  - {address: 'aa:bb', vendor: gan, key: 'abcd'}\n",
			"want 16",
		},
		{
			"non-hex key",
			"devices:\n  - {address: 'aa:bb', vendor: gan, key: 'zz'}\n",
			"not hex",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Devices = append(cfg.Devices, DeviceConfig{Address: "aa:bb", Vendor: "qiyi", AutoConnect: true})
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Devices) != 1 || loaded.Devices[0].Vendor != "qiyi" || !loaded.Devices[0].AutoConnect {
		t.Errorf("round trip = %+v", loaded.Devices)
	}
}
