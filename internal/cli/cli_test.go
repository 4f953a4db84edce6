package cli

import (
	"testing"

	"github.com/cubesense/smartcube"
	"github.com/cubesense/smartcube/internal/config"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want smartcube.Command
	}{
		{"battery", smartcube.CommandBattery},
		{"STATE", smartcube.CommandState},
		{"calibrate", smartcube.CommandCalibrate},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseCommand(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := parseCommand("reboot"); err == nil {
		t.Error("parseCommand accepted an unknown command")
	}
}

func TestDeviceFromConfig(t *testing.T) {
	cfg := &config.Config{Devices: []config.DeviceConfig{
		{Address: "aa:bb", Vendor: "gocube"},
		{Address: "cc:dd", Vendor: "gan"},
	}}

	if _, err := deviceFromConfig(cfg, ""); err == nil {
		t.Error("ambiguous selection must require --address")
	}
	dev, err := deviceFromConfig(cfg, "cc:dd")
	if err != nil || dev.Vendor != "gan" {
		t.Errorf("deviceFromConfig = %+v, %v", dev, err)
	}
	if _, err := deviceFromConfig(cfg, "ee:ff"); err == nil {
		t.Error("unknown address must fail")
	}

	single := &config.Config{Devices: cfg.Devices[:1]}
	dev, err = deviceFromConfig(single, "")
	if err != nil || dev.Address != "aa:bb" {
		t.Errorf("single-device default = %+v, %v", dev, err)
	}
}
