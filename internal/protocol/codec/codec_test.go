package codec

import (
	"errors"
	"testing"

	"github.com/cubesense/smartcube/internal/protocol"
)

func TestNewPerVendor(t *testing.T) {
	km := protocol.KeyMaterial{MAC: "AA:BB:CC:DD:EE:FF"}
	for _, v := range []protocol.Vendor{
		protocol.VendorGiiker,
		protocol.VendorGoCube,
		protocol.VendorGAN,
		protocol.VendorQiYi,
	} {
		c, err := New(v, km)
		if err != nil {
			t.Errorf("New(%s): %v", v, err)
			continue
		}
		if c == nil {
			t.Errorf("New(%s) returned nil codec", v)
		}
	}
}

func TestNewKeyedVendorsNeedMAC(t *testing.T) {
	for _, v := range []protocol.Vendor{protocol.VendorGAN, protocol.VendorQiYi} {
		if _, err := New(v, protocol.KeyMaterial{}); err == nil {
			t.Errorf("New(%s) without key material should fail", v)
		}
	}
}

func TestNewUnknownVendor(t *testing.T) {
	if _, err := New(protocol.Vendor("rubiks360"), protocol.KeyMaterial{}); !errors.Is(err, protocol.ErrUnknownVendor) {
		t.Errorf("err = %v, want ErrUnknownVendor", err)
	}
}
