package protocol

import "testing"

func TestMatchByNamePrefix(t *testing.T) {
	cases := []struct {
		name   string
		vendor Vendor
	}{
		{"GiC_a1b2", VendorGiiker},
		{"Mi Smart Magic Cube", VendorGiiker},
		{"GoCube_0042", VendorGoCube},
		{"Rubiks_1234", VendorGoCube},
		{"GANi3-A7F", VendorGAN},
		{"QY-QYSC-S-0D32", VendorQiYi},
	}
	for _, c := range cases {
		p, err := Match(c.name, nil)
		if err != nil {
			t.Errorf("Match(%q): %v", c.name, err)
			continue
		}
		if p.Vendor != c.vendor {
			t.Errorf("Match(%q) = %s, want %s", c.name, p.Vendor, c.vendor)
		}
	}
}

func TestMatchByServiceUUID(t *testing.T) {
	p, err := Match("unnamed", []string{"0000FFF0-0000-1000-8000-00805F9B34FB"})
	if err != nil {
		t.Fatalf("Match by service UUID: %v", err)
	}
	if p.Vendor != VendorQiYi {
		t.Errorf("vendor = %s, want %s", p.Vendor, VendorQiYi)
	}
}

func TestMatchUnknown(t *testing.T) {
	if _, err := Match("FitnessTracker", []string{"0000180f-0000-1000-8000-00805f9b34fb"}); err != ErrUnknownVendor {
		t.Errorf("err = %v, want ErrUnknownVendor", err)
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup(VendorGAN)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.CounterWidth != 8 {
		t.Errorf("GAN counter width = %d, want 8", p.CounterWidth)
	}
	if !p.NeedsMAC {
		t.Error("GAN profile should require the device MAC")
	}
	if _, err := Lookup(Vendor("nope")); err != ErrUnknownVendor {
		t.Errorf("err = %v, want ErrUnknownVendor", err)
	}
}

func TestGiikerSystemService(t *testing.T) {
	p, err := Lookup(VendorGiiker)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.SystemServiceUUID == "" || p.SystemNotifyChar == "" || p.SystemWriteChar == "" {
		t.Error("Giiker profile must carry the system service characteristics")
	}
}

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("ab:12:cd:34:ef:56")
	if err != nil {
		t.Fatalf("ParseMAC: %v", err)
	}
	want := [6]byte{0xab, 0x12, 0xcd, 0x34, 0xef, 0x56}
	if mac != want {
		t.Errorf("mac = %x, want %x", mac, want)
	}
	if _, err := ParseMAC("ab:12:cd"); err == nil {
		t.Error("short MAC should fail")
	}
}
