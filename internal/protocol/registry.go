package protocol

import "strings"

// Vendor identifies a smart cube protocol family.
type Vendor string

const (
	VendorGiiker Vendor = "giiker"
	VendorGoCube Vendor = "gocube"
	VendorGAN    Vendor = "gan"
	VendorQiYi   Vendor = "qiyi"
)

// Profile is the static description of one vendor protocol: how to spot
// the device in advertisements, which characteristics carry the traffic,
// and the wire properties the decode pipeline needs.
type Profile struct {
	Vendor       Vendor
	Name         string
	NamePrefixes []string // advertised local-name prefixes
	ServiceUUID  string   // primary data service
	NotifyChar   string   // notification source
	WriteChar    string   // command sink

	// Giiker splits battery and system commands onto a second service.
	SystemServiceUUID string
	SystemNotifyChar  string
	SystemWriteChar   string

	FrameLen     int  // fixed notification length, 0 = variable
	CounterWidth uint // move counter bits, 0 = no wire counter
	NeedsMAC     bool // key material derived from the device MAC
}

var profiles = []Profile{
	{
		Vendor:            VendorGiiker,
		Name:              "Giiker i3/i3s",
		NamePrefixes:      []string{"Gi", "Mi Smart Magic Cube"},
		ServiceUUID:       "0000aadb-0000-1000-8000-00805f9b34fb",
		NotifyChar:        "0000aadc-0000-1000-8000-00805f9b34fb",
		WriteChar:         "0000aadc-0000-1000-8000-00805f9b34fb",
		SystemServiceUUID: "0000aaaa-0000-1000-8000-00805f9b34fb",
		SystemNotifyChar:  "0000aaab-0000-1000-8000-00805f9b34fb",
		SystemWriteChar:   "0000aaac-0000-1000-8000-00805f9b34fb",
		FrameLen:          20,
	},
	{
		Vendor:       VendorGoCube,
		Name:         "GoCube / Rubik's Connected",
		NamePrefixes: []string{"GoCube", "Rubiks"},
		ServiceUUID:  "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
		NotifyChar:   "6e400003-b5a3-f393-e0a9-e50e24dcca9e",
		WriteChar:    "6e400002-b5a3-f393-e0a9-e50e24dcca9e",
	},
	{
		Vendor:       VendorGAN,
		Name:         "GAN i series",
		NamePrefixes: []string{"GAN", "MG", "AiCube"},
		ServiceUUID:  "6e400001-b5a3-f393-e0a9-e50e24dc4179",
		NotifyChar:   "28be4cb6-cd67-11e9-a32f-2a2ae2dbcce4",
		WriteChar:    "28be4a4a-cd67-11e9-a32f-2a2ae2dbcce4",
		FrameLen:     20,
		CounterWidth: 8,
		NeedsMAC:     true,
	},
	{
		Vendor:       VendorQiYi,
		Name:         "QiYi smart cube",
		NamePrefixes: []string{"QY-QYSC"},
		ServiceUUID:  "0000fff0-0000-1000-8000-00805f9b34fb",
		NotifyChar:   "0000fff6-0000-1000-8000-00805f9b34fb",
		WriteChar:    "0000fff6-0000-1000-8000-00805f9b34fb",
		NeedsMAC:     true,
	},
}

// Profiles returns all registered vendor profiles.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Lookup returns the profile for a vendor.
func Lookup(v Vendor) (*Profile, error) {
	for i := range profiles {
		if profiles[i].Vendor == v {
			p := profiles[i]
			return &p, nil
		}
	}
	return nil, ErrUnknownVendor
}

// Match identifies the vendor of an advertisement from the local name and
// the advertised service UUIDs. Name prefixes are checked first since some
// cubes do not advertise their data service.
func Match(name string, serviceUUIDs []string) (*Profile, error) {
	for i := range profiles {
		for _, prefix := range profiles[i].NamePrefixes {
			if strings.HasPrefix(name, prefix) {
				p := profiles[i]
				return &p, nil
			}
		}
	}
	for i := range profiles {
		for _, u := range serviceUUIDs {
			if strings.EqualFold(u, profiles[i].ServiceUUID) {
				p := profiles[i]
				return &p, nil
			}
		}
	}
	return nil, ErrUnknownVendor
}
