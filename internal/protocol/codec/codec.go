// Package codec constructs the decoder and encoder pair for a vendor.
// It exists so the session layer can depend on the protocol contracts
// without importing every vendor package.
package codec

import (
	"github.com/cubesense/smartcube/internal/protocol"
	"github.com/cubesense/smartcube/internal/protocol/gan"
	"github.com/cubesense/smartcube/internal/protocol/giiker"
	"github.com/cubesense/smartcube/internal/protocol/gocube"
	"github.com/cubesense/smartcube/internal/protocol/qiyi"
)

// Codec bundles both directions of one vendor protocol.
type Codec interface {
	protocol.Decoder
	protocol.Encoder
}

// New returns a fresh codec for the vendor. Codecs hold per-connection
// state (counters, keys) and must not be shared between sessions.
func New(v protocol.Vendor, km protocol.KeyMaterial) (Codec, error) {
	switch v {
	case protocol.VendorGiiker:
		return giiker.New()
	case protocol.VendorGoCube:
		return gocube.New()
	case protocol.VendorGAN:
		return gan.New(km)
	case protocol.VendorQiYi:
		return qiyi.New(km)
	default:
		return nil, protocol.ErrUnknownVendor
	}
}
