// Package smartcube decodes Bluetooth smart cube notification streams
// into a normalized move and state model.
//
// Four vendor protocols are supported: Giiker, GoCube / Rubik's
// Connected, GAN Gen2 and QiYi. A Hub owns one session per registered
// device; each session drives the connection lifecycle, decodes vendor
// frames, normalizes move counters and tracks a virtual cube state that
// is reconciled against device snapshots. Everything a device produces
// surfaces on a single event stream:
//
//	hub := smartcube.NewHub(transport)
//	defer hub.Close()
//
//	hub.Register(smartcube.DeviceConfig{
//	    Address:     "d1:23:45:67:89:ab",
//	    Vendor:      smartcube.VendorGAN,
//	    AutoConnect: true,
//	})
//
//	for ev := range hub.Events() {
//	    switch ev := ev.(type) {
//	    case smartcube.MoveEvent:
//	        fmt.Println(ev.Move.Notation())
//	    case smartcube.StateEvent:
//	        fmt.Println(ev.Facelets)
//	    }
//	}
//
// The BLE stack is abstracted behind the Transport interface; a
// tinygo.org/x/bluetooth implementation ships in internal/transport and
// is wired up by the smartcube command.
package smartcube
