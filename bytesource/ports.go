package bytesource

import "go.bug.st/serial/enumerator"

// listDetailedPorts is the enumerator entry point, replaceable in tests.
var listDetailedPorts = enumerator.GetDetailedPortsList

// PortInfo describes one serial port visible to the host, with USB identity
// when available. The presentation layer's device picker is built from this.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VendorID     string
	ProductID    string
	SerialNumber string
}

// ListPorts enumerates the serial ports on the host.
func ListPorts() ([]PortInfo, error) {
	details, err := listDetailedPorts()
	if err != nil {
		return nil, err
	}

	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VendorID:     d.VID,
			ProductID:    d.PID,
			SerialNumber: d.SerialNumber,
		})
	}
	return out, nil
}
