package serialport

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes an available port.
type PortInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	USB          bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// String mirrors the "name - description" form operators see in port pickers.
func (p PortInfo) String() string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + " - " + p.Description
}

var detailedPortsList = enumerator.GetDetailedPortsList

// ListPorts returns the ports currently present on the host, sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: enumerate: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			Description:  d.Product,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}
