package actor

import (
	"log"

	"github.com/gosnmp/gosnmp"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

const (
	oidBase    = "1.3.6.1.2.1.1.0"
	oidSysName = "1.3.6.1.2.1.1.5.0"

	bulkRepeaters = 10
)

// respond builds the raw SNMP response for an incoming datagram. The PDU
// type lives in the ASN.1 header; request varbinds are not parsed, matching
// the poll patterns this fleet is queried with.
func (d *Device) respond(packet []byte, st *device.State, sim *simulate.Simulator) []byte {
	var pduType byte
	if len(packet) > 6 {
		pduType = packet[5]
	}

	switch pduType {
	case 0xA1: // GetNext-Request
		return d.respondGetNext(st, sim)
	case 0xA3: // SetRequest, fleet is read-only
		return d.respondReadOnlyError()
	case 0xA4: // GetBulk-Request
		return d.respondGetBulk(st, sim)
	default: // GetRequest or unrecognized
		return d.respondGet(st, sim)
	}
}

func (d *Device) respondGet(st *device.State, sim *simulate.Simulator) []byte {
	vars := []gosnmp.SnmpPDU{d.varbind(oidSysName, st, sim)}
	return d.marshal(vars, 0)
}

func (d *Device) respondGetNext(st *device.State, sim *simulate.Simulator) []byte {
	next, _, ok := d.set.Store.Next(oidBase)
	if !ok {
		return d.marshal([]gosnmp.SnmpPDU{{
			Name: oidBase,
			Type: gosnmp.EndOfMibView,
		}}, 0)
	}
	return d.marshal([]gosnmp.SnmpPDU{d.varbind(next, st, sim)}, 0)
}

func (d *Device) respondGetBulk(st *device.State, sim *simulate.Simulator) []byte {
	vars := make([]gosnmp.SnmpPDU, 0, bulkRepeaters)
	current := oidBase
	for i := 0; i < bulkRepeaters; i++ {
		next, _, ok := d.set.Store.Next(current)
		if !ok {
			break
		}
		vars = append(vars, d.varbind(next, st, sim))
		current = next
	}
	return d.marshal(vars, 0)
}

func (d *Device) respondReadOnlyError() []byte {
	return d.marshal(nil, gosnmp.ReadOnly)
}

// varbind simulates the current value for oid and wraps it as a PDU.
func (d *Device) varbind(oid string, st *device.State, sim *simulate.Simulator) gosnmp.SnmpPDU {
	datum, ok := d.set.Store.Get(oid)
	if !ok {
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.NoSuchObject}
	}
	v := sim.Value(oid, datum, d.set.Binder.Lookup(oid), st)
	t, val := wireValue(v)
	return gosnmp.SnmpPDU{Name: oid, Type: t, Value: val}
}

// wireValue adapts a simulated value to what gosnmp marshals. Gauge32 on the
// wire is unsigned; negative gauge readings (RF power) go out as Integer.
func wireValue(v simulate.Value) (gosnmp.Asn1BER, interface{}) {
	if v.Type == gosnmp.Gauge32 {
		if n, ok := v.Value.(int32); ok {
			if n < 0 {
				return gosnmp.Integer, int(n)
			}
			return gosnmp.Gauge32, uint32(n)
		}
	}
	return v.Type, v.Value
}

func (d *Device) marshal(vars []gosnmp.SnmpPDU, errStatus gosnmp.SNMPError) []byte {
	out := &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: "public",
		PDUType:   gosnmp.GetResponse,
		RequestID: 1,
		Error:     errStatus,
		Variables: vars,
	}
	if errStatus != 0 {
		out.ErrorIndex = 1
	}

	data, err := out.MarshalMsg()
	if err != nil {
		log.Printf("device port %d: failed to marshal response: %v", d.port, err)
		return nil
	}
	return data
}
