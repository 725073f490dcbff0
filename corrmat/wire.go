package corrmat

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary store encoding, proto3-compatible wire layout:
//
//	store: 1 varint version, 2 varint side, 3 bytes entry (repeated)
//	entry: 1 sint64 label, 2 varint order, 3 bytes row-major fixed64 cells
//
// Unknown fields are skipped on decode so later versions can add fields
// without breaking old readers.
const (
	fieldVersion = 1
	fieldSide    = 2
	fieldEntry   = 3

	fieldLabel = 1
	fieldOrder = 2
	fieldCells = 3
)

func encodeBinary(doc *storeDocument) ([]byte, error) {
	buf := protowire.AppendTag(nil, fieldVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(doc.Version))
	buf = protowire.AppendTag(buf, fieldSide, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(doc.Side))

	for _, entry := range doc.Entries {
		payload := protowire.AppendTag(nil, fieldLabel, protowire.VarintType)
		payload = protowire.AppendVarint(payload, protowire.EncodeZigZag(int64(entry.Label)))
		payload = protowire.AppendTag(payload, fieldOrder, protowire.VarintType)
		payload = protowire.AppendVarint(payload, uint64(entry.Order))

		cells := make([]byte, 0, len(entry.Data)*8)
		for _, v := range entry.Data {
			cells = protowire.AppendFixed64(cells, math.Float64bits(v))
		}
		payload = protowire.AppendTag(payload, fieldCells, protowire.BytesType)
		payload = protowire.AppendBytes(payload, cells)

		buf = protowire.AppendTag(buf, fieldEntry, protowire.BytesType)
		buf = protowire.AppendBytes(buf, payload)
	}
	return buf, nil
}

func decodeBinary(raw []byte, doc *storeDocument) error {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return corruptWire(n)
		}
		raw = raw[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return corruptWire(n)
			}
			doc.Version = int(v)
			raw = raw[n:]
		case num == fieldSide && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return corruptWire(n)
			}
			doc.Side = int(v)
			raw = raw[n:]
		case num == fieldEntry && typ == protowire.BytesType:
			payload, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return corruptWire(n)
			}
			raw = raw[n:]
			entry, err := decodeEntry(payload)
			if err != nil {
				return err
			}
			doc.Entries = append(doc.Entries, entry)
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return corruptWire(n)
			}
			raw = raw[n:]
		}
	}
	return nil
}

func decodeEntry(raw []byte) (storeEntry, error) {
	var entry storeEntry
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return entry, corruptWire(n)
		}
		raw = raw[n:]

		switch {
		case num == fieldLabel && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return entry, corruptWire(n)
			}
			entry.Label = int(protowire.DecodeZigZag(v))
			raw = raw[n:]
		case num == fieldOrder && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return entry, corruptWire(n)
			}
			entry.Order = int(v)
			raw = raw[n:]
		case num == fieldCells && typ == protowire.BytesType:
			payload, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return entry, corruptWire(n)
			}
			raw = raw[n:]
			if len(payload)%8 != 0 {
				return entry, fmt.Errorf("%w: matrix cells are not whole float64 values", ErrCorruptStore)
			}
			entry.Data = make([]float64, 0, len(payload)/8)
			for len(payload) > 0 {
				v, n := protowire.ConsumeFixed64(payload)
				if n < 0 {
					return entry, corruptWire(n)
				}
				entry.Data = append(entry.Data, math.Float64frombits(v))
				payload = payload[n:]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return entry, corruptWire(n)
			}
			raw = raw[n:]
		}
	}
	return entry, nil
}

func corruptWire(n int) error {
	return fmt.Errorf("%w: %v", ErrCorruptStore, protowire.ParseError(n))
}
