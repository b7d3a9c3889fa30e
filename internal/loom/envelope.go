package loom

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// EnvelopeVersion is the current binary envelope format version.
const EnvelopeVersion = 1

// Envelope is the serialized form of a graph: enough structure to inspect,
// validate extension requirements and diff, without the in-memory type
// objects. Field order matches the wire layout.
type Envelope struct {
	Version    uint64        `yaml:"version"`
	Meta       []MetaEntry   `yaml:"metadata,omitempty"`
	Nodes      []NodeRecord  `yaml:"nodes"`
	Links      []LinkRecord  `yaml:"links,omitempty"`
	Order      []OrderRecord `yaml:"order,omitempty"`
	Extensions []Requirement `yaml:"extensions,omitempty"`
}

// MetaEntry is one rendered metadata key/value pair.
type MetaEntry struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// NodeRecord describes one node. Parent is -1 for the module root.
type NodeRecord struct {
	Id     int         `yaml:"id"`
	Parent int         `yaml:"parent"`
	Op     string      `yaml:"op"`
	Label  string      `yaml:"label,omitempty"`
	NumIn  int         `yaml:"in"`
	NumOut int         `yaml:"out"`
	Meta   []MetaEntry `yaml:"metadata,omitempty"`
}

// LinkRecord describes one dataflow wire.
type LinkRecord struct {
	SrcNode int `yaml:"src"`
	SrcPort int `yaml:"srcPort"`
	DstNode int `yaml:"dst"`
	DstPort int `yaml:"dstPort"`
}

// OrderRecord describes one order edge.
type OrderRecord struct {
	Before int `yaml:"before"`
	After  int `yaml:"after"`
}

// Requirement names an extension the graph depends on, with a semver
// constraint a consumer's registry must satisfy.
type Requirement struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint"`
}

// Wire field numbers of the envelope message.
const (
	fieldVersion   = 1
	fieldMeta      = 2
	fieldNode      = 3
	fieldLink      = 4
	fieldOrder     = 5
	fieldExtension = 6
)

func renderMetaValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func appendMetaEntry(b []byte, num protowire.Number, key, value string) []byte {
	var sub []byte
	sub = protowire.AppendTag(sub, 1, protowire.BytesType)
	sub = protowire.AppendString(sub, key)
	sub = protowire.AppendTag(sub, 2, protowire.BytesType)
	sub = protowire.AppendString(sub, value)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func metaEntries(g *Graph, n Node) [][2]string {
	keys := g.MetaKeys(n)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		v, _ := g.Meta(n, k)
		out = append(out, [2]string{k, renderMetaValue(v)})
	}
	return out
}

// EncodeEnvelope serializes the graph with the given extension
// requirements.
func EncodeEnvelope(g *Graph, reqs []Requirement) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, EnvelopeVersion)

	for _, kv := range metaEntries(g, g.Root()) {
		b = appendMetaEntry(b, fieldMeta, kv[0], kv[1])
	}

	for id := 0; id < g.NumNodes(); id++ {
		n := Node(id)
		var sub []byte
		sub = protowire.AppendTag(sub, 1, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(id))
		sub = protowire.AppendTag(sub, 2, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(g.Parent(n)+1))
		sub = protowire.AppendTag(sub, 3, protowire.BytesType)
		sub = protowire.AppendString(sub, g.Op(n).OpName())
		if label := opLabel(g.Op(n)); label != "" {
			sub = protowire.AppendTag(sub, 4, protowire.BytesType)
			sub = protowire.AppendString(sub, label)
		}
		sub = protowire.AppendTag(sub, 5, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(g.NumIn(n)))
		sub = protowire.AppendTag(sub, 6, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(g.NumOut(n)))
		for _, kv := range metaEntries(g, n) {
			sub = appendMetaEntry(sub, 7, kv[0], kv[1])
		}
		b = protowire.AppendTag(b, fieldNode, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}

	for id := 0; id < g.NumNodes(); id++ {
		n := Node(id)
		for out := 0; out < g.NumOut(n); out++ {
			src := Port{Node: n, Index: out}
			for _, dst := range g.LinkedPorts(src) {
				var sub []byte
				sub = protowire.AppendTag(sub, 1, protowire.VarintType)
				sub = protowire.AppendVarint(sub, uint64(src.Node))
				sub = protowire.AppendTag(sub, 2, protowire.VarintType)
				sub = protowire.AppendVarint(sub, uint64(src.Index))
				sub = protowire.AppendTag(sub, 3, protowire.VarintType)
				sub = protowire.AppendVarint(sub, uint64(dst.Node))
				sub = protowire.AppendTag(sub, 4, protowire.VarintType)
				sub = protowire.AppendVarint(sub, uint64(dst.Index))
				b = protowire.AppendTag(b, fieldLink, protowire.BytesType)
				b = protowire.AppendBytes(b, sub)
			}
		}
	}

	for _, edge := range g.OrderEdges() {
		var sub []byte
		sub = protowire.AppendTag(sub, 1, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(edge[0]))
		sub = protowire.AppendTag(sub, 2, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(edge[1]))
		b = protowire.AppendTag(b, fieldOrder, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}

	for _, req := range reqs {
		var sub []byte
		sub = protowire.AppendTag(sub, 1, protowire.BytesType)
		sub = protowire.AppendString(sub, req.Name)
		sub = protowire.AppendTag(sub, 2, protowire.BytesType)
		sub = protowire.AppendString(sub, req.Constraint)
		b = protowire.AppendTag(b, fieldExtension, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}

	return b
}

type fieldScanner struct {
	buf []byte
}

func (s *fieldScanner) next() (protowire.Number, protowire.Type, []byte, bool, error) {
	if len(s.buf) == 0 {
		return 0, 0, nil, false, nil
	}
	num, typ, n := protowire.ConsumeTag(s.buf)
	if n < 0 {
		return 0, 0, nil, false, errors.Wrap(protowire.ParseError(n), "envelope tag")
	}
	s.buf = s.buf[n:]
	switch typ {
	case protowire.VarintType:
		_, n := protowire.ConsumeVarint(s.buf)
		if n < 0 {
			return 0, 0, nil, false, errors.Wrap(protowire.ParseError(n), "envelope varint")
		}
		val := s.buf[:n]
		s.buf = s.buf[n:]
		return num, typ, val, true, nil
	case protowire.BytesType:
		val, n := protowire.ConsumeBytes(s.buf)
		if n < 0 {
			return 0, 0, nil, false, errors.Wrap(protowire.ParseError(n), "envelope bytes")
		}
		s.buf = s.buf[n:]
		return num, typ, val, true, nil
	default:
		return 0, 0, nil, false, errors.Errorf("envelope: unsupported wire type %d", typ)
	}
}

func scanVarint(raw []byte) uint64 {
	v, _ := protowire.ConsumeVarint(raw)
	return v
}

func decodeMetaEntry(raw []byte) (MetaEntry, error) {
	var e MetaEntry
	s := fieldScanner{buf: raw}
	for {
		num, typ, val, ok, err := s.next()
		if err != nil {
			return e, err
		}
		if !ok {
			return e, nil
		}
		if typ != protowire.BytesType {
			continue
		}
		switch num {
		case 1:
			e.Key = string(val)
		case 2:
			e.Value = string(val)
		}
	}
}

func decodeNode(raw []byte) (NodeRecord, error) {
	rec := NodeRecord{Parent: -1}
	s := fieldScanner{buf: raw}
	for {
		num, typ, val, ok, err := s.next()
		if err != nil {
			return rec, err
		}
		if !ok {
			return rec, nil
		}
		switch num {
		case 1:
			rec.Id = int(scanVarint(val))
		case 2:
			rec.Parent = int(scanVarint(val)) - 1
		case 3:
			rec.Op = string(val)
		case 4:
			rec.Label = string(val)
		case 5:
			rec.NumIn = int(scanVarint(val))
		case 6:
			rec.NumOut = int(scanVarint(val))
		case 7:
			if typ == protowire.BytesType {
				entry, err := decodeMetaEntry(val)
				if err != nil {
					return rec, err
				}
				rec.Meta = append(rec.Meta, entry)
			}
		}
	}
}

func decodeLink(raw []byte) (LinkRecord, error) {
	var rec LinkRecord
	s := fieldScanner{buf: raw}
	for {
		num, _, val, ok, err := s.next()
		if err != nil {
			return rec, err
		}
		if !ok {
			return rec, nil
		}
		switch num {
		case 1:
			rec.SrcNode = int(scanVarint(val))
		case 2:
			rec.SrcPort = int(scanVarint(val))
		case 3:
			rec.DstNode = int(scanVarint(val))
		case 4:
			rec.DstPort = int(scanVarint(val))
		}
	}
}

func decodeOrder(raw []byte) (OrderRecord, error) {
	var rec OrderRecord
	s := fieldScanner{buf: raw}
	for {
		num, _, val, ok, err := s.next()
		if err != nil {
			return rec, err
		}
		if !ok {
			return rec, nil
		}
		switch num {
		case 1:
			rec.Before = int(scanVarint(val))
		case 2:
			rec.After = int(scanVarint(val))
		}
	}
}

func decodeRequirement(raw []byte) (Requirement, error) {
	var rec Requirement
	s := fieldScanner{buf: raw}
	for {
		num, _, val, ok, err := s.next()
		if err != nil {
			return rec, err
		}
		if !ok {
			return rec, nil
		}
		switch num {
		case 1:
			rec.Name = string(val)
		case 2:
			rec.Constraint = string(val)
		}
	}
}

// DecodeEnvelope parses a serialized graph envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	s := fieldScanner{buf: data}
	for {
		num, _, val, ok, err := s.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch num {
		case fieldVersion:
			env.Version = scanVarint(val)
		case fieldMeta:
			entry, err := decodeMetaEntry(val)
			if err != nil {
				return nil, err
			}
			env.Meta = append(env.Meta, entry)
		case fieldNode:
			rec, err := decodeNode(val)
			if err != nil {
				return nil, err
			}
			env.Nodes = append(env.Nodes, rec)
		case fieldLink:
			rec, err := decodeLink(val)
			if err != nil {
				return nil, err
			}
			env.Links = append(env.Links, rec)
		case fieldOrder:
			rec, err := decodeOrder(val)
			if err != nil {
				return nil, err
			}
			env.Order = append(env.Order, rec)
		case fieldExtension:
			rec, err := decodeRequirement(val)
			if err != nil {
				return nil, err
			}
			env.Extensions = append(env.Extensions, rec)
		}
	}
	if env.Version == 0 {
		return nil, errors.New("envelope: missing format version")
	}
	if env.Version > EnvelopeVersion {
		return nil, errors.Errorf("envelope: unsupported format version %d", env.Version)
	}
	return env, nil
}
