package catalog

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/metacat/codec"
	"github.com/hupe1980/metacat/internal/conv"
	"github.com/hupe1980/metacat/internal/hash"
)

const (
	binaryMagic   = 0x5441434D // "MCAT"
	binaryVersion = 1
)

// document is the payload of a version blob.
type document struct {
	Version   uint64         `json:"version"`
	Parent    uint64         `json:"parent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	MergeID   string         `json:"merge_id,omitempty"`
	Catalog   SnapshotRecord `json:"catalog"`
}

// writeBinary encodes a version blob.
// Format:
// Magic (4 bytes)
// Version (4 bytes)
// Compression (1 byte)
// Codec (string)
// Checksum (4 bytes) - CRC32C of the stored payload
// RawLength (4 bytes) - payload length before compression
// PayloadLength (4 bytes)
// Payload (codec encoded, then compressed)
func writeBinary(doc *document, c codec.Codec, compression codec.Compression) ([]byte, error) {
	raw, err := c.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode catalog version %d: %w", doc.Version, err)
	}
	payload, applied, err := codec.Compress(compression, raw)
	if err != nil {
		return nil, fmt.Errorf("compress catalog version %d: %w", doc.Version, err)
	}

	rawLength, err := conv.IntToUint32(len(raw))
	if err != nil {
		return nil, fmt.Errorf("catalog version %d: %w", doc.Version, err)
	}
	payloadLength, err := conv.IntToUint32(len(payload))
	if err != nil {
		return nil, fmt.Errorf("catalog version %d: %w", doc.Version, err)
	}

	pb := newPayloadBuffer(make([]byte, 0, 32+len(c.Name())+len(payload)))
	pb.writeUint32(binaryMagic)
	pb.writeUint32(binaryVersion)
	pb.writeUint8(uint8(applied))
	pb.writeString(c.Name())
	pb.writeUint32(hash.CRC32C(payload))
	pb.writeUint32(rawLength)
	pb.writeUint32(payloadLength)
	if pb.err != nil {
		return nil, pb.err
	}
	return append(pb.buf, payload...), nil
}

// header is the decoded envelope of a version blob.
type header struct {
	compression codec.Compression
	codec       codec.Codec
	checksum    uint32
	rawLength   uint32
}

// readBinary checks the envelope and returns the decoded payload.
func readBinary(data []byte) (*document, header, error) {
	var h header
	pb := newPayloadBuffer(data)

	magic := pb.readUint32()
	version := pb.readUint32()
	h.compression = codec.Compression(pb.readUint8())
	codecName := pb.readString()
	h.checksum = pb.readUint32()
	h.rawLength = pb.readUint32()
	length := pb.readUint32()
	if pb.err != nil {
		return nil, h, fmt.Errorf("%w: header: %v", ErrCorrupt, pb.err)
	}

	if magic != binaryMagic {
		return nil, h, fmt.Errorf("%w: invalid magic: %x", ErrCorrupt, magic)
	}
	if version != binaryVersion {
		return nil, h, fmt.Errorf("%w: %d", ErrIncompatibleVersion, version)
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, h, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, codecName)
	}
	h.codec = c

	payload := pb.buf[pb.pos:]
	if uint32(len(payload)) != length {
		return nil, h, fmt.Errorf("%w: payload length %d, want %d", ErrCorrupt, len(payload), length)
	}
	if hash.CRC32C(payload) != h.checksum {
		return nil, h, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	rawLength, err := conv.Uint32ToInt(h.rawLength)
	if err != nil {
		return nil, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw, err := codec.Decompress(h.compression, payload, rawLength)
	if err != nil {
		return nil, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	doc := &document{}
	if err := c.Unmarshal(raw, doc); err != nil {
		return nil, h, fmt.Errorf("%w: decode: %v", ErrCorrupt, err)
	}
	return doc, h, nil
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint8(v uint8) {
	if p.err != nil {
		return
	}
	p.buf = append(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > 255 {
		p.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	p.buf = append(p.buf, uint8(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) readUint8() uint8 {
	if p.err != nil {
		return 0
	}
	if p.pos+1 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := p.buf[p.pos]
	p.pos++
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if p.err != nil {
		return 0
	}
	if p.pos+4 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readString() string {
	l := int(p.readUint8())
	if p.err != nil {
		return ""
	}
	if p.pos+l > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	s := string(p.buf[p.pos : p.pos+l])
	p.pos += l
	return s
}
