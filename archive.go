package huffpack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/seiflotfy/huffpack/codetree"
)

var (
	// ErrBadMagic indicates a container that does not start with the
	// container magic.
	ErrBadMagic = errors.New("invalid container magic")
	// ErrChecksum indicates restored data whose digest differs from the
	// digest recorded in the container.
	ErrChecksum = errors.New("checksum mismatch")
)

const (
	containerMagic   = "HPAK"
	containerVersion = uint16(1)

	stageCodec    = "codec"
	stageArchive  = "archive"
	stageChecksum = "checksum"

	stageArchiveParamStored = uint8(0) // payload is the input verbatim
	stageArchiveParamCoded  = uint8(1) // payload is a raw archive
	stageChecksumParamXXH64 = uint8(1)

	maxContainerStages   = 16
	maxStagePayloadBytes = 1 << 30 // 1 GiB
)

// Container wire format (version 1):
//
//	magic[4] = "HPAK"
//	version  = uint16 little-endian
//	stageCnt = uint16 little-endian
//	repeat stageCnt times:
//	  nameLen  = uint8
//	  paramLen = uint16 little-endian
//	  dataLen  = uint32 little-endian
//	  name     = nameLen bytes
//	  params   = paramLen bytes
//	  payload  = dataLen bytes
//
// Stages:
//
//	codec     params [mode, strategy], payload uvarint original length
//	archive   params [encoding], payload raw archive or stored input
//	checksum  params [algorithm], payload uint64 little-endian digest
//
// All three stages are required. Unknown stages are skipped via dataLen
// framing.
type wireStageHeader struct {
	name     string
	paramLen uint16
	dataLen  uint32
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n != len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

func writeStage(w io.Writer, name string, params []byte, payload []byte) (int64, error) {
	if len(name) == 0 || len(name) > 255 {
		return 0, fmt.Errorf("invalid stage name length: %d", len(name))
	}
	if len(params) > int(^uint16(0)) {
		return 0, fmt.Errorf("stage params too large for %q: %d", name, len(params))
	}
	if len(payload) > maxStagePayloadBytes {
		return 0, fmt.Errorf("stage payload too large for %q: %d", name, len(payload))
	}

	var hdr [7]byte
	hdr[0] = uint8(len(name))
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(len(params)))
	binary.LittleEndian.PutUint32(hdr[3:7], uint32(len(payload)))

	var total int64
	for _, part := range [][]byte{hdr[:], []byte(name), params, payload} {
		n, err := writeBytes(w, part)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readStageHeader(r io.Reader) (wireStageHeader, int64, error) {
	var hdr [7]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}
	nameLen := hdr[0]
	if nameLen == 0 {
		return wireStageHeader{}, total, fmt.Errorf("stage name length must be > 0")
	}
	paramLen := binary.LittleEndian.Uint16(hdr[1:3])
	dataLen := binary.LittleEndian.Uint32(hdr[3:7])
	if dataLen > uint32(maxStagePayloadBytes) {
		return wireStageHeader{}, total, fmt.Errorf("stage payload too large: %d", dataLen)
	}

	nameBytes := make([]byte, int(nameLen))
	n, err = io.ReadFull(r, nameBytes)
	total += int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}

	return wireStageHeader{
		name:     string(nameBytes),
		paramLen: paramLen,
		dataLen:  dataLen,
	}, total, nil
}

// Container frames a raw archive with the settings needed to decode it, the
// original length and a checksum of the original data.
type Container struct {
	Mode     Mode
	Strategy codetree.Strategy
	Stored   bool   // Payload holds the input verbatim
	Length   uint64 // Length of the original data
	Checksum uint64 // xxhash64 of the original data
	Payload  []byte // Raw archive, or the original data when Stored
}

// Pack compresses data and wraps the archive in a container. When coding
// would not shrink data the container stores it verbatim instead.
func Pack(data []byte, opts ...Option) (*Container, error) {
	enc := NewEncoder(opts...)
	if enc.err != nil {
		return nil, enc.err
	}
	c := &Container{
		Mode:     enc.config.Mode,
		Strategy: enc.config.Strategy,
		Length:   uint64(len(data)),
		Checksum: xxhash.Sum64(data),
	}
	archive, err := enc.Encode(data)
	if err != nil {
		return nil, err
	}
	if len(archive) >= len(data) {
		c.Stored = true
		c.Payload = bytes.Clone(data)
		enc.config.Logger.Debug("Storing input verbatim", "input", len(data), "archive", len(archive))
		return c, nil
	}
	c.Payload = archive
	return c, nil
}

// Data restores the original data and verifies its length and checksum.
// The container's mode and strategy override any given in opts.
func (c *Container) Data(opts ...Option) ([]byte, error) {
	var data []byte
	if c.Stored {
		data = bytes.Clone(c.Payload)
	} else {
		opts = append(opts[:len(opts):len(opts)], WithMode(c.Mode), WithStrategy(c.Strategy))
		var err error
		data, err = Decompress(c.Payload, opts...)
		if err != nil {
			return nil, err
		}
	}
	if uint64(len(data)) != c.Length {
		return nil, fmt.Errorf("%w: restored %d bytes, container records %d", ErrCorruptPayload, len(data), c.Length)
	}
	if sum := xxhash.Sum64(data); sum != c.Checksum {
		return nil, fmt.Errorf("%w: got %016x, want %016x", ErrChecksum, sum, c.Checksum)
	}
	return data, nil
}

// Unpack parses a serialized container and restores its data.
func Unpack(b []byte, opts ...Option) ([]byte, error) {
	var c Container
	if _, err := c.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return c.Data(opts...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Container) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Container) UnmarshalBinary(b []byte) error {
	r := bytes.NewReader(b)
	if _, err := c.ReadFrom(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after container", r.Len())
	}
	return nil
}

// WriteTo serializes the container to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	if !c.Mode.Valid() {
		return 0, fmt.Errorf("invalid container: %w: %d", ErrUnknownMode, uint8(c.Mode))
	}
	if !c.Strategy.Valid() {
		return 0, fmt.Errorf("invalid container: unknown strategy %d", uint8(c.Strategy))
	}
	if c.Stored && uint64(len(c.Payload)) != c.Length {
		return 0, fmt.Errorf("invalid container: stored payload of %d bytes, length %d", len(c.Payload), c.Length)
	}

	encoding := stageArchiveParamCoded
	if c.Stored {
		encoding = stageArchiveParamStored
	}
	var checksum [8]byte
	binary.LittleEndian.PutUint64(checksum[:], c.Checksum)

	stages := []struct {
		name    string
		params  []byte
		payload []byte
	}{
		{
			name:    stageCodec,
			params:  []byte{byte(c.Mode), byte(c.Strategy)},
			payload: binary.AppendUvarint(nil, c.Length),
		},
		{
			name:    stageArchive,
			params:  []byte{encoding},
			payload: c.Payload,
		},
		{
			name:    stageChecksum,
			params:  []byte{stageChecksumParamXXH64},
			payload: checksum[:],
		},
	}

	var total int64
	var preamble [8]byte
	copy(preamble[:4], containerMagic)
	binary.LittleEndian.PutUint16(preamble[4:6], containerVersion)
	binary.LittleEndian.PutUint16(preamble[6:8], uint16(len(stages)))
	n, err := writeBytes(w, preamble[:])
	total += n
	if err != nil {
		return total, err
	}

	for _, stage := range stages {
		n, err := writeStage(w, stage.name, stage.params, stage.payload)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadFrom deserializes a container from r.
func (c *Container) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	var magic [4]byte
	n, err := io.ReadFull(r, magic[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("read container magic at offset 0: %w", err)
	}
	if string(magic[:]) != containerMagic {
		return total, fmt.Errorf("%w at offset 0: %q", ErrBadMagic, string(magic[:]))
	}

	var version uint16
	versionOffset := total
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return total, fmt.Errorf("read container version at offset %d: %w", versionOffset, err)
	}
	total += 2
	if version != containerVersion {
		return total, fmt.Errorf("unsupported container version at offset %d: %d", versionOffset, version)
	}

	var stageCount uint16
	stageCountOffset := total
	if err := binary.Read(r, binary.LittleEndian, &stageCount); err != nil {
		return total, fmt.Errorf("read stage count at offset %d: %w", stageCountOffset, err)
	}
	total += 2
	if stageCount == 0 || stageCount > maxContainerStages {
		return total, fmt.Errorf("invalid stage count at offset %d: %d", stageCountOffset, stageCount)
	}

	var tmp Container
	seenStages := make(map[string]bool, stageCount)
	for i := 0; i < int(stageCount); i++ {
		headerOffset := total
		header, n, err := readStageHeader(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("read stage header at offset %d (stage index %d): %w", headerOffset, i, err)
		}
		if seenStages[header.name] {
			return total, fmt.Errorf("duplicate stage %q at stage index %d", header.name, i)
		}

		params := make([]byte, int(header.paramLen))
		paramsOffset := total
		nParams, err := io.ReadFull(r, params)
		total += int64(nParams)
		if err != nil {
			return total, fmt.Errorf("read stage %q params at offset %d (stage index %d): %w", header.name, paramsOffset, i, err)
		}

		switch header.name {
		case stageCodec, stageArchive, stageChecksum:
			// Grow with the bytes actually present rather than trusting dataLen.
			payloadOffset := total
			payload, err := io.ReadAll(io.LimitReader(r, int64(header.dataLen)))
			total += int64(len(payload))
			if err == nil && len(payload) != int(header.dataLen) {
				err = io.ErrUnexpectedEOF
			}
			if err != nil {
				return total, fmt.Errorf("read stage %q payload at offset %d (stage index %d): %w", header.name, payloadOffset, i, err)
			}

			var decodeErr error
			switch header.name {
			case stageCodec:
				decodeErr = decodeCodecStage(&tmp, params, payload)
			case stageArchive:
				decodeErr = decodeArchiveStage(&tmp, params, payload)
			case stageChecksum:
				decodeErr = decodeChecksumStage(&tmp, params, payload)
			}
			if decodeErr != nil {
				return total, fmt.Errorf("decode stage %q at offset %d (stage index %d): %w", header.name, payloadOffset, i, decodeErr)
			}
			seenStages[header.name] = true

		default:
			skipOffset := total
			skipped, err := io.CopyN(io.Discard, r, int64(header.dataLen))
			total += skipped
			if err != nil {
				return total, fmt.Errorf("skip unknown stage %q at offset %d (stage index %d): %w", header.name, skipOffset, i, err)
			}
		}
	}

	for _, stageName := range []string{stageCodec, stageArchive, stageChecksum} {
		if !seenStages[stageName] {
			return total, fmt.Errorf("missing required stage %q", stageName)
		}
	}
	if tmp.Stored && uint64(len(tmp.Payload)) != tmp.Length {
		return total, fmt.Errorf("%w: stored payload of %d bytes, length %d", ErrCorruptPayload, len(tmp.Payload), tmp.Length)
	}

	*c = tmp
	return total, nil
}

func decodeCodecStage(dst *Container, params []byte, payload []byte) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 params, got %d", len(params))
	}
	mode, strategy := Mode(params[0]), codetree.Strategy(params[1])
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, params[0])
	}
	if !strategy.Valid() {
		return fmt.Errorf("unknown strategy %d", params[1])
	}
	length, n := binary.Uvarint(payload)
	if n <= 0 || n != len(payload) {
		return fmt.Errorf("invalid length varint")
	}
	dst.Mode, dst.Strategy, dst.Length = mode, strategy, length
	return nil
}

func decodeArchiveStage(dst *Container, params []byte, payload []byte) error {
	if len(params) != 1 {
		return fmt.Errorf("expected 1 param, got %d", len(params))
	}
	switch params[0] {
	case stageArchiveParamStored:
		dst.Stored = true
	case stageArchiveParamCoded:
		dst.Stored = false
	default:
		return fmt.Errorf("unknown archive encoding %d", params[0])
	}
	dst.Payload = payload
	return nil
}

func decodeChecksumStage(dst *Container, params []byte, payload []byte) error {
	if len(params) != 1 || params[0] != stageChecksumParamXXH64 {
		return fmt.Errorf("unsupported checksum params %v", params)
	}
	if len(payload) != 8 {
		return fmt.Errorf("expected 8 byte digest, got %d", len(payload))
	}
	dst.Checksum = binary.LittleEndian.Uint64(payload)
	return nil
}
