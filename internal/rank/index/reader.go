package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// Load reads a bundle from disk, verifies its structure and checksum,
// and returns the assembled Index. Any malformation — bad magic,
// unsupported version, truncated sections, checksum mismatch, or a
// structural invariant violation — wraps ErrIndexLoad; a bundle that
// fails to load is fatal at startup, never partially served.
func Load(path string, normalize bool) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading bundle %s: %v", apperrors.ErrIndexLoad, path, err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("%w: bundle is %d bytes, smaller than header+footer",
			apperrors.ErrIndexLoad, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %#x", apperrors.ErrIndexLoad, magic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", apperrors.ErrIndexLoad, version)
	}
	ngramOrder := int(binary.LittleEndian.Uint32(data[8:12]))
	hashSize := binary.LittleEndian.Uint32(data[12:16])
	numDocs := binary.LittleEndian.Uint32(data[16:20])
	nnz := binary.LittleEndian.Uint64(data[20:28])
	dictOffset := binary.LittleEndian.Uint64(data[28:36])
	dictSize := binary.LittleEndian.Uint64(data[36:44])

	// A corrupt header must fail cleanly rather than wrap the section
	// arithmetic or allocate unbounded slices. Every hash bucket costs
	// 12 bytes on disk (docFreqs+rowPtr) and so does every nonzero
	// (cols+vals), so either count above len(data)/12 cannot be real.
	maxEntries := uint64(len(data)) / 12
	if uint64(hashSize) > maxEntries || nnz > maxEntries {
		return nil, fmt.Errorf("%w: header describes %d buckets and %d nonzeros, impossible in a %d-byte bundle",
			apperrors.ErrIndexLoad, hashSize, nnz, len(data))
	}

	sectionsEnd := uint64(HeaderSize) + uint64(hashSize)*4 + (uint64(hashSize)+1)*8 + nnz*4 + nnz*8
	if dictOffset != sectionsEnd {
		return nil, fmt.Errorf("%w: dictionary offset %d does not follow the binary sections (%d)",
			apperrors.ErrIndexLoad, dictOffset, sectionsEnd)
	}
	total := dictOffset + dictSize + FooterSize
	if uint64(len(data)) != total {
		return nil, fmt.Errorf("%w: bundle is %d bytes, header describes %d",
			apperrors.ErrIndexLoad, len(data), total)
	}

	off := uint64(HeaderSize)
	docFreqs := make([]uint32, hashSize)
	for i := range docFreqs {
		docFreqs[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	rowPtr := make([]uint64, hashSize+1)
	for i := range rowPtr {
		rowPtr[i] = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}
	cols := make([]uint32, nnz)
	for i := range cols {
		cols[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	vals := make([]float64, nnz)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
	}

	dictData := data[dictOffset : dictOffset+dictSize]
	footer := data[dictOffset+dictSize:]
	wantCRC := binary.LittleEndian.Uint32(footer[0:4])
	if got := crc32.ChecksumIEEE(dictData); got != wantCRC {
		return nil, fmt.Errorf("%w: dictionary checksum %#x, footer says %#x",
			apperrors.ErrIndexLoad, got, wantCRC)
	}
	if echo := binary.LittleEndian.Uint32(footer[4:8]); echo != numDocs {
		return nil, fmt.Errorf("%w: footer document count %d, header says %d",
			apperrors.ErrIndexLoad, echo, numDocs)
	}

	var dict bundleDict
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, fmt.Errorf("%w: parsing document dictionary: %v", apperrors.ErrIndexLoad, err)
	}
	if len(dict.IDs) != int(numDocs) {
		return nil, fmt.Errorf("%w: dictionary has %d documents, header says %d",
			apperrors.ErrIndexLoad, len(dict.IDs), numDocs)
	}

	return New(Parts{
		HashSize:   hashSize,
		NgramOrder: ngramOrder,
		DocFreqs:   docFreqs,
		RowPtr:     rowPtr,
		Cols:       cols,
		Vals:       vals,
		IDs:        dict.IDs,
		Rows:       dict.Rows,
	}, normalize)
}
