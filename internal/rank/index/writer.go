package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
)

// Bundle layout, little-endian throughout: a fixed 64-byte header, the
// four binary sections in order (doc freqs, row pointers, columns,
// values), the JSON document dictionary, and a 16-byte footer carrying a
// CRC-32 (IEEE) of the dictionary bytes plus an echo of the document
// count. The whole file is the working set; readers load it fully into
// memory.
const (
	MagicBytes    uint32 = 0x54465249 // "TFRI"
	FormatVersion uint32 = 1
	HeaderSize           = 64
	FooterSize           = 16
)

// bundleDict is the JSON document dictionary: two aligned sequences,
// Rows[i] being the matrix row index of document IDs[i].
type bundleDict struct {
	IDs  []string `json:"ids"`
	Rows []int32  `json:"rows"`
}

// Write atomically persists the index as a bundle at path, writing to
// <path>.tmp and renaming on success.
func Write(path string, x *Index) error {
	dictData, err := json.Marshal(bundleDict{IDs: x.ids, Rows: rowsOf(x)})
	if err != nil {
		return fmt.Errorf("marshaling document dictionary: %w", err)
	}

	nnz := uint64(len(x.vals))
	dictOffset := uint64(HeaderSize) +
		uint64(len(x.docFreqs))*4 +
		uint64(len(x.rowPtr))*8 +
		nnz*4 + nnz*8

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(x.ngramOrder))
	binary.LittleEndian.PutUint32(header[12:16], x.hashSize)
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(x.ids)))
	binary.LittleEndian.PutUint64(header[20:28], nnz)
	binary.LittleEndian.PutUint64(header[28:36], dictOffset)
	binary.LittleEndian.PutUint64(header[36:44], uint64(len(dictData)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating bundle directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp bundle file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	var scratch [8]byte
	for _, v := range x.docFreqs {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		if _, err := w.Write(scratch[:4]); err != nil {
			return fmt.Errorf("writing doc freqs: %w", err)
		}
	}
	for _, v := range x.rowPtr {
		binary.LittleEndian.PutUint64(scratch[:8], v)
		if _, err := w.Write(scratch[:8]); err != nil {
			return fmt.Errorf("writing row pointers: %w", err)
		}
	}
	for _, v := range x.cols {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		if _, err := w.Write(scratch[:4]); err != nil {
			return fmt.Errorf("writing columns: %w", err)
		}
	}
	for _, v := range x.vals {
		binary.LittleEndian.PutUint64(scratch[:8], math.Float64bits(v))
		if _, err := w.Write(scratch[:8]); err != nil {
			return fmt.Errorf("writing values: %w", err)
		}
	}
	if _, err := w.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(x.ids)))
	if _, err := w.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing bundle: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing bundle: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming bundle into place: %w", err)
	}
	return nil
}

// rowsOf reconstructs the dictionary's row sequence in the same order as
// x.ids, which by construction is the identity permutation.
func rowsOf(x *Index) []int32 {
	rows := make([]int32, len(x.ids))
	for i := range rows {
		rows[i] = int32(i)
	}
	return rows
}
