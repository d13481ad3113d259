// NNUE network file loading and writing.

package nnue

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hailam/nnueaffine/nnue/common"
)

// Header is the fixed prefix of a network file.
type Header struct {
	Version     uint32
	Hash        uint32
	Description string
}

// Network binds an architecture to the file it was loaded from.
type Network struct {
	Arch *Architecture

	// File info
	CurrentFile    string
	NetDescription string

	// Expected hash
	Hash uint32
}

// NewNetwork wraps arch. The expected hash is computed once from its layer
// structure.
func NewNetwork(arch *Architecture) *Network {
	return &Network{
		Arch: arch,
		Hash: arch.HashValue(),
	}
}

// Load loads network parameters from a file.
func (n *Network) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if err := n.LoadFromReader(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	n.CurrentFile = filename
	return nil
}

// LoadFromReader reads a whole network file from r. A wrong version or hash
// fails before any parameter is read, and any bytes after the last layer are
// rejected.
func (n *Network) LoadFromReader(r io.Reader) error {
	header, err := ReadHeader(r)
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if header.Hash != n.Hash {
		return fmt.Errorf("%w: expected %08x, got %08x", ErrHashMismatch, n.Hash, header.Hash)
	}

	if err := n.readParameters(r); err != nil {
		return fmt.Errorf("failed to read parameters: %w", err)
	}

	var extra [1]byte
	k, err := io.ReadFull(r, extra[:])
	switch {
	case k > 0:
		return ErrTrailingData
	case err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("failed to check for trailing data: %w", err)
	}

	n.NetDescription = header.Description
	return nil
}

// ReadHeader reads and validates the version, hash and description.
func ReadHeader(r io.Reader) (Header, error) {
	version, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read version: %w", err)
	}
	if version != Version {
		return Header{}, fmt.Errorf("%w: expected %08x, got %08x", ErrVersionMismatch, Version, version)
	}

	hashValue, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read hash: %w", err)
	}

	descSize, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read description size: %w", err)
	}
	if descSize > maxDescriptionSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrDescriptionTooLong, descSize)
	}

	descBytes := make([]byte, descSize)
	if _, err := io.ReadFull(r, descBytes); err != nil {
		return Header{}, fmt.Errorf("failed to read description: %w", err)
	}

	return Header{Version: version, Hash: hashValue, Description: string(descBytes)}, nil
}

// readParameters reads the layer stack hash and the chain's parameters.
func (n *Network) readParameters(r io.Reader) error {
	stackHash, err := common.ReadLittleEndian[uint32](r)
	if err != nil {
		return fmt.Errorf("failed to read layer stack hash: %w", err)
	}
	if stackHash != n.Hash {
		return fmt.Errorf("layer stack: %w: expected %08x, got %08x", ErrHashMismatch, n.Hash, stackHash)
	}
	return n.Arch.ReadParameters(r)
}

// Save writes the network to a file.
func (n *Network) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := n.Write(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", filename, err)
	}
	return f.Close()
}

// Write writes the header and all parameters in the layout LoadFromReader
// reads.
func (n *Network) Write(w io.Writer) error {
	if len(n.NetDescription) > maxDescriptionSize {
		return fmt.Errorf("%w: %d bytes", ErrDescriptionTooLong, len(n.NetDescription))
	}
	header := []uint32{Version, n.Hash, uint32(len(n.NetDescription))}
	if err := common.WriteLittleEndianSlice(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := io.WriteString(w, n.NetDescription); err != nil {
		return fmt.Errorf("failed to write description: %w", err)
	}
	if err := common.WriteLittleEndian(w, n.Hash); err != nil {
		return fmt.Errorf("failed to write layer stack hash: %w", err)
	}
	if err := n.Arch.WriteParameters(w); err != nil {
		return fmt.Errorf("failed to write parameters: %w", err)
	}
	return nil
}

// IsFormatError reports whether err means the data does not describe this
// network, as opposed to an I/O failure opening the file.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrVersionMismatch) ||
		errors.Is(err, ErrHashMismatch) ||
		errors.Is(err, ErrTrailingData) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
