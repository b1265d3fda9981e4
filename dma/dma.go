// Package dma feeds a DMA backed sink device with test blocks.
package dma

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BlockSize is the size of one transfer to the sink.
const BlockSize = 64 << 10

// Block returns the test block: byte i holds i modulo 256.
func Block() []byte {
	b := make([]byte, BlockSize)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// Send writes one test block to w in a single write and returns the number
// of bytes the sink accepted. A short write is an error.
func Send(w io.Writer) (int, error) {
	block := Block()
	n, err := w.Write(block)
	if err != nil {
		return n, errors.Wrapf(err, "dma send after %s", humanize.IBytes(uint64(n)))
	}
	if n != len(block) {
		return n, errors.Wrapf(io.ErrShortWrite, "sink took %s of %s",
			humanize.IBytes(uint64(n)), humanize.IBytes(uint64(len(block))))
	}
	log.Debug().Str("size", humanize.IBytes(uint64(n))).Msg("dma block sent")
	return n, nil
}
