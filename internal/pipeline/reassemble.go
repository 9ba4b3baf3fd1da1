package pipeline

import (
	"sort"

	"github.com/shumzu/shumzu/internal/block"
	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/hashx"
)

// reassemble concatenates decoded payload blocks in index order, parses
// the metadata block, and verifies the whole-file hash. blocks must be
// keyed by final block index with fully decompressed (and, if applicable,
// decrypted) plaintext.
//
// maxObservedIndex is the highest block index seen among *any*
// successfully QR-decoded and envelope-parsed cell, independent of whether
// that block went on to survive decrypt/decompress. This must be derived
// before per-block decode failures drop entries from blocks: deriving the
// expected total from max(blocks' own keys) instead would let the single
// highest-index block fail silently — if its decrypt or decompress step
// fails, it is simply absent from blocks, the loop would believe the file
// ends one index earlier, and that missing index would never be reported.
//
// A contiguous 0..maxObservedIndex index set is required: any gap —
// including a dropped top index — is reported as a MissingBlockError
// naming the exact missing indices.
func reassemble(blocks map[int][]byte, maxObservedIndex int) (block.Metadata, []byte, error) {
	if _, ok := blocks[block.MetadataIndex]; !ok {
		return block.Metadata{}, nil, &errs.MissingBlockError{Missing: []int{block.MetadataIndex}}
	}

	present := make([]int, 0, len(blocks))
	for idx := range blocks {
		present = append(present, idx)
	}
	sort.Ints(present)

	haveSet := make(map[int]bool, len(present))
	for _, idx := range present {
		haveSet[idx] = true
	}
	maxIndex := maxObservedIndex
	var missing []int
	for i := 0; i <= maxIndex; i++ {
		if !haveSet[i] {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return block.Metadata{}, nil, &errs.MissingBlockError{Missing: missing}
	}

	metadata, err := block.ParseMetadata(blocks[block.MetadataIndex])
	if err != nil {
		return block.Metadata{}, nil, err
	}

	fileBytes := make([]byte, 0, maxIndex*len(blocks[1]))
	for i := 1; i <= maxIndex; i++ {
		fileBytes = append(fileBytes, blocks[i]...)
	}

	if !hashx.Verify(fileBytes, metadata.Hash) {
		return block.Metadata{}, nil, errs.ErrIntegrity
	}

	return metadata, fileBytes, nil
}
