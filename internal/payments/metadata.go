package payments

import (
	"encoding/json"
	"fmt"
	"strconv"

	"dinehub-order-service/internal/cart"
)

// The payment provider caps each metadata value at 500 characters, so the
// order summary is serialized compactly (ids, quantities and prices, no
// names or images) and split across indexed fields when it outgrows one. The
// provider also budgets the number of metadata fields per request, hence the
// hard chunk ceiling. None of this leaks outside this package: callers hand
// over cart items and get a map back.
const (
	MetadataChunkSize = 450
	MaxMetadataChunks = 10

	metadataKeyCart       = "cart"
	metadataKeyChunkCount = "cart_chunks"
)

// CompactLine is the wire form of one cart entry inside session metadata.
type CompactLine struct {
	ProductID int64   `json:"i"`
	Quantity  int     `json:"q"`
	Price     float64 `json:"p"`
}

func compactLines(items []cart.Item) []CompactLine {
	out := make([]CompactLine, 0, len(items))
	for _, item := range items {
		out = append(out, CompactLine{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.FinalPrice})
	}
	return out
}

// EncodeCartMetadata serializes the cart summary into provider metadata
// fields. A summary that fits under the size cap lands in a single "cart"
// field; otherwise it is split into cart_0..cart_{n-1} with cart_chunks
// recording n. A cart that would need more than MaxMetadataChunks fields
// fails fast, since silent truncation would corrupt the order the webhook
// later rebuilds.
func EncodeCartMetadata(items []cart.Item) (map[string]string, error) {
	serialized, err := json.Marshal(compactLines(items))
	if err != nil {
		return nil, validationError(ErrMetadataCorrupt, "Cart summary could not be serialized")
	}

	if len(serialized) <= MetadataChunkSize {
		return map[string]string{metadataKeyCart: string(serialized)}, nil
	}

	chunkCount := (len(serialized) + MetadataChunkSize - 1) / MetadataChunkSize
	if chunkCount > MaxMetadataChunks {
		return nil, validationError(ErrCartTooLarge,
			fmt.Sprintf("Cart summary needs %d metadata chunks, limit is %d", chunkCount, MaxMetadataChunks))
	}

	out := make(map[string]string, chunkCount+1)
	for i := 0; i < chunkCount; i++ {
		start := i * MetadataChunkSize
		end := start + MetadataChunkSize
		if end > len(serialized) {
			end = len(serialized)
		}
		out[metadataKeyCart+"_"+strconv.Itoa(i)] = string(serialized[start:end])
	}
	out[metadataKeyChunkCount] = strconv.Itoa(chunkCount)
	return out, nil
}

// DecodeCartMetadata reassembles the summary the webhook receives back from
// the provider.
func DecodeCartMetadata(metadata map[string]string) ([]CompactLine, error) {
	serialized := metadata[metadataKeyCart]
	if serialized == "" {
		countRaw, ok := metadata[metadataKeyChunkCount]
		if !ok {
			return nil, validationError(ErrMetadataCorrupt, "Cart metadata missing")
		}
		count, err := strconv.Atoi(countRaw)
		if err != nil || count < 1 || count > MaxMetadataChunks {
			return nil, validationError(ErrMetadataCorrupt, "Cart chunk count invalid")
		}
		for i := 0; i < count; i++ {
			chunk, ok := metadata[metadataKeyCart+"_"+strconv.Itoa(i)]
			if !ok {
				return nil, validationError(ErrMetadataCorrupt, fmt.Sprintf("Cart chunk %d missing", i))
			}
			serialized += chunk
		}
	}

	var lines []CompactLine
	if err := json.Unmarshal([]byte(serialized), &lines); err != nil {
		return nil, validationError(ErrMetadataCorrupt, "Cart metadata could not be parsed")
	}
	return lines, nil
}
