package payments

import (
	"errors"
	"strconv"
	"testing"

	"dinehub-order-service/internal/cart"
)

func makeItems(n int) []cart.Item {
	items := make([]cart.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, cart.Item{
			CartItemID: "ci-" + strconv.Itoa(i),
			ProductID:  int64(1000000 + i),
			Quantity:   2,
			BasePrice:  10.50,
			FinalPrice: 12.75,
		})
	}
	return items
}

func TestEncodeSmallCartSingleField(t *testing.T) {
	md, err := EncodeCartMetadata(makeItems(3))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, ok := md["cart"]; !ok {
		t.Fatalf("expected single cart field, got %v", md)
	}
	if _, ok := md["cart_chunks"]; ok {
		t.Fatalf("small cart must not be chunked")
	}
}

func TestEncodeLargeCartChunks(t *testing.T) {
	items := makeItems(60)
	md, err := EncodeCartMetadata(items)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	countRaw, ok := md["cart_chunks"]
	if !ok {
		t.Fatalf("expected chunked metadata, got %v", md)
	}
	count, _ := strconv.Atoi(countRaw)

	// N must equal ceil(serializedLength / chunkSize).
	total := 0
	for i := 0; i < count; i++ {
		chunk, ok := md["cart_"+strconv.Itoa(i)]
		if !ok {
			t.Fatalf("chunk %d missing", i)
		}
		if len(chunk) > MetadataChunkSize {
			t.Fatalf("chunk %d exceeds size cap: %d", i, len(chunk))
		}
		total += len(chunk)
	}
	expected := (total + MetadataChunkSize - 1) / MetadataChunkSize
	if count != expected {
		t.Fatalf("expected %d chunks for %d bytes, got %d", expected, total, count)
	}

	lines, err := DecodeCartMetadata(md)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(lines) != len(items) {
		t.Fatalf("expected %d lines back, got %d", len(items), len(lines))
	}
	if lines[0].ProductID != items[0].ProductID || lines[0].Quantity != 2 || lines[0].Price != 12.75 {
		t.Fatalf("line content lost: %+v", lines[0])
	}
}

func TestEncodeOversizedCartFailsFast(t *testing.T) {
	_, err := EncodeCartMetadata(makeItems(400))
	var payErr *Error
	if !errors.As(err, &payErr) || payErr.Code != ErrCartTooLarge {
		t.Fatalf("expected CART_TOO_LARGE, got %v", err)
	}
}

func TestDecodeSingleField(t *testing.T) {
	md, err := EncodeCartMetadata(makeItems(2))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	lines, err := DecodeCartMetadata(md)
	if err != nil || len(lines) != 2 {
		t.Fatalf("decode failed: %v, %d lines", err, len(lines))
	}
}

func TestDecodeMissingChunk(t *testing.T) {
	md, err := EncodeCartMetadata(makeItems(60))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	delete(md, "cart_1")
	if _, err := DecodeCartMetadata(md); err == nil {
		t.Fatalf("expected error for missing chunk")
	}

	if _, err := DecodeCartMetadata(map[string]string{}); err == nil {
		t.Fatalf("expected error for empty metadata")
	}
	if _, err := DecodeCartMetadata(map[string]string{"cart": "not-json"}); err == nil {
		t.Fatalf("expected error for corrupt payload")
	}
}
