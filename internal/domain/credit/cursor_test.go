package credit

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	id := uuid.New()

	cursor := encodeCursor(at, id)

	gotTime, gotID, err := decodeCursor(cursor)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !gotTime.Equal(at) {
		t.Errorf("time = %v, want %v", gotTime, at)
	}
	if gotID != id {
		t.Errorf("id = %v, want %v", gotID, id)
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%"},
		{"missing separator", "MTIzNDU2Nzg5"},
		{"bad timestamp", "YWJjfDAxOTAwMDAwLTAwMDAtNzAwMC04MDAwLTAwMDAwMDAwMDAwMA"},
		{"bad uuid", "MTcwOTAwMDAwMDAwMDAwMDAwMHxub3QtYS11dWlk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := decodeCursor(tt.cursor); err == nil {
				t.Fatalf("expected error for cursor %q", tt.cursor)
			}
		})
	}
}
