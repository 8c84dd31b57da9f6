package decode

import (
	"errors"
	"testing"
)

func TestDecoder_SplitSequences(t *testing.T) {
	euro := []byte("€") // e2 82 ac
	tests := []struct {
		name        string
		writes      [][]byte
		want        []string
		wantPending int
	}{
		{
			name:   "ascii",
			writes: [][]byte{[]byte("hello")},
			want:   []string{"hello"},
		},
		{
			name:        "split after first byte",
			writes:      [][]byte{{'a', euro[0]}, euro[1:]},
			want:        []string{"a", "€"},
			wantPending: 0,
		},
		{
			name:        "split into three writes",
			writes:      [][]byte{euro[:1], euro[1:2], append(append([]byte{}, euro[2:]...), 'b')},
			want:        []string{"", "", "€b"},
			wantPending: 0,
		},
		{
			name:        "trailing incomplete sequence",
			writes:      [][]byte{append([]byte("x"), euro[:2]...)},
			want:        []string{"x"},
			wantPending: 2,
		},
		{
			name:   "invalid byte",
			writes: [][]byte{{'a', 0xff, 'b'}},
			want:   []string{"a�b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New("")
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			for i, w := range tt.writes {
				if got := d.Write(w); got != tt.want[i] {
					t.Errorf("Write #%d = %q, want %q", i, got, tt.want[i])
				}
			}
			if d.Pending() != tt.wantPending {
				t.Errorf("Pending() = %d, want %d", d.Pending(), tt.wantPending)
			}
		})
	}
}

func TestDecoder_Drop(t *testing.T) {
	d, err := New("utf-8")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	d.Write([]byte{0xe2, 0x82})
	if n := d.Drop(); n != 2 {
		t.Errorf("Drop() = %d, want 2", n)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() after Drop = %d, want 0", d.Pending())
	}
	if got := d.Write([]byte("ok")); got != "ok" {
		t.Errorf("Write after Drop = %q, want %q", got, "ok")
	}
}

func TestDecoder_LargeWrite(t *testing.T) {
	d, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	in := make([]byte, 0, 3*4096)
	for range 4096 {
		in = append(in, "€"...)
	}
	got := d.Write(in)
	if got != string(in) {
		t.Errorf("Write returned %d bytes, want %d", len(got), len(in))
	}
}

func TestNew_Labels(t *testing.T) {
	d, err := New("latin1")
	if err != nil {
		t.Fatalf("New(latin1) failed: %v", err)
	}
	if got := d.Write([]byte{0xe9}); got != "é" {
		t.Errorf("latin1 Write = %q, want %q", got, "é")
	}

	_, err = New("klingon")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("New(klingon) error = %v, want ErrUnknownEncoding", err)
	}
	if Valid("klingon") {
		t.Error("Valid(klingon) = true, want false")
	}
	if !Valid("") {
		t.Error("Valid(\"\") = false, want true")
	}
}
