package checksum

import "testing"

func TestSum(t *testing.T) {
	// Known SHA-256 of the empty input.
	if got := Sum(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs produced the same digest")
	}
	if Sum([]byte("same")) != Sum([]byte("same")) {
		t.Error("digest is not deterministic")
	}
}
