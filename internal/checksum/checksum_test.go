package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("")
	if got := Sum(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestMatches(t *testing.T) {
	data := []byte("# Memory")
	sum := Sum(data)

	tests := []struct {
		tag  string
		want bool
	}{
		{sum, true},
		{ETag(sum), true},
		{"W/" + ETag(sum), true},
		{" " + ETag(sum) + " ", true},
		{Sum([]byte("other")), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Matches(data, tt.tag); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}
