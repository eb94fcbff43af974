package sentiment

import "testing"

func TestParseScore(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{name: "bare integer", in: "42", want: 42},
		{name: "negative", in: "-73", want: -73},
		{name: "leading prose", in: "Sentiment score: 15", want: 15},
		{name: "trailing period", in: "-20.", want: -20},
		{name: "clamped high", in: "250", want: 100},
		{name: "clamped low", in: "-500", want: -100},
		{name: "zero", in: "0", want: 0},
		{name: "no number", in: "very positive overall", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseScore(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseScore(%q): expected error, got %d", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScore(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("parseScore(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
