package domain

import (
	"errors"
	"testing"
)

const validHotkey = "5FFApaS75bv5pJHfAp2FVLBj9ZaXuFDjEypsaBNc1wCfe52v"

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   DividendQuery
		wantErr bool
	}{
		{"valid", DividendQuery{NetUID: 18, Hotkey: validHotkey}, false},
		{"subnet zero allowed", DividendQuery{NetUID: 0, Hotkey: validHotkey}, false},
		{"negative netuid", DividendQuery{NetUID: -1, Hotkey: validHotkey}, true},
		{"hotkey too short", DividendQuery{NetUID: 18, Hotkey: "abc"}, true},
		{"hotkey empty", DividendQuery{NetUID: 18}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("want ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestQueryCacheKey(t *testing.T) {
	q := DividendQuery{NetUID: 18, Hotkey: validHotkey}
	want := "dividends:18:" + validHotkey
	if got := q.CacheKey(); got != want {
		t.Fatalf("cache key = %q, want %q", got, want)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobPending.Terminal() || JobRunning.Terminal() {
		t.Fatal("pending and running must not be terminal")
	}
	if !JobSucceeded.Terminal() || !JobFailed.Terminal() {
		t.Fatal("succeeded and failed must be terminal")
	}
}
