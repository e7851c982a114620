package renditions

import (
	"errors"
	"testing"

	"github.com/ytget/linkedin-dl/errs"
	"github.com/ytget/linkedin-dl/types"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		set     types.RenditionSet
		q       types.Quality
		want    types.SelectedRendition
		wantErr error
	}{
		{
			name: "exact match",
			set:  types.RenditionSet{400000: "A", 800000: "B", 1600000: "C"},
			q:    800000,
			want: types.SelectedRendition{Quality: 800000, Location: "B"},
		},
		{
			name: "highest below request",
			set:  types.RenditionSet{128000: "A", 400000: "B"},
			q:    3200000,
			want: types.SelectedRendition{Quality: 400000, Location: "B"},
		},
		{
			name: "between members",
			set:  types.RenditionSet{128000: "A", 800000: "B", 3200000: "C"},
			q:    1600000,
			want: types.SelectedRendition{Quality: 800000, Location: "B"},
		},
		{
			name: "all above request picks lowest",
			set:  types.RenditionSet{1600000: "C", 3200000: "D"},
			q:    400000,
			want: types.SelectedRendition{Quality: 1600000, Location: "C"},
		},
		{
			name:    "empty set",
			set:     types.RenditionSet{},
			q:       800000,
			wantErr: errs.ErrNoRenditionsFound,
		},
		{
			name:    "invalid quality",
			set:     types.RenditionSet{800000: "B"},
			q:       12345,
			wantErr: errs.ErrInvalidQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.set, tt.q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	if !b.Add(800000, "https://cdn/b") {
		t.Fatal("member bitrate should be kept")
	}
	if b.Add(800000, "https://cdn/b2") {
		t.Fatal("first location for a bitrate should win")
	}
	if b.Add(1000000, "https://cdn/x") {
		t.Fatal("non-member bitrate should be ignored")
	}
	if b.Add(400000, "") {
		t.Fatal("empty location should be ignored")
	}
	if b.Add(0, "https://cdn/unknown") {
		t.Fatal("unknown bitrate should be ignored")
	}

	set := b.Set()
	if len(set) != 1 || set[800000] != "https://cdn/b" {
		t.Fatalf("Unexpected set %v", set)
	}
	if b.Ignored() != 3 {
		t.Errorf("Expected 3 ignored entries, got %d", b.Ignored())
	}
}

func TestPredicates(t *testing.T) {
	if !isMember(types.Quality1600K) || isMember(types.Quality(1500000)) {
		t.Fatal("isMember mismatch")
	}
	if !hasLocation(" https://x ") || hasLocation("/relative") || hasLocation("") {
		t.Fatal("hasLocation mismatch")
	}
	if !notAbove(400000, 400000) || notAbove(800000, 400000) {
		t.Fatal("notAbove mismatch")
	}
}
