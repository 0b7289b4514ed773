package domain

import "testing"

func TestNormalizeAspectRatio(t *testing.T) {
	tests := []struct {
		ratio  string
		family ModelFamily
		want   string
	}{
		{"1:1", FamilyImage, "1:1"},
		{"3:4", FamilyImage, "3:4"},
		{"4:3", FamilyImage, "4:3"},
		{"9:16", FamilyImage, "9:16"},
		{"16:9", FamilyImage, "16:9"},
		{"4:5", FamilyImage, "3:4"},
		{"5:4", FamilyImage, "4:3"},
		{"9:21", FamilyImage, "9:16"},
		{"21:9", FamilyImage, "1:1"},
		{"", FamilyImage, "1:1"},
		{" 4:5 ", FamilyImage, "3:4"},
		{"16:9", FamilyVideo, "16:9"},
		{"4:3", FamilyVideo, "16:9"},
		{"5:4", FamilyVideo, "16:9"},
		{"1:1", FamilyVideo, "16:9"},
		{"9:16", FamilyVideo, "9:16"},
		{"3:4", FamilyVideo, "9:16"},
		{"4:5", FamilyVideo, "9:16"},
		{"9:21", FamilyVideo, "9:16"},
		{"bogus", FamilyVideo, "9:16"},
	}
	for _, tc := range tests {
		if got := NormalizeAspectRatio(tc.ratio, tc.family); got != tc.want {
			t.Fatalf("NormalizeAspectRatio(%q, %s) = %q, want %q", tc.ratio, tc.family, got, tc.want)
		}
	}
}

func TestNormalizeAspectRatioIsIdempotent(t *testing.T) {
	inputs := []string{"1:1", "3:4", "4:3", "9:16", "16:9", "4:5", "5:4", "9:21", "7:3"}
	for _, family := range []ModelFamily{FamilyImage, FamilyVideo} {
		for _, in := range inputs {
			once := NormalizeAspectRatio(in, family)
			if twice := NormalizeAspectRatio(once, family); twice != once {
				t.Fatalf("%s %q: normalized %q then %q", family, in, once, twice)
			}
		}
	}
}
