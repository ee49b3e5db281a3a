package media

import "testing"

func TestIsVideoFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/a/clip.mp4", true},
		{"/a/CLIP.MOV", true},
		{"clip.mkv", true},
		{"clip.avi", true},
		{"clip.webm", false},
		{"clip.mp3", false},
		{"clip", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsVideoFile(tc.path); got != tc.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
