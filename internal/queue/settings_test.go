package queue

import "testing"

func validSettings() Settings {
	return Settings{
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		OutputPolicy:    OutputNextToInput,
		OverwritePolicy: OverwriteSkip,
		AudioEnabled:    true,
		AudioFormat:     AudioM4A,
		AudioMode:       AudioCopy,
		FramesEnabled:   true,
		FrameInterval:   10,
		FrameFormat:     ImageJPEG,
	}
}

func TestSettingsValidateAccepts(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}
}

func TestSettingsValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"missing ffmpeg", func(s *Settings) { s.FFmpegPath = " " }},
		{"missing ffprobe", func(s *Settings) { s.FFprobePath = "" }},
		{"explicit dir without path", func(s *Settings) {
			s.OutputPolicy = OutputExplicitDir
			s.OutputDir = ""
		}},
		{"bad output policy", func(s *Settings) { s.OutputPolicy = "elsewhere" }},
		{"bad overwrite policy", func(s *Settings) { s.OverwritePolicy = "maybe" }},
		{"bad audio format", func(s *Settings) { s.AudioFormat = "flac" }},
		{"bad audio mode", func(s *Settings) { s.AudioMode = "remux" }},
		{"zero interval", func(s *Settings) { s.FrameInterval = 0 }},
		{"negative interval", func(s *Settings) { s.FrameInterval = -2 }},
		{"bad frame format", func(s *Settings) { s.FrameFormat = "webp" }},
		{"width without height", func(s *Settings) { s.ResizeWidth = 640 }},
		{"height without width", func(s *Settings) { s.ResizeHeight = 480 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := validSettings()
			tc.mutate(&settings)
			if err := settings.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSettingsValidateDisabledStepsSkipChecks(t *testing.T) {
	settings := validSettings()
	settings.AudioEnabled = false
	settings.AudioFormat = "flac"
	settings.FramesEnabled = false
	settings.FrameInterval = -1
	if err := settings.Validate(); err != nil {
		t.Fatalf("disabled steps should not be validated: %v", err)
	}
}

func TestAnyExtractionEnabled(t *testing.T) {
	settings := validSettings()
	settings.AudioEnabled = false
	settings.FramesEnabled = false
	if settings.AnyExtractionEnabled() {
		t.Fatal("expected no extraction enabled")
	}
	settings.FramesEnabled = true
	if !settings.AnyExtractionEnabled() {
		t.Fatal("expected frames to count as enabled extraction")
	}
}
