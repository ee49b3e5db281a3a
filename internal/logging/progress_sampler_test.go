package logging

import "testing"

func TestSamplerEmitsOnBucketBoundaries(t *testing.T) {
	sampler := NewProgressSampler(0.05)

	if !sampler.ShouldLog(0.0, "audio") {
		t.Fatal("first sample should emit")
	}
	if sampler.ShouldLog(0.01, "audio") {
		t.Fatal("same bucket should stay quiet")
	}
	if !sampler.ShouldLog(0.06, "audio") {
		t.Fatal("crossing a bucket should emit")
	}
	if !sampler.ShouldLog(1.0, "audio") {
		t.Fatal("completion should emit")
	}
}

func TestSamplerEmitsOnStepChange(t *testing.T) {
	sampler := NewProgressSampler(0.05)
	sampler.ShouldLog(0.5, "audio")

	if !sampler.ShouldLog(0.5, "frames") {
		t.Fatal("step change should emit")
	}
	// A new step resets the bucket, so earlier fractions emit again.
	if !sampler.ShouldLog(0.1, "audio") {
		t.Fatal("returning step should emit")
	}
}

func TestSamplerUnknownFraction(t *testing.T) {
	sampler := NewProgressSampler(0.05)
	if !sampler.ShouldLog(-1, "audio") {
		t.Fatal("first step with unknown fraction should emit")
	}
	if sampler.ShouldLog(-1, "audio") {
		t.Fatal("repeated unknown fraction should stay quiet")
	}
}

func TestSamplerReset(t *testing.T) {
	sampler := NewProgressSampler(0.05)
	sampler.ShouldLog(0.9, "audio")
	sampler.Reset()
	if !sampler.ShouldLog(0.1, "audio") {
		t.Fatal("reset sampler should emit again")
	}
}

func TestNilSamplerAlwaysLogs(t *testing.T) {
	var sampler *ProgressSampler
	if !sampler.ShouldLog(0.5, "audio") {
		t.Fatal("nil sampler should not suppress")
	}
}
