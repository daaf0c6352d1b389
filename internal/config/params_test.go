package config

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func validParams() Params {
	return Params{
		Width: 640, Height: 480,
		FrameReference: 2,
		KeyintMax:      250,
		BFrame:         2,
		CabacInitIdc:   -1,
		Analyse:        Analyse{SubpelRefine: 1},
	}
}

func TestParams_ValidateAccepts(t *testing.T) {
	p := validParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.KeyintMin != 126 { // 250/2+1
		t.Fatalf("derived keyint_min = %d, want 126", p.KeyintMin)
	}
}

func TestParams_ValidateRejectsUnalignedResolution(t *testing.T) {
	p := validParams()
	p.Width = 641
	err := p.Validate()
	var ipe *InvalidParameterError
	if !errors.As(err, &ipe) || ipe.Field != "width" {
		t.Fatalf("err = %v, want InvalidParameterError{Field: width}", err)
	}
}

func TestParams_ValidateRejectsFrameReferenceOutOfRange(t *testing.T) {
	p := validParams()
	p.FrameReference = 16
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for frame_reference=16")
	}
}

func TestParams_ValidateRejectsKeyintMinAboveDerivedMax(t *testing.T) {
	p := validParams()
	p.KeyintMax = 10
	p.KeyintMin = 9 // max allowed is 10/2+1 = 6
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for keyint_min above keyint_max/2+1")
	}
}

func TestParams_ValidateRejectsBFrameAboveCeiling(t *testing.T) {
	p := validParams()
	p.BFrame = MaxBFrames + 1
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for bframe > %d", MaxBFrames)
	}
}

func TestInterModeSet_NormalizeImpliesP16x16(t *testing.T) {
	m := InterP8x8.Normalize()
	if m&InterP16x16 == 0 {
		t.Fatalf("PSUB8x8 must imply PSUB16x16, got %b", m)
	}
}

func TestReduceSAR(t *testing.T) {
	cases := []struct{ w, h, wantW, wantH int }{
		{16, 9, 16, 9},
		{32, 18, 16, 9},
		{0, 0, 0, 0},
	}
	for _, c := range cases {
		w, h := reduceSAR(c.w, c.h)
		if w != c.wantW || h != c.wantH {
			t.Fatalf("reduceSAR(%d,%d) = (%d,%d), want (%d,%d)", c.w, c.h, w, h, c.wantW, c.wantH)
		}
	}
}

func TestParams_ValidateClampsNegativeRCBlur(t *testing.T) {
	p := validParams()
	p.RC.QBlur = -1
	p.RC.ComplexityBlur = -5
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.RC.QBlur != 0 || p.RC.ComplexityBlur != 0 {
		t.Fatalf("RC blur not clamped: %+v", p.RC)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckSAR_NoOpWhenUnset(t *testing.T) {
	w, h := CheckSAR(0, 0, discardLogger())
	if w != 0 || h != 0 {
		t.Fatalf("CheckSAR(0,0) = (%d,%d), want (0,0)", w, h)
	}
}

func TestCheckSAR_ReducesValidRatio(t *testing.T) {
	w, h := CheckSAR(32, 18, discardLogger())
	if w != 16 || h != 9 {
		t.Fatalf("CheckSAR(32,18) = (%d,%d), want (16,9)", w, h)
	}
}

func TestCheckSAR_DropsNegativeAsInvalid(t *testing.T) {
	w, h := CheckSAR(-4, 3, discardLogger())
	if w != 0 || h != 0 {
		t.Fatalf("CheckSAR(-4,3) = (%d,%d), want dropped to (0,0)", w, h)
	}
}

func TestCheckSAR_DropsAsymmetricZeroAsInvalid(t *testing.T) {
	w, h := CheckSAR(0, 9, discardLogger())
	if w != 0 || h != 0 {
		t.Fatalf("CheckSAR(0,9) = (%d,%d), want dropped to (0,0)", w, h)
	}
}

func TestCheckSAR_DropsUnrepresentableRatioAsUnsupported(t *testing.T) {
	// 200000:1 doesn't reduce (gcd=1); halving it until it fits the 16-bit
	// field gives 50000:0, and a zero side cannot be signaled.
	w, h := CheckSAR(200000, 1, discardLogger())
	if w != 0 || h != 0 {
		t.Fatalf("CheckSAR(200000,1) = (%d,%d), want dropped to (0,0)", w, h)
	}
}

func TestParams_ScenecutEnabled(t *testing.T) {
	p := validParams()
	p.ScenecutThreshold = 40
	if !p.ScenecutEnabled() {
		t.Fatalf("expected scenecut enabled for threshold 40")
	}
	p.ScenecutThreshold = -1
	if p.ScenecutEnabled() {
		t.Fatalf("expected scenecut disabled for negative threshold")
	}
}
