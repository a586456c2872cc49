package pca9685

import (
	"bytes"
	"testing"
)

type write struct {
	reg  byte
	data []byte
}

type fakeDevice struct {
	writes []write
}

func (f *fakeDevice) WriteReg(reg byte, buf []byte) error {
	f.writes = append(f.writes, write{reg, append([]byte(nil), buf...)})
	return nil
}

func (f *fakeDevice) Close() error {
	return nil
}

func TestConfigure(t *testing.T) {
	dev := &fakeDevice{}
	p := &PCA9685{dev: dev}
	if err := p.Configure(); err != nil {
		t.Fatal(err)
	}
	if len(dev.writes) != 4 {
		t.Fatalf("Expected 4 writes, got %v", dev.writes)
	}
	if w := dev.writes[1]; w.reg != RegPreScale || w.data[0] != 0x79 {
		t.Errorf("Pre-scaler write %v", w)
	}
	if w := dev.writes[3]; w.reg != RegMode1 || w.data[0] != 0x81 {
		t.Errorf("Enable write %v", w)
	}
}

func TestServoToPWM(t *testing.T) {
	for _, c := range []struct {
		in  float64
		out uint16
	}{
		{-1, 204},
		{0, 204},
		{0.5, 306},
		{1, 409},
		{2, 409},
	} {
		if out := ServoToPWM(c.in); out != c.out {
			t.Errorf("ServoToPWM(%v) = %d, expected %d", c.in, out, c.out)
		}
	}
}

func TestSetServo(t *testing.T) {
	dev := &fakeDevice{}
	p := &PCA9685{dev: dev}
	if err := p.SetServo(2, 1); err != nil {
		t.Fatal(err)
	}
	w := dev.writes[0]
	if w.reg != RegLEDBase+8 {
		t.Errorf("Wrote register %x", w.reg)
	}
	if !bytes.Equal(w.data, []byte{0, 0, 409 & 0xff, 409 >> 8}) {
		t.Errorf("Wrote %v", w.data)
	}

	if err := p.SetServo(NumPorts, 0.5); err == nil {
		t.Error("Expected an error for a port that doesn't exist")
	}
}
