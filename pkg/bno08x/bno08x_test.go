package bno08x

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func makePacket(index uint8, yaw int16) []byte {
	buf := make([]byte, packetLen)
	copy(buf, packetHeader)
	buf[2] = index
	binary.LittleEndian.PutUint16(buf[3:5], uint16(yaw))
	binary.LittleEndian.PutUint16(buf[13:15], uint16(981))
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	buf[packetLen-1] = checksum
	return buf
}

func TestParsePacket(t *testing.T) {
	report, err := ParsePacket(makePacket(7, -12345))
	if err != nil {
		t.Fatal(err)
	}
	if report.Index != 7 || report.Yaw != -12345 || report.ZAccel != 981 {
		t.Errorf("Unexpected report %v", report)
	}
	if yaw := report.YawDegrees(); math.Abs(yaw+123.45) > 1e-9 {
		t.Errorf("Yaw %v, expected -123.45", yaw)
	}
}

func TestParsePacketBadChecksum(t *testing.T) {
	p := makePacket(1, 100)
	p[packetLen-1]++
	_, err := ParsePacket(p)
	if !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("Expected a checksum error, got %v", err)
	}
}

func TestReadPacketsResyncs(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x01, 0xaa, 0x02})
	stream.Write(makePacket(1, 9000))

	b := New("")
	err := b.readPackets(context.Background(), &stream)
	if err == nil {
		t.Fatal("Expected an error at the end of the stream")
	}
	if r := b.CurrentReport(); r.Index != 1 || r.Yaw != 9000 {
		t.Errorf("Unexpected report after resync: %v", r)
	}
	if b.Yaw() != 90 {
		t.Errorf("Yaw %v, expected 90", b.Yaw())
	}
}

func TestYawRateWraps(t *testing.T) {
	b := New("")
	now := time.Now()
	b.setReport(IMUReport{Time: now, Yaw: 17900})
	b.setReport(IMUReport{Time: now.Add(100 * time.Millisecond), Yaw: -17900})
	// 179 to -179 is a 2 degree step, not 358.
	if r := b.AngularVelocityZ(); math.Abs(r-20) > 1e-6 {
		t.Errorf("Yaw rate %v, expected 20 deg/s", r)
	}
}

func TestWaitForReportAfter(t *testing.T) {
	b := New("")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.WaitForReportAfter(ctx, start); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected a timeout with no reports, got %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		report, _ := ParsePacket(makePacket(3, 4500))
		report.Time = time.Now()
		b.setReport(report)
	}()
	report, err := b.WaitForReportAfter(context.Background(), start)
	if err != nil {
		t.Fatal(err)
	}
	if report.Index != 3 || report.YawDegrees() != 45 {
		t.Errorf("Unexpected report %v", report)
	}
}
