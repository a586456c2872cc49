package bno08x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

const DefaultSerialDevice = "/dev/ttyAMA0"

const ReportFrequency = 100
const ReportInterval = time.Second / ReportFrequency

const packetLen = 19

var packetHeader = []byte{0xaa, 0xaa}

var ErrBadChecksum = errors.New("bad checksum")

type IMUReport struct {
	Time   time.Time
	Index  uint8
	Yaw    int16
	Pitch  int16
	Roll   int16
	XAccel int16
	YAccel int16
	ZAccel int16
}

var startTime = time.Now()

func (i IMUReport) String() string {
	return fmt.Sprintf("%s [%02x] Y:%7.2f P:%7.2f R:%7.2f X:%7.2f Y:%7.2f Z:%7.2f",
		time.Since(startTime).Round(time.Millisecond), i.Index, float64(i.Yaw)/100.0, float64(i.Pitch)/100.0, float64(i.Roll)/100.0,
		float64(i.XAccel)/100.0, float64(i.YAccel)/100.0, float64(i.ZAccel)/100.0)
}

func (i IMUReport) YawDegrees() float64 {
	return (float64(i.Yaw)) / 100.0
}

// ParsePacket decodes one RVC-mode packet, header included.
func ParsePacket(buf []byte) (IMUReport, error) {
	var report IMUReport
	if len(buf) < packetLen {
		return report, errors.Errorf("short packet (%d bytes)", len(buf))
	}
	if !bytes.Equal(buf[:2], packetHeader) {
		return report, errors.New("missing packet header")
	}
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	if buf[packetLen-1] != checksum {
		return report, errors.Wrapf(ErrBadChecksum, "%x != %x", buf[packetLen-1], checksum)
	}
	report.Index = buf[2]
	report.Yaw = int16(binary.LittleEndian.Uint16(buf[3:5]))
	report.Pitch = int16(binary.LittleEndian.Uint16(buf[5:7]))
	report.Roll = int16(binary.LittleEndian.Uint16(buf[7:9]))
	report.XAccel = int16(binary.LittleEndian.Uint16(buf[9:11]))
	report.YAccel = int16(binary.LittleEndian.Uint16(buf[11:13]))
	report.ZAccel = int16(binary.LittleEndian.Uint16(buf[13:15]))
	return report, nil
}

// BNO08X tracks the latest report from the IMU.  It implements hardware.IMU; the yaw rate is
// derived from consecutive reports.
type BNO08X struct {
	device string

	lock       sync.Mutex
	cond       *sync.Cond
	lastReport IMUReport
	yawRate    float64
}

var _ hardware.IMU = (*BNO08X)(nil)

func New(device string) *BNO08X {
	if device == "" {
		device = DefaultSerialDevice
	}
	b := &BNO08X{device: device}
	b.cond = sync.NewCond(&b.lock)
	return b
}

func (b *BNO08X) CurrentReport() IMUReport {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.lastReport
}

func (b *BNO08X) Yaw() float64 {
	return b.CurrentReport().YawDegrees()
}

func (b *BNO08X) AngularVelocityZ() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.yawRate
}

// WaitForReportAfter blocks until a report newer than t arrives or ctx is done.
func (b *BNO08X) WaitForReportAfter(ctx context.Context, t time.Time) (IMUReport, error) {
	stop := context.AfterFunc(ctx, func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		b.cond.Broadcast()
	})
	defer stop()

	b.lock.Lock()
	defer b.lock.Unlock()
	for !b.lastReport.Time.After(t) {
		if err := ctx.Err(); err != nil {
			return b.lastReport, errors.Wrap(err, "no report from IMU")
		}
		b.cond.Wait()
	}
	return b.lastReport, nil
}

func (b *BNO08X) LoopReadingReports(ctx context.Context) {
	defer b.cond.Broadcast()
	for ctx.Err() == nil {
		err := b.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		fmt.Println("BNO08X loop stopped; will retry", err)
		time.Sleep(100 * time.Millisecond)
		b.cond.Broadcast()
	}
}

func (b *BNO08X) openAndLoop(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: 115200,
	}
	s, err := serial.Open(b.device, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", b.device)
	}
	defer s.Close()
	return b.readPackets(ctx, s)
}

func (b *BNO08X) readPackets(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
resync:
	fmt.Println("BNO08X Resync...")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		buf, err := br.Peek(2)
		if err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		if bytes.Equal(buf, packetHeader) {
			break
		}
		_, err = br.Discard(1)
		if err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
	}
	fmt.Println("BNO08X: In sync with packet stream.")

	buf := make([]byte, packetLen)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.ReadAtLeast(br, buf, packetLen)
		if err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		report, err := ParsePacket(buf)
		if err != nil {
			fmt.Println("BNO08X:", err)
			goto resync
		}
		report.Time = time.Now()
		b.setReport(report)
	}
}

func (b *BNO08X) setReport(report IMUReport) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.lastReport.Time.IsZero() {
		dt := report.Time.Sub(b.lastReport.Time).Seconds()
		if dt > 0 {
			delta := angle.SymmetricError(report.YawDegrees(), b.lastReport.YawDegrees())
			b.yawRate = delta / dt
		}
	}
	b.lastReport = report
	b.cond.Broadcast()
}
