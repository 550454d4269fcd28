package replay

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ridgeline-robotics/lio/internal/l2sweep"
	"github.com/ridgeline-robotics/lio/internal/l6imu"
	"gonum.org/v1/gonum/spatial/r3"
)

func vec3(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }

const (
	kindIMU  byte = 0
	kindScan byte = 1
)

// Event is one decoded record: exactly one of IMU or Scan is set.
type Event struct {
	IMU  *l6imu.Sample
	Scan *l2sweep.Scan
}

// Reader decodes a recording file one event at a time, in the order the
// events were written.
type Reader struct {
	f *os.File
	r *bufio.Reader
}

// Open opens path for replay.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return &Reader{f: f, r: bufio.NewReader(f)}, nil
}

// Close releases the underlying file.
func (rd *Reader) Close() error { return rd.f.Close() }

// Next decodes the next event. It returns io.EOF (unwrapped, so callers
// can use errors.Is) once the recording is exhausted.
func (rd *Reader) Next() (Event, error) {
	kind, err := rd.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("replay: reading record kind: %w", err)
	}
	switch kind {
	case kindIMU:
		s, err := readIMU(rd.r)
		if err != nil {
			return Event{}, err
		}
		return Event{IMU: &s}, nil
	case kindScan:
		sc, err := readScan(rd.r)
		if err != nil {
			return Event{}, err
		}
		return Event{Scan: sc}, nil
	default:
		return Event{}, fmt.Errorf("replay: unknown record kind %d", kind)
	}
}

func readIMU(r io.Reader) (l6imu.Sample, error) {
	var vals [7]float64
	if err := binary.Read(r, binary.LittleEndian, &vals); err != nil {
		return l6imu.Sample{}, fmt.Errorf("replay: reading IMU record: %w", err)
	}
	return l6imu.Sample{
		Time:  vals[0],
		Accel: vec3(vals[1], vals[2], vals[3]),
		Gyro:  vec3(vals[4], vals[5], vals[6]),
	}, nil
}

func readScan(r io.Reader) (*l2sweep.Scan, error) {
	var header struct{ Rows, Start, End int32 }
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("replay: reading scan header: %w", err)
	}
	var times [2]float64
	if err := binary.Read(r, binary.LittleEndian, &times); err != nil {
		return nil, fmt.Errorf("replay: reading scan timing: %w", err)
	}

	width := int(header.End - header.Start)
	n := int(header.Rows) * width
	pixels := make([]l2sweep.Pixel, n)
	for i := 0; i < n; i++ {
		var fields [4]float32
		if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
			return nil, fmt.Errorf("replay: reading scan pixel %d: %w", i, err)
		}
		pixels[i] = l2sweep.Pixel{X: fields[0], Y: fields[1], Z: fields[2], Range: fields[3]}
	}

	return &l2sweep.Scan{
		Rows:   int(header.Rows),
		Start:  int(header.Start),
		End:    int(header.End),
		T0:     times[0],
		Dt:     times[1],
		Pixels: pixels,
	}, nil
}

// Writer encodes events in the format Reader decodes. Grounded on the
// teacher's cmd/tools/gen-vrlog, which generates synthetic recordings
// through the same recorder package that reads them back.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for encoding.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteIMU appends one IMU sample record.
func (wr *Writer) WriteIMU(s l6imu.Sample) error {
	if _, err := wr.w.Write([]byte{kindIMU}); err != nil {
		return err
	}
	vals := [7]float64{s.Time, s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z}
	return binary.Write(wr.w, binary.LittleEndian, vals)
}

// WriteScan appends one scan record.
func (wr *Writer) WriteScan(scan *l2sweep.Scan) error {
	if _, err := wr.w.Write([]byte{kindScan}); err != nil {
		return err
	}
	header := struct{ Rows, Start, End int32 }{int32(scan.Rows), int32(scan.Start), int32(scan.End)}
	if err := binary.Write(wr.w, binary.LittleEndian, header); err != nil {
		return err
	}
	times := [2]float64{scan.T0, scan.Dt}
	if err := binary.Write(wr.w, binary.LittleEndian, times); err != nil {
		return err
	}
	for _, px := range scan.Pixels {
		fields := [4]float32{px.X, px.Y, px.Z, px.Range}
		if err := binary.Write(wr.w, binary.LittleEndian, fields); err != nil {
			return err
		}
	}
	return nil
}
