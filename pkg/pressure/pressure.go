// Package pressure reports coarse CPU pressure from Linux PSI
// (/proc/pressure/cpu) for the status bar.
package pressure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// State is a coarse pressure level.
type State string

const (
	Nominal     State = "nominal"
	Fair        State = "fair"
	Serious     State = "serious"
	Critical    State = "critical"
	Unsupported State = "unsupported"
)

// DefaultPath is the kernel's CPU pressure file.
const DefaultPath = "/proc/pressure/cpu"

// ErrNoSomeLine is returned when the input has no "some" line.
var ErrNoSomeLine = errors.New("pressure: no \"some\" line")

// Reading is one sample of the "some" line.
type Reading struct {
	State  State
	Avg10  float64 // share of the last 10s with a stalled task, in percent
	Avg60  float64
	Avg300 float64
}

// Classify maps a 10s average to a State.
func Classify(avg10 float64) State {
	switch {
	case avg10 < 10:
		return Nominal
	case avg10 < 30:
		return Fair
	case avg10 < 60:
		return Serious
	default:
		return Critical
	}
}

// Parse reads PSI text such as
//
//	some avg10=1.53 avg60=0.87 avg300=0.40 total=123456
func Parse(r io.Reader) (Reading, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != "some" {
			continue
		}
		var rd Reading
		for _, f := range fields[1:] {
			key, val, ok := strings.Cut(f, "=")
			if !ok {
				continue
			}
			var dst *float64
			switch key {
			case "avg10":
				dst = &rd.Avg10
			case "avg60":
				dst = &rd.Avg60
			case "avg300":
				dst = &rd.Avg300
			default:
				continue
			}
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Reading{State: Unsupported}, fmt.Errorf("pressure: parsing %s: %w", key, err)
			}
			*dst = v
		}
		rd.State = Classify(rd.Avg10)
		return rd, nil
	}
	if err := sc.Err(); err != nil {
		return Reading{State: Unsupported}, err
	}
	return Reading{State: Unsupported}, ErrNoSomeLine
}

// Sampler reads a PSI file.
type Sampler struct {
	Path string
}

// NewSampler returns a Sampler for DefaultPath.
func NewSampler() *Sampler {
	return &Sampler{Path: DefaultPath}
}

// Sample reads the file once. Missing PSI support yields Unsupported and
// a nil error.
func (s *Sampler) Sample() (Reading, error) {
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return Reading{State: Unsupported}, nil
		}
		return Reading{State: Unsupported}, err
	}
	defer f.Close()
	return Parse(f)
}
