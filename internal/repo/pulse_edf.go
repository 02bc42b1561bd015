package repo

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OpenPSG/edf"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/extractors"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// EDFPulseOptions locates and digitises a sync channel stored in an EDF file.
type EDFPulseOptions struct {
	Signal      int
	SampleRate  float64
	Threshold   float64
	StartOffset float64
}

// LoadEDFPulseLog reads a sync channel from an EDF file at path.
func LoadEDFPulseLog(path string, opts EDFPulseOptions) (models.PulseStateLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edf: %w", err)
	}
	defer f.Close()

	log, err := ReadEDFPulseLog(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return log, nil
}

// ReadEDFPulseLog reads every sample of one EDF signal and converts level
// changes around the threshold into a pulse log.
func ReadEDFPulseLog(r io.ReadSeeker, opts EDFPulseOptions) (models.PulseStateLog, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("edf sample rate must be positive, got %v", opts.SampleRate)
	}
	reader, err := edf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("read edf header: %w", err)
	}
	signal, err := reader.Signal(opts.Signal)
	if err != nil {
		return nil, fmt.Errorf("edf signal %d: %w", opts.Signal, err)
	}

	samples, err := readAllSamples(signal)
	if err != nil {
		return nil, fmt.Errorf("edf signal %d: %w", opts.Signal, err)
	}
	return extractors.ThresholdTransitions(samples, opts.SampleRate, opts.Threshold, opts.StartOffset)
}

func readAllSamples(signal *edf.SignalReader) ([]float64, error) {
	buf := make([]float64, 4096)
	var out []float64
	for {
		n, err := signal.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
