// Command synth-session writes a synthetic recording session whose target clock
// drifts against the reference clock, for exercising fnt-align locally.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/edf"
	"gopkg.in/yaml.v3"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/config"
)

const (
	pulseWidth = 0.1
	edfRate    = 1000
	syncVolts  = 5.0
)

type sessionFile struct {
	Store     config.StoreConfig     `yaml:"store"`
	Alignment config.AlignmentConfig `yaml:"alignment"`
	Session   config.SessionConfig   `yaml:"session"`
}

func main() {
	var (
		outDir    = flag.String("out", "synth-session", "Output directory")
		name      = flag.String("session", "SYNTH001", "Session name")
		pulses    = flag.Int("pulses", 600, "Number of sync pulses")
		period    = flag.Float64("period", 1.0, "Sync pulse period in target seconds")
		driftPPM  = flag.Float64("drift", 25, "Target clock drift in parts per million")
		offset    = flag.Float64("offset", 1234.5, "Reference time of target zero in seconds")
		jitter    = flag.Float64("jitter", 50e-6, "Reference timestamp jitter standard deviation in seconds")
		dropped   = flag.Int("dropped", 0, "Trailing target pulses missing from the record")
		useEDF    = flag.Bool("edf", false, "Record the target sync line as an EDF signal instead of set/clear tables")
		seed      = flag.Int64("seed", 1, "Random seed")
		soundRate = flag.Int("sounds", 5, "Sound events per sync pulse period")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if *pulses < 2 || *period <= 2*pulseWidth {
		logger.Error("need at least two pulses and a period above twice the pulse width")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("create output directory", slog.Any("error", err))
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	slope := 1 + *driftPPM*1e-6

	targetRises := make([]float64, *pulses)
	referenceRises := make([]float64, *pulses)
	for i := range targetRises {
		targetRises[i] = 0.5 + float64(i)*(*period)
		referenceRises[i] = slope*targetRises[i] + *offset + rng.NormFloat64()*(*jitter)
	}
	recorded := targetRises[:len(targetRises)-clamp(*dropped, 0, len(targetRises)-2)]

	must := func(step string, err error) {
		if err != nil {
			logger.Error(step, slog.Any("error", err))
			os.Exit(1)
		}
	}

	must("write reference events", writeReferenceEvents(filepath.Join(*outDir, "events.csv"), referenceRises))

	target := config.SourceConfig{TimestampColumn: "Time"}
	if *useEDF {
		target = config.SourceConfig{Format: config.FormatEDF, Path: "sync.edf", SampleRate: edfRate, Threshold: syncVolts / 2}
		must("write target edf", writeTargetEDF(filepath.Join(*outDir, "sync.edf"), recorded))
	} else {
		target.Format = config.FormatSetClear
		target.SetPath = "sync_set.csv"
		target.ClearPath = "sync_clear.csv"
		must("write target set table", writeColumn(filepath.Join(*outDir, "sync_set.csv"), "Time", recorded, 0))
		must("write target clear table", writeColumn(filepath.Join(*outDir, "sync_clear.csv"), "Time", recorded, pulseWidth))
	}

	must("write sound events", writeSoundEvents(filepath.Join(*outDir, "sound_events.csv"), rng, recorded[len(recorded)-1], *soundRate, *period))

	doc := sessionFile{
		Store:     config.StoreConfig{Dir: "models"},
		Alignment: config.AlignmentConfig{MismatchPolicy: "truncate", ResidualThreshold: math.Max(10*(*jitter), 1e-4)},
		Session: config.SessionConfig{
			Name: *name,
			Reference: config.SourceConfig{
				Format:          config.FormatCSV,
				Path:            "events.csv",
				TimestampColumn: "global_timestamp",
				Filter:          map[string]string{"stream_name": "PXIe-6341", "line": "4"},
			},
			Target: target,
			Remap: []config.RemapJob{{
				Input:   "sound_events.csv",
				Columns: []config.RemapColumn{{Name: "Time", As: "Time_ephys"}},
			}},
		},
	}
	data, err := yaml.Marshal(doc)
	must("encode config", err)
	must("write config", os.WriteFile(filepath.Join(*outDir, "config.yaml"), data, 0o644))

	logger.Info("synthetic session written",
		slog.String("dir", *outDir),
		slog.Int("reference_pulses", len(referenceRises)),
		slog.Int("target_pulses", len(recorded)),
		slog.Float64("slope", slope),
		slog.Float64("intercept", *offset),
	)
}

// writeReferenceEvents writes an OpenEphys-style event table with sync rises and
// falls on line 4 interleaved with unrelated line 3 events.
func writeReferenceEvents(path string, rises []float64) error {
	var b strings.Builder
	b.WriteString(",global_timestamp,stream_name,line,state\n")
	row := 0
	emit := func(ts float64, line, state int) {
		fmt.Fprintf(&b, "%d,%s,PXIe-6341,%d,%d\n", row, formatSeconds(ts), line, state)
		row++
	}
	for _, rise := range rises {
		emit(rise, 4, 1)
		emit(rise+pulseWidth/2, 3, 1)
		emit(rise+pulseWidth, 4, 0)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeColumn(path, column string, values []float64, shift float64) error {
	var b strings.Builder
	b.WriteString(column + "\n")
	for _, v := range values {
		b.WriteString(formatSeconds(v+shift) + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeSoundEvents(path string, rng *rand.Rand, last float64, perPeriod int, period float64) error {
	var b strings.Builder
	b.WriteString("Time,Sound\n")
	sounds := []string{"tone", "noise", "chirp"}
	n := int(last/period) * perPeriod
	for i := 0; i < n; i++ {
		ts := rng.Float64() * last
		if i%97 == 0 {
			// Missed detections leave an empty cell.
			fmt.Fprintf(&b, ",%s\n", sounds[i%len(sounds)])
			continue
		}
		fmt.Fprintf(&b, "%s,%s\n", formatSeconds(ts), sounds[i%len(sounds)])
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeTargetEDF renders the target sync line as a sampled voltage signal.
func writeTargetEDF(path string, rises []float64) error {
	duration := rises[len(rises)-1] + 1
	records := int(math.Ceil(duration))
	levels := make([]float64, records*edfRate)
	for _, rise := range rises {
		start := int(math.Round(rise * edfRate))
		end := int(math.Round((rise + pulseWidth) * edfRate))
		for i := start; i < end && i < len(levels); i++ {
			levels[i] = syncVolts
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          "X",
		RecordingID:        "synthetic sync",
		StartTime:          time.Now().UTC().Truncate(time.Second),
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals: []edf.SignalHeader{{
			Label:             "SYNC",
			PhysicalDimension: "V",
			PhysicalMin:       0,
			PhysicalMax:       syncVolts,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  edfRate,
		}},
	})
	if err != nil {
		return err
	}
	for r := 0; r < records; r++ {
		if err := w.WriteRecord([][]float64{levels[r*edfRate : (r+1)*edfRate]}); err != nil {
			return err
		}
	}
	return w.Close()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
