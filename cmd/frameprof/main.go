// Command frameprof converts a sequence of physical frame-allocator
// snapshots into a pprof heap-style profile, so a developer can
// visualize physical-page pressure across a test run using
// google/pprof's usual visualization tooling. Input is one "watermark
// freeCount" pair per line, as internal/mem.Allocator.Snapshot would be
// logged by a caller built with instrumentation enabled.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/pprof/profile"

	"github.com/rcore-os/rCore-Tutorial/internal/mem"
)

func main() {
	in := flag.String("in", "", "path to a frame-snapshot log (watermark freeCount per line)")
	out := flag.String("out", "frames.pprof", "output pprof profile path")
	flag.Parse()
	if *in == "" {
		log.Fatal("frameprof: -in is required")
	}

	samples, err := readSnapshots(*in)
	if err != nil {
		log.Fatalf("frameprof: %v", err)
	}

	p := buildProfile(samples)
	if err := writeProfile(p, *out); err != nil {
		log.Fatalf("frameprof: %v", err)
	}
	fmt.Printf("wrote %s (%d samples)\n", *out, len(samples))
}

// frameSample is one point in the frame-usage time series: how many
// frames were in use (watermark minus free count).
type frameSample struct {
	inUse uint64
}

func readSnapshots(path string) ([]frameSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []frameSample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var watermark, free uint64
		if _, err := fmt.Sscanf(scanner.Text(), "%d %d", &watermark, &free); err != nil {
			continue
		}
		samples = append(samples, frameSample{inUse: watermark - free})
	}
	return samples, scanner.Err()
}

func buildProfile(samples []frameSample) *profile.Profile {
	inUseType := &profile.ValueType{Type: "inuse_frames", Unit: "count"}
	bytesType := &profile.ValueType{Type: "inuse_space", Unit: "bytes"}

	loc := &profile.Location{ID: 1}
	fn := &profile.Function{ID: 1, Name: "frame_allocator_snapshot"}
	loc.Line = []profile.Line{{Function: fn, Line: 1}}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{inUseType, bytesType},
		PeriodType: inUseType,
		Period:     1,
		Function:   []*profile.Function{fn},
		Location:   []*profile.Location{loc},
	}

	for i, s := range samples {
		p.Sample = append(p.Sample, &profile.Sample{
			Value:    []int64{int64(s.inUse), int64(s.inUse) * int64(mem.PageSize)},
			Location: []*profile.Location{loc},
			Label:    map[string][]string{"tick": {fmt.Sprint(i)}},
		})
	}
	return p
}

func writeProfile(p *profile.Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Write(f)
}
