// Command mkdiskimg lays out the flat on-disk filesystem image cmd/kernel
// expects: a directory of embedded files plus a pre-created SWAP_FILE.
// The manifest's version must parse as semver and is reported in the
// summary line; it is not written into the image. The manifest format is
// this repository's own domain-stack wiring; the flat, single-directory
// image layout mirrors
// the simple filesystem original_source/os/src/fs assumes, since a real
// block-device image format lives outside this tool's reach.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/rcore-os/rCore-Tutorial/internal/hostfile"
	"github.com/rcore-os/rCore-Tutorial/internal/mem"
	"github.com/rcore-os/rCore-Tutorial/internal/swapfile"
)

// Manifest is the YAML description of one disk image: the files to embed
// and an optional swap-capacity override.
type Manifest struct {
	Version      string   `yaml:"version"`
	Files        []string `yaml:"files"`
	SwapCapacity int      `yaml:"swap_capacity_pages"`
	OutputDir    string   `yaml:"output_dir"`
}

func main() {
	manifestPath := flag.String("manifest", "", "path to the YAML image manifest")
	flag.Parse()
	if *manifestPath == "" {
		log.Fatal("mkdiskimg: -manifest is required")
	}

	m, err := loadManifest(*manifestPath)
	if err != nil {
		log.Fatalf("mkdiskimg: %v", err)
	}

	build, err := semver.NewVersion(m.Version)
	if err != nil {
		log.Fatalf("mkdiskimg: invalid version %q in manifest: %v", m.Version, err)
	}

	if err := os.MkdirAll(m.OutputDir, 0o755); err != nil {
		log.Fatalf("mkdiskimg: create output dir: %v", err)
	}

	for _, src := range m.Files {
		if err := copyEmbeddedFile(src, m.OutputDir); err != nil {
			log.Fatalf("mkdiskimg: embed %s: %v", src, err)
		}
	}

	capacity := m.SwapCapacity
	if capacity == 0 {
		capacity = swapfile.Capacity
	}
	swapPath := filepath.Join(m.OutputDir, swapfile.FileName)
	f, err := hostfile.Create(swapPath, int64(capacity)*int64(mem.PageSize))
	if err != nil {
		log.Fatalf("mkdiskimg: create %s: %v", swapPath, err)
	}
	f.Close()

	fmt.Printf("image built: %s (build %s, %d files, swap capacity %d pages)\n",
		m.OutputDir, build.String(), len(m.Files), capacity)
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.OutputDir == "" {
		m.OutputDir = "."
	}
	return &m, nil
}

func copyEmbeddedFile(src, outputDir string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(filepath.Join(outputDir, filepath.Base(src)))
	if err != nil {
		return err
	}
	defer out.Close()

	bar := progressbar.DefaultBytes(info.Size(), "embedding "+filepath.Base(src))
	_, err = io.Copy(io.MultiWriter(out, bar), in)
	return err
}
