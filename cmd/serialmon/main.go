// Command serialmon attaches to the kernel's console — a loopback
// internal/sbi.FakeFirmware in dev mode, or a named pipe in front of a
// real emulator — and renders its output on a raw terminal, colorizing
// panic/fault lines and watching the kernel binary for rebuilds. This is
// this repository's host-side analogue of the "make qemu" dev loop
// common to rCore-Tutorial-style teaching kernels.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/term"

	"github.com/rcore-os/rCore-Tutorial/internal/sbi"
)

func main() {
	pipePath := flag.String("pipe", "", "path to the emulator's UART named pipe (omit for loopback)")
	watchPath := flag.String("watch", "", "kernel binary to watch for rebuilds")
	flag.Parse()

	var src io.Reader
	if *pipePath == "" {
		src = loopbackSource()
	} else {
		f, err := os.Open(*pipePath)
		if err != nil {
			log.Fatalf("serialmon: open %s: %v", *pipePath, err)
		}
		defer f.Close()
		src = f
	}

	restore, err := enterRawMode()
	if err != nil {
		log.Printf("serialmon: raw mode unavailable: %v", err)
	} else {
		defer restore()
	}

	if *watchPath != "" {
		go watchForRebuild(*watchPath)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		os.Exit(0)
	}()

	render(src)
}

// loopbackSource drives the monitor from a host Firmware fake instead of
// a real emulator pipe, so the rendering path can be exercised without
// hardware.
func loopbackSource() io.Reader {
	fw := &sbi.FakeFirmware{}
	client := sbi.NewClient(fw)
	client.ConsolePutchar('b')
	client.ConsolePutchar('o')
	client.ConsolePutchar('o')
	client.ConsolePutchar('t')
	client.ConsolePutchar('\n')
	return strings.NewReader(fw.Out.String())
}

func enterRawMode() (func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(fd, prev) }, nil
}

const redSGR = "\x1b[31m"
const resetSGR = "\x1b[0m"

// render prints every line from src, colorizing lines that look like a
// kernel panic or fault report. Incoming lines are stripped of any
// escape sequences the kernel itself emitted before this monitor's own
// coloring is applied, so a malformed kernel write can't smuggle cursor
// moves or color resets into the terminal.
func render(src io.Reader) {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := ansi.Strip(scanner.Text())
		if strings.Contains(line, "panic:") || strings.Contains(line, "fault") {
			fmt.Println(redSGR + line + resetSGR)
		} else {
			fmt.Println(line)
		}
	}
}

// watchForRebuild reprints a notice whenever the kernel binary at path is
// rewritten, the signal a developer uses to know it's safe to relaunch
// the emulator against a fresh build.
func watchForRebuild(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("serialmon: watch disabled: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		log.Printf("serialmon: watch %s: %v", path, err)
		return
	}
	for event := range watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
			fmt.Printf("\n[serialmon] %s rebuilt, relaunch when ready\n", path)
		}
	}
}
