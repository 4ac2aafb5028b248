// Package console adapts the SBI console and the stdin ring buffer into
// fsnode.INode, so a process's descriptor table can hold "stdin" and
// "stdout" entries the same way it holds ordinary file INodes. Grounded
// on the STDIN/STDOUT singletons original_source/os/src/fs/mod.rs
// re-exports from its (unretrieved) stdin.rs/stdout.rs submodules.
package console

import (
	"errors"

	"github.com/rcore-os/rCore-Tutorial/internal/fsnode"
	"github.com/rcore-os/rCore-Tutorial/internal/sbi"
	"github.com/rcore-os/rCore-Tutorial/internal/stdin"
)

var errUnsupported = errors.New("console: operation not supported")

// Stdin reads bytes pushed by the external-interrupt handler. ReadAt
// ignores offset, as a character device has no notion of seeking.
type Stdin struct {
	ring *stdin.Ring
}

// NewStdin wraps a stdin.Ring as an INode.
func NewStdin(ring *stdin.Ring) *Stdin { return &Stdin{ring: ring} }

// ReadAt drains up to len(p) currently-buffered bytes, returning 0 if
// none are available yet (the syscall table parks the caller in that
// case).
func (s *Stdin) ReadAt(offset int64, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, ok := s.ring.Pop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (s *Stdin) WriteAt(offset int64, p []byte) (int, error)     { return 0, errUnsupported }
func (s *Stdin) Lookup(path string) (fsnode.INode, error)        { return nil, errUnsupported }
func (s *Stdin) Find(name string) (fsnode.INode, error)          { return nil, errUnsupported }
func (s *Stdin) ReadAll() ([]byte, error)                        { return nil, errUnsupported }

// Stdout writes bytes one at a time through the SBI console.
type Stdout struct {
	client *sbi.Client
}

// NewStdout wraps an sbi.Client as an INode.
func NewStdout(client *sbi.Client) *Stdout { return &Stdout{client: client} }

func (s *Stdout) WriteAt(offset int64, p []byte) (int, error) {
	for _, b := range p {
		s.client.ConsolePutchar(b)
	}
	return len(p), nil
}

func (s *Stdout) ReadAt(offset int64, p []byte) (int, error) { return 0, errUnsupported }
func (s *Stdout) Lookup(path string) (fsnode.INode, error)   { return nil, errUnsupported }
func (s *Stdout) Find(name string) (fsnode.INode, error)     { return nil, errUnsupported }
func (s *Stdout) ReadAll() ([]byte, error)                   { return nil, errUnsupported }
