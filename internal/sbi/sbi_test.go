package sbi_test

import (
	"testing"

	"github.com/rcore-os/rCore-Tutorial/internal/sbi"
)

func TestPutCharWritesToConsole(t *testing.T) {
	fw := &sbi.FakeFirmware{}
	c := sbi.NewClient(fw)
	c.ConsolePutchar('A')
	c.ConsolePutchar('B')
	if got := fw.Out.String(); got != "AB" {
		t.Fatalf("console output = %q, want %q", got, "AB")
	}
}

func TestGetCharEmptyReturnsNotOK(t *testing.T) {
	fw := &sbi.FakeFirmware{}
	c := sbi.NewClient(fw)
	if _, ok := c.ConsoleGetchar(); ok {
		t.Fatalf("expected no character available")
	}
}

func TestGetCharDrainsQueue(t *testing.T) {
	fw := &sbi.FakeFirmware{In: []byte("hi")}
	c := sbi.NewClient(fw)
	ch, ok := c.ConsoleGetchar()
	if !ok || ch != int64('h') {
		t.Fatalf("ConsoleGetchar() = %q, %v; want 'h', true", ch, ok)
	}
	ch, ok = c.ConsoleGetchar()
	if !ok || ch != int64('i') {
		t.Fatalf("ConsoleGetchar() = %q, %v; want 'i', true", ch, ok)
	}
	if _, ok := c.ConsoleGetchar(); ok {
		t.Fatalf("expected queue exhausted")
	}
}

func TestSetTimerRecordsDeadline(t *testing.T) {
	fw := &sbi.FakeFirmware{}
	c := sbi.NewClient(fw)
	c.SetTimer(12345)
	if fw.LastTimer != 12345 {
		t.Fatalf("LastTimer = %d, want 12345", fw.LastTimer)
	}
}
