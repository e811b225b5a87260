package util

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// SetupInterruptHandler removes partial files under outputDir on SIGINT or
// SIGTERM and exits with status 1. The returned func stops listening.
func SetupInterruptHandler(outputDir string, onInterrupt func()) (stop func()) {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
		case <-done:
			return
		}

		fmt.Println("\nInterrupt received. Cleaning up...")
		if onInterrupt != nil {
			onInterrupt()
		}

		CleanupPartialFiles(outputDir)
		RemoveIfEmpty(filepath.Join(outputDir, "images"))
		RemoveIfEmpty(outputDir)
		fmt.Println("\nExiting due to interrupt.")

		os.Exit(1)
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}

// CleanupPartialFiles deletes every *.part file below outputDir.
func CleanupPartialFiles(outputDir string) {
	_ = filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), PartSuffix) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			fmt.Printf("Error cleaning up %s: %v\n", path, err)
		} else {
			fmt.Printf("Removed %s\n", path)
		}
		return nil
	})
}

func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		if err := os.Remove(dir); err == nil {
			fmt.Printf("Removed empty output folder: %s\n", dir)
		}
	}
}
