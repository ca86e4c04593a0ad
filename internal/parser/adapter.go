package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Extractor turns an uploaded file into PackageMetadata. Every failure is
// a *ParseError; implementations wrapped by NewAdapter may return
// anything and it will be normalized.
type Extractor interface {
	Extract(path string) (*PackageMetadata, error)
}

// ParseFunc is a raw parser implementation.
type ParseFunc func(path string) (*PackageMetadata, error)

// Adapter wraps a raw parser and guarantees the closed error contract:
// typed parse errors pass through, anything else (including panics)
// becomes KindUnknown, and a "successful" result missing bundle id or
// platform becomes KindMalformedPackage.
type Adapter struct {
	fn ParseFunc
}

func NewAdapter(fn ParseFunc) *Adapter {
	return &Adapter{fn: fn}
}

func (a *Adapter) Extract(path string) (meta *PackageMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[parser] panic while parsing %s: %v", path, r)
			meta = nil
			err = &ParseError{Kind: KindUnknown, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()

	meta, rawErr := a.fn(path)
	if rawErr != nil {
		var pe *ParseError
		if errors.As(rawErr, &pe) {
			return nil, pe
		}
		// Unexpected failure: keep the detail in the server log, hand the
		// caller the generic variant.
		log.Printf("[parser] unexpected failure parsing %s: %v", path, rawErr)
		return nil, &ParseError{Kind: KindUnknown, Detail: rawErr.Error()}
	}

	if meta == nil || meta.BundleID == "" || meta.DeviceType == "" {
		return nil, ErrMalformedPackage("parser returned no bundle id or platform")
	}
	return meta, nil
}

// CommandExtractor shells out to an external parser binary that prints
// PackageMetadata JSON on stdout. Exit code 2 means unsupported file
// type, exit code 3 means malformed package; anything else non-zero is
// an unknown failure carrying stderr as detail.
type CommandExtractor struct {
	Command string
}

func NewCommandExtractor(command string) *Adapter {
	c := &CommandExtractor{Command: command}
	return NewAdapter(c.run)
}

func (c *CommandExtractor) run(path string) (*PackageMetadata, error) {
	cmd := exec.Command(c.Command, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case 2:
				return nil, ErrUnsupportedFileType()
			case 3:
				return nil, ErrMalformedPackage(strings.TrimSpace(stderr.String()))
			}
		}
		return nil, fmt.Errorf("extractor %s: %w: %s", c.Command, err, strings.TrimSpace(stderr.String()))
	}

	var meta PackageMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("extractor %s: bad metadata json: %w", c.Command, err)
	}
	return &meta, nil
}
