package drapto

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	draptolib "github.com/five82/drapto"
)

// ProgressUpdate is one progress event from an encode.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
	Warning bool
}

// Client re-encodes a video into outputDir and returns the produced path.
type Client interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error)
}

// Library implements Client with the Drapto library in-process.
type Library struct{}

// NewLibrary constructs a Library client.
func NewLibrary() *Library {
	return &Library{}
}

// Encode runs an AV1 encode. Drapto always writes <stem>.mkv.
func (l *Library) Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", errors.New("input path required")
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return "", errors.New("output directory required")
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", err
	}
	var rep draptolib.Reporter
	if progress != nil {
		rep = newProgressReporter(progress)
	}
	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep); err != nil {
		return "", err
	}
	return OutputPath(inputPath, outputDir), nil
}

// OutputPath mirrors Drapto's naming: the input stem with an .mkv extension.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(outputDir, stem+".mkv")
}

var _ Client = (*Library)(nil)
