package zstack

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
)

// Frame is one merged plane of a stack on disk.
type Frame struct {
	ID    string
	Token string
	Depth int
	Path  string
}

// Discover lists the frames of the stack in dir ordered by token, then
// depth. Files that do not follow the frame naming are ignored. Depths
// need not be contiguous.
func Discover(dir string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack directory: %w", err)
	}

	var frames []Frame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		token, depth, ok := ParseFrameName(e.Name())
		if !ok {
			continue
		}
		frames = append(frames, Frame{
			ID:    FrameID(token, depth),
			Token: token,
			Depth: depth,
			Path:  filepath.Join(dir, e.Name()),
		})
	}

	sort.Slice(frames, func(i, j int) bool {
		if frames[i].Token != frames[j].Token {
			return frames[i].Token < frames[j].Token
		}
		return frames[i].Depth < frames[j].Depth
	})
	return frames, nil
}

// Missing returns, per token, the frames absent between depth 1 and the
// deepest frame found. frames must come from Discover.
func Missing(frames []Frame) ([]Frame, error) {
	deepest := map[string]int{}
	present := map[string]bool{}
	var tokens []string
	dirs := map[string]string{}
	for _, f := range frames {
		if _, ok := deepest[f.Token]; !ok {
			tokens = append(tokens, f.Token)
			dirs[f.Token] = filepath.Dir(f.Path)
		}
		if f.Depth > deepest[f.Token] {
			deepest[f.Token] = f.Depth
		}
		present[f.ID] = true
	}

	var gaps []Frame
	for _, token := range tokens {
		for d := 1; d < deepest[token]; d++ {
			id := FrameID(token, d)
			if present[id] {
				continue
			}
			name, err := FrameName(token, d)
			if err != nil {
				return nil, err
			}
			gaps = append(gaps, Frame{ID: id, Token: token, Depth: d, Path: filepath.Join(dirs[token], name)})
		}
	}
	return gaps, nil
}

// Load decodes a TIFF or PNG image from path.
func Load(path string) (image.Image, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image %s has no pixels", filepath.Base(path))
	}
	return img, nil
}

// SupportedFormats returns the accepted frame file extensions.
func SupportedFormats() []string {
	return []string{".tif", ".tiff", ".png"}
}

// IsSupportedFormat checks the extension of path.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range SupportedFormats() {
		if ext == f {
			return true
		}
	}
	return false
}
