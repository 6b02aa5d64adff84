// Package zstack locates and loads the merged frames of a z-stack.
//
// A stack lives in a directory named after its token, with one merged
// three-channel image per depth: <token>_zNNc1+2+3.tif, NN running from 01.
package zstack

import (
	"fmt"
	"regexp"
	"strconv"
)

// MaxDepth is the deepest plane a two-digit depth can address.
const MaxDepth = 99

// channelSuffix marks a frame that merges channels 1, 2 and 3.
const channelSuffix = "c1+2+3"

var frameName = regexp.MustCompile(`^(.+)_z(\d{2})c1\+2\+3\.(?i:tiff?|png)$`)

// FrameName builds the file name of one depth plane.
func FrameName(token string, depth int) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty stack token")
	}
	if depth < 1 || depth > MaxDepth {
		return "", fmt.Errorf("depth %d outside 1..%d", depth, MaxDepth)
	}
	return fmt.Sprintf("%s_z%02d%s.tif", token, depth, channelSuffix), nil
}

// ParseFrameName splits a frame file name into token and depth.
func ParseFrameName(name string) (token string, depth int, ok bool) {
	m := frameName.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	d, err := strconv.Atoi(m[2])
	if err != nil || d < 1 {
		return "", 0, false
	}
	return m[1], d, true
}

// FrameID is the stable identifier of a plane, e.g. "slice4_z07".
func FrameID(token string, depth int) string {
	return fmt.Sprintf("%s_z%02d", token, depth)
}
