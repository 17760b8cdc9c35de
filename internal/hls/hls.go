// Package hls implements the M3U8 master/media playlist parsing and
// stream-selection logic used by the video assembler (C9), including
// Roblox's non-standard RBX-BASE-URI variable substitution.
package hls

import (
	"fmt"
	"strconv"
	"strings"
)

// Stream is one entry from a master playlist's #EXT-X-STREAM-INF table.
type Stream struct {
	Bandwidth  int
	Resolution string // e.g. "1920x1080"
	URL        string
}

// Height returns the numeric height component of Resolution, or 0 if it
// cannot be parsed.
func (s Stream) Height() int {
	parts := strings.SplitN(s.Resolution, "x", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return h
}

// MasterPlaylist is the parsed result of a master playlist body.
type MasterPlaylist struct {
	BaseURI string
	Streams []Stream
}

// rbxBaseURIVar is the Roblox playlist variable substituted into stream
// and segment URLs.
const rbxBaseURIVar = "{$RBX-BASE-URI}"

// ParseMaster parses a master playlist body, capturing the
// #EXT-X-DEFINE:NAME="RBX-BASE-URI" value and substituting it into every
// stream URL that references {$RBX-BASE-URI}.
func ParseMaster(body []byte) (*MasterPlaylist, error) {
	lines := splitLines(body)
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#EXTM3U") {
		return nil, fmt.Errorf("hls: missing #EXTM3U header")
	}

	playlist := &MasterPlaylist{}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "#EXT-X-DEFINE:"):
			if v, ok := extractAttr(line, "NAME"); ok && v == "RBX-BASE-URI" {
				if base, ok := extractAttr(line, "VALUE"); ok {
					playlist.BaseURI = base
				}
			}

		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			stream := Stream{}
			if v, ok := extractAttr(line, "BANDWIDTH"); ok {
				if bw, err := strconv.Atoi(v); err == nil {
					stream.Bandwidth = bw
				}
			}
			if v, ok := extractAttr(line, "RESOLUTION"); ok {
				stream.Resolution = v
			}

			// The URL is the next non-comment, non-blank line.
			for j := i + 1; j < len(lines); j++ {
				next := strings.TrimSpace(lines[j])
				if next == "" || strings.HasPrefix(next, "#") {
					continue
				}
				stream.URL = substituteBaseURI(next, playlist.BaseURI)
				i = j
				break
			}
			playlist.Streams = append(playlist.Streams, stream)
		}
	}

	return playlist, nil
}

// substituteBaseURI replaces the {$RBX-BASE-URI} token with base.
func substituteBaseURI(url, base string) string {
	if base == "" {
		return url
	}
	return strings.ReplaceAll(url, rbxBaseURIVar, base)
}

// SelectionPolicy names the quality preference used to pick a stream from
// a master playlist.
type SelectionPolicy struct {
	Auto         bool
	Lowest       bool
	TargetHeight int // 0 means no target height requested
}

// AutoPolicy selects the highest-bandwidth stream.
func AutoPolicy() SelectionPolicy { return SelectionPolicy{Auto: true} }

// LowestPolicy selects the lowest-bandwidth stream.
func LowestPolicy() SelectionPolicy { return SelectionPolicy{Lowest: true} }

// TargetHeightPolicy selects the stream whose resolution height is
// nearest height, preferring heights at or below the target.
func TargetHeightPolicy(height int) SelectionPolicy {
	return SelectionPolicy{TargetHeight: height}
}

// SelectStream picks one stream from streams per policy. Returns an error
// if streams is empty.
func SelectStream(streams []Stream, policy SelectionPolicy) (Stream, error) {
	if len(streams) == 0 {
		return Stream{}, fmt.Errorf("hls: no streams in master playlist")
	}

	switch {
	case policy.Lowest:
		best := streams[0]
		for _, s := range streams[1:] {
			if s.Bandwidth < best.Bandwidth {
				best = s
			}
		}
		return best, nil

	case policy.TargetHeight > 0:
		return selectByTargetHeight(streams, policy.TargetHeight), nil

	default: // Auto
		best := streams[0]
		for _, s := range streams[1:] {
			if s.Bandwidth > best.Bandwidth {
				best = s
			}
		}
		return best, nil
	}
}

// selectByTargetHeight picks the stream nearest target, preferring
// heights at or below target when distances tie.
func selectByTargetHeight(streams []Stream, target int) Stream {
	best := streams[0]
	bestDist := heightDistance(best.Height(), target)

	for _, s := range streams[1:] {
		dist := heightDistance(s.Height(), target)
		switch {
		case dist < bestDist:
			best, bestDist = s, dist
		case dist == bestDist && s.Height() <= target && best.Height() > target:
			best = s
		}
	}
	return best
}

func heightDistance(height, target int) int {
	d := height - target
	if d < 0 {
		d = -d
	}
	return d
}

// MediaPlaylist is the parsed result of a media (segment) playlist body.
type MediaPlaylist struct {
	SegmentURLs []string
}

// ParseMedia extracts every URI line immediately following an #EXTINF
// line, substituting {$RBX-BASE-URI} with base.
func ParseMedia(body []byte, base string) (*MediaPlaylist, error) {
	lines := splitLines(body)
	playlist := &MediaPlaylist{}

	for i, line := range lines {
		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || strings.HasPrefix(next, "#") {
				continue
			}
			playlist.SegmentURLs = append(playlist.SegmentURLs, substituteBaseURI(next, base))
			break
		}
	}

	return playlist, nil
}

func splitLines(body []byte) []string {
	raw := strings.Split(string(body), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, "\r"))
	}
	return lines
}

// extractAttr extracts the value of attribute key from an M3U8 tag line
// such as `#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720`.
// Quoted values have their quotes stripped.
func extractAttr(line, key string) (string, bool) {
	idx := strings.Index(line, key+"=")
	if idx == -1 {
		return "", false
	}
	rest := line[idx+len(key)+1:]

	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end == -1 {
			return "", false
		}
		return rest[1 : 1+end], true
	}

	end := strings.IndexAny(rest, ",\n")
	if end == -1 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}
