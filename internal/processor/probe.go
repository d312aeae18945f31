package processor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(data []byte) (MediaInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return MediaInfo{}, fmt.Errorf("error decoding ffprobe output: %w", err)
	}

	var info MediaInfo
	found := false
	for _, s := range p.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Width = s.Width
		info.Height = s.Height
		rate := s.AvgFrameRate
		if rate == "" || rate == "0/0" {
			rate = s.RFrameRate
		}
		r, err := parseRate(rate)
		if err != nil {
			return MediaInfo{}, err
		}
		info.FrameRate = r
		found = true
		break
	}
	if !found {
		return MediaInfo{}, fmt.Errorf("no video stream in ffprobe output")
	}

	if p.Format.Duration != "" {
		d, err := strconv.ParseFloat(p.Format.Duration, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("invalid duration %q: %w", p.Format.Duration, err)
		}
		info.Duration = d
	}
	return info, nil
}

// parseRate parses ffprobe rates such as "60/1" or "30000/1001".
func parseRate(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	if !ok {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n / d, nil
}
