package media

import (
	"strconv"
	"strings"
)

// Keys produced by ParseVideoCaptureFormat.
const (
	FormatResolution = "resolution"
	FormatFPS        = "fps"
)

// formatPixelFormat is dropped because the negotiated pixel format can differ
// from the advertised one.
const formatPixelFormat = "pixel format"

// ParseVideoCaptureFormat turns a capture format description such as
//
//	(1280x720)@30.000fps, pixel format: PIXEL_FORMAT_I420, storage: CPU
//
// into {"resolution": "1280x720", "fps": "30.00", "storage": "CPU"}.
// Segments that match neither the "key: value" nor the "(WxH)@Nfps" shape are
// skipped; parsing never fails.
func ParseVideoCaptureFormat(format string) VideoCaptureFormat {
	parsed := make(VideoCaptureFormat)

	for _, segment := range strings.Split(format, ", ") {
		if key, value, ok := strings.Cut(segment, ": "); ok {
			if key == formatPixelFormat {
				continue
			}
			parsed[key] = value
			continue
		}

		resolution, rate, ok := strings.Cut(segment, "@")
		if !ok {
			continue
		}

		resolution = strings.NewReplacer("(", "", ")", "").Replace(resolution)
		parsed[FormatResolution] = resolution

		fps, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(rate, "fps")), 64)
		if err != nil {
			continue
		}
		parsed[FormatFPS] = strconv.FormatFloat(fps, 'f', 2, 64)
	}

	return parsed
}
