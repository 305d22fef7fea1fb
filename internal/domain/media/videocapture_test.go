package media_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

func TestParseVideoCaptureFormat(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   media.VideoCaptureFormat
	}{
		{
			name:   "full format",
			format: "(1280x720)@30.000fps, pixel format: PIXEL_FORMAT_I420, storage: CPU",
			want:   media.VideoCaptureFormat{"resolution": "1280x720", "fps": "30.00", "storage": "CPU"},
		},
		{
			name:   "fractional rate is rounded to two decimals",
			format: "(640x480)@29.970fps",
			want:   media.VideoCaptureFormat{"resolution": "640x480", "fps": "29.97"},
		},
		{
			name:   "malformed segment is skipped",
			format: "(320x240)@15.000fps, garbage, storage: GpuMemoryBuffer",
			want:   media.VideoCaptureFormat{"resolution": "320x240", "fps": "15.00", "storage": "GpuMemoryBuffer"},
		},
		{
			name:   "unparseable rate drops only fps",
			format: "(320x240)@fastfps, storage: CPU",
			want:   media.VideoCaptureFormat{"resolution": "320x240", "storage": "CPU"},
		},
		{
			name:   "pixel format alone yields nothing",
			format: "pixel format: PIXEL_FORMAT_NV12",
			want:   media.VideoCaptureFormat{},
		},
		{
			name:   "empty input",
			format: "",
			want:   media.VideoCaptureFormat{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := media.ParseVideoCaptureFormat(tt.format)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseVideoCaptureFormat(%q) mismatch (-want +got):\n%s", tt.format, diff)
			}
		})
	}
}
