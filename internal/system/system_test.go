package system

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestCollect(t *testing.T) {
	info := Collect(context.Background(), zerolog.Nop())

	if info.PhysicalCores < 1 || info.LogicalCores < 1 {
		t.Errorf("core counts = %d/%d, want at least 1", info.PhysicalCores, info.LogicalCores)
	}
	if info.TotalMemMB == 0 {
		t.Error("total memory is zero")
	}
}

func TestDecoderSessionsBounds(t *testing.T) {
	cases := []struct {
		cores int
		want  int
	}{
		{1, 2},
		{2, 2},
		{4, 2},
		{8, 4},
		{32, 4},
	}
	for _, c := range cases {
		info := Info{PhysicalCores: c.cores}
		if got := info.DecoderSessions(); got != c.want {
			t.Errorf("DecoderSessions(%d cores) = %d, want %d", c.cores, got, c.want)
		}
	}
}

func TestEncodeThreads(t *testing.T) {
	if got := (Info{LogicalCores: 16}).EncodeThreads(); got != 0 {
		t.Errorf("big machine threads = %d, want 0 (ffmpeg decides)", got)
	}
	if got := (Info{LogicalCores: 2}).EncodeThreads(); got != 1 {
		t.Errorf("small machine threads = %d, want 1", got)
	}
	if got := (Info{LogicalCores: 4}).EncodeThreads(); got != 3 {
		t.Errorf("mid machine threads = %d, want 3", got)
	}
}
