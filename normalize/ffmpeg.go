package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

type VideoInfo struct {
	Dims      [2]int
	Framerate [2]int
	// Duration in seconds, zero if unknown.
	Duration float64
	Frames   int
}

func (info VideoInfo) FPS() float64 {
	if info.Framerate[1] == 0 {
		return 0
	}
	return float64(info.Framerate[0]) / float64(info.Framerate[1])
}

// Tool inspects and trims video files.
type Tool interface {
	Probe(ctx context.Context, fname string) (VideoInfo, error)
	// Trim encodes the first frames frames of src into a new mp4 file dst.
	Trim(ctx context.Context, src string, dst string, frames int) error
}

// Ffmpeg implements Tool with the ffprobe and ffmpeg binaries.
type Ffmpeg struct {
	FfmpegPath  string
	FfprobePath string
}

func (f Ffmpeg) ffmpeg() string {
	if f.FfmpegPath == "" {
		return "ffmpeg"
	}
	return f.FfmpegPath
}

func (f Ffmpeg) ffprobe() string {
	if f.FfprobePath == "" {
		return "ffprobe"
	}
	return f.FfprobePath
}

func (f Ffmpeg) Probe(ctx context.Context, fname string) (VideoInfo, error) {
	out, err := Output(
		ctx, "ffprobe", f.ffprobe(),
		"-v", "error", "-select_streams", "v:0", "-count_packets",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,duration,nb_frames,nb_read_packets",
		"-of", "json",
		fname,
	)
	if err != nil {
		return VideoInfo{}, err
	}
	return parseProbe(out)
}

// Parses ffprobe JSON output. The container frame count (nb_frames) is
// preferred; nb_read_packets is the fallback when the container lacks it.
func parseProbe(out []byte) (VideoInfo, error) {
	if !gjson.ValidBytes(out) {
		return VideoInfo{}, fmt.Errorf("ffprobe returned invalid JSON")
	}
	stream := gjson.GetBytes(out, "streams.0")
	if !stream.Exists() {
		return VideoInfo{}, fmt.Errorf("no video stream")
	}
	info := VideoInfo{
		Dims:     [2]int{int(stream.Get("width").Int()), int(stream.Get("height").Int())},
		Duration: stream.Get("duration").Float(),
	}
	rate, err := parseRate(stream.Get("r_frame_rate").String())
	if err != nil || rate[0] == 0 {
		rate, err = parseRate(stream.Get("avg_frame_rate").String())
	}
	if err == nil {
		info.Framerate = rate
	}
	info.Frames = int(stream.Get("nb_frames").Int())
	if info.Frames <= 0 {
		info.Frames = int(stream.Get("nb_read_packets").Int())
	}
	return info, nil
}

// Parses a rate like "30000/1001".
func parseRate(s string) ([2]int, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	num, err := strconv.Atoi(parts[0])
	if err != nil {
		return [2]int{}, fmt.Errorf("bad frame rate %q", s)
	}
	den := 1
	if len(parts) == 2 {
		den, err = strconv.Atoi(parts[1])
		if err != nil {
			return [2]int{}, fmt.Errorf("bad frame rate %q", s)
		}
	}
	if den == 0 {
		return [2]int{0, 1}, nil
	}
	return [2]int{num, den}, nil
}

func (f Ffmpeg) Trim(ctx context.Context, src string, dst string, frames int) error {
	cmd, err := Command(
		ctx, "ffmpeg-trim", CommandOptions{NoStdout: true},
		f.ffmpeg(),
		"-nostdin", "-y", "-v", "error",
		"-i", src,
		"-map", "0:v:0",
		"-frames:v", strconv.Itoa(frames),
		"-c:v", "libx264", "-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p",
		"-an",
		"-f", "mp4", "-movflags", "+faststart",
		dst,
	)
	if err != nil {
		return err
	}
	return cmd.Wait()
}
