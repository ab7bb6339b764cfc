package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// TotalFrames estimates the number of frames in the source from its duration
// and native frame rate. Containers rarely carry an exact count.
func (v *VideoInfo) TotalFrames() int {
	if v.FPS <= 0 {
		return 0
	}
	return int(v.Duration.Seconds()*v.FPS + 0.5)
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)
