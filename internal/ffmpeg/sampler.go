package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/echohive42/video-scene-splitter/internal/detect"
	"github.com/echohive42/video-scene-splitter/pkg/util"
)

// SampleResult carries one sampled frame or the error that ended sampling
type SampleResult struct {
	Frame detect.Frame
	Err   error
}

// SampleFrames decodes every stride-th frame of the source into a lazy,
// forward-only channel of frames. One ffmpeg process does the work: a select
// filter picks the frames, showinfo reports each picked frame's true
// presentation time on stderr, and the frames stream over stdout as MJPEG.
// The channel is closed when the source is exhausted; a read failure
// mid-stream surfaces as detect.ErrSourceUnavailable and ends the stream.
func (e *Executor) SampleFrames(ctx context.Context, input string, fps float64, stride int) (<-chan SampleResult, error) {
	if stride < 1 {
		return nil, fmt.Errorf("stride must be at least 1, got %d", stride)
	}

	filter := NewFilterBuilder().
		Custom(fmt.Sprintf(`select=not(mod(n\,%d))`, stride)).
		Custom("showinfo").
		Build()

	args := []string{
		"-hide_banner", "-loglevel", "info",
		"-i", input,
		"-vf", filter,
		"-vsync", "vfr",
		"-an",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}

	e.logger.Debug().
		Str("input", input).
		Int("stride", stride).
		Msg("starting frame sampling")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrSourceUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrSourceUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrSourceUnavailable, err)
	}

	out := make(chan SampleResult, 4)
	ptsCh := make(chan time.Duration, 64)
	stderrDone := make(chan string, 1)

	// showinfo timestamps arrive on stderr, one line per selected frame,
	// strictly before the encoder emits the frame itself
	go func() {
		var tail []string
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 256*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if ts, ok := parsePTSTime(line); ok {
				select {
				case ptsCh <- ts:
				case <-ctx.Done():
				}
				continue
			}
			tail = append(tail, line)
			if len(tail) > 10 {
				tail = tail[1:]
			}
		}
		close(ptsCh)
		stderrDone <- strings.Join(tail, "\n")
	}()

	go func() {
		defer close(out)

		reader := bufio.NewReaderSize(stdout, 512*1024)
		sample := 0

		for {
			frameBytes, err := readJPEGFrame(reader)
			if err == io.EOF {
				break
			}
			if err != nil {
				e.fail(ctx, out, stderrDone, fmt.Errorf("reading frame stream: %v", err))
				cmd.Wait()
				return
			}

			img, err := jpeg.Decode(bytes.NewReader(frameBytes))
			if err != nil {
				e.fail(ctx, out, stderrDone, fmt.Errorf("decoding sampled frame %d: %v", sample, err))
				cmd.Wait()
				return
			}

			frameIndex := sample * stride
			ts, ok := nextPTS(ctx, ptsCh)
			if !ok {
				ts = util.FrameToTime(frameIndex, fps)
			}

			select {
			case out <- SampleResult{Frame: detect.Frame{Index: frameIndex, Timestamp: ts, Image: img}}:
			case <-ctx.Done():
				cmd.Wait()
				return
			}
			sample++
		}

		tail := <-stderrDone
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			// A decode failure after frames were already delivered is still
			// fatal to the run
			select {
			case out <- SampleResult{Err: fmt.Errorf("%w: ffmpeg: %v (%s)", detect.ErrSourceUnavailable, err, tail)}:
			case <-ctx.Done():
			}
			return
		}

		e.logger.Debug().Int("samples", sample).Msg("frame sampling complete")
	}()

	return out, nil
}

func (e *Executor) fail(ctx context.Context, out chan<- SampleResult, stderrDone <-chan string, cause error) {
	tail := ""
	select {
	case tail = <-stderrDone:
	default:
	}
	err := fmt.Errorf("%w: %v", detect.ErrSourceUnavailable, cause)
	if tail != "" {
		err = fmt.Errorf("%w (%s)", err, tail)
	}
	select {
	case out <- SampleResult{Err: err}:
	case <-ctx.Done():
	}
}

// nextPTS pulls the presentation time matching the next decoded frame
func nextPTS(ctx context.Context, ptsCh <-chan time.Duration) (time.Duration, bool) {
	select {
	case ts, ok := <-ptsCh:
		return ts, ok
	case <-ctx.Done():
		return 0, false
	}
}

// parsePTSTime extracts the pts_time value from a showinfo stderr line
func parsePTSTime(line string) (time.Duration, bool) {
	if !strings.Contains(line, "pts_time:") {
		return 0, false
	}

	parts := strings.Split(line, "pts_time:")
	if len(parts) != 2 {
		return 0, false
	}

	fields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(fields) == 0 {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}

// readJPEGFrame pulls one complete JPEG image out of a concatenated MJPEG
// stream. Within entropy-coded data 0xFF is always stuffed or a restart
// marker, so scanning for the EOI marker is unambiguous. Returns io.EOF
// when the stream ends cleanly between frames.
func readJPEGFrame(r *bufio.Reader) ([]byte, error) {
	// Scan to the start-of-image marker
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			continue
		}
		next, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if next == 0xD8 {
			break
		}
		if next == 0xFF {
			_ = r.UnreadByte()
		}
	}

	buf := make([]byte, 2, 64*1024)
	buf[0], buf[1] = 0xFF, 0xD8

	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf = append(buf, b)
		if b == 0xD9 && buf[len(buf)-2] == 0xFF {
			return buf, nil
		}
	}
}
