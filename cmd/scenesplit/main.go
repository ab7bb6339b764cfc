package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/echohive42/video-scene-splitter/internal/config"
	"github.com/echohive42/video-scene-splitter/internal/ffmpeg"
	"github.com/echohive42/video-scene-splitter/internal/logging"
	"github.com/echohive42/video-scene-splitter/internal/pipeline"
	"github.com/echohive42/video-scene-splitter/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scenesplit",
	Short: "scenesplit - video scene boundary detection and splitting",
	Long:  "Detects scene changes in a video by combining frame differencing with a vision model, then cuts the video into per-scene files and writes an analysis report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

var (
	outputDir       string
	stride          int
	batchSize       int
	motionThreshold float64
	minSeparation   int
	noJudge         bool
	model           string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	splitCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for scene files")
	splitCmd.Flags().IntVar(&stride, "stride", 0, "sample every Nth frame")
	splitCmd.Flags().IntVar(&batchSize, "batch-size", 0, "frames per vision judge call")
	splitCmd.Flags().Float64Var(&motionThreshold, "motion-threshold", 0, "mean pixel difference that counts as motion (0-255)")
	splitCmd.Flags().IntVar(&minSeparation, "min-separation", 0, "minimum frames between scene cuts")
	splitCmd.Flags().BoolVar(&noJudge, "no-judge", false, "skip the vision judge, use motion detection only")
	splitCmd.Flags().StringVar(&model, "model", "", "vision model to consult")

	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(probeCmd)
}

var splitCmd = &cobra.Command{
	Use:   "split [input video]",
	Short: "Split a video into scenes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		applyFlagOverrides(cfg)

		if !cfg.Judge.Disabled && os.Getenv("OPENAI_API_KEY") == "" {
			log.Warn().Msg("OPENAI_API_KEY not set, falling back to motion detection only")
			cfg.Judge.Disabled = true
		}

		splitter, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer splitter.Close()

		opts := pipeline.Options{
			OnProgress: func(p pipeline.Progress) {
				log.Debug().
					Int("samples", p.Samples).
					Str("position", util.FormatDuration(p.Timestamp)).
					Msg("sampling")
			},
		}

		result, err := splitter.Run(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		failed := 0
		for _, s := range result.Scenes {
			if s.Failed() {
				failed++
			}
		}

		log.Info().
			Int("scenes", len(result.Scenes)).
			Int("failed_writes", failed).
			Int("boundaries", len(result.Boundaries)).
			Bool("degraded", result.JudgeDegraded()).
			Str("report", result.ReportPath).
			Msg("scene split complete")

		if failed > 0 {
			return fmt.Errorf("%d of %d scenes failed to write", failed, len(result.Scenes))
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Show video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Duration:   %s\n", util.FormatDuration(info.Duration))
		fmt.Printf("Resolution: %dx%d\n", info.Width, info.Height)
		fmt.Printf("FPS:        %.2f\n", info.FPS)
		fmt.Printf("Frames:     %d\n", info.TotalFrames())
		fmt.Printf("Codec:      %s\n", info.VideoCodec)

		return nil
	},
}

// applyFlagOverrides lets command line flags win over the config file
func applyFlagOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if stride > 0 {
		cfg.FrameStride = stride
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	if motionThreshold > 0 {
		cfg.MotionThreshold = motionThreshold
	}
	if minSeparation > 0 {
		cfg.MinSeparationFrames = minSeparation
	}
	if noJudge {
		cfg.Judge.Disabled = true
	}
	if model != "" {
		cfg.Judge.Model = model
	}
}
