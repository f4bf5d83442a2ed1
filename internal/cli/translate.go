package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/adrianmusante/subtitle-tools/internal/detect"
	"github.com/adrianmusante/subtitle-tools/internal/fs"
	"github.com/adrianmusante/subtitle-tools/internal/llm"
	"github.com/adrianmusante/subtitle-tools/internal/logging"
	"github.com/adrianmusante/subtitle-tools/internal/provider"
	"github.com/adrianmusante/subtitle-tools/internal/run"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
	"github.com/adrianmusante/subtitle-tools/internal/translate"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate [flags] <input-file>",
	Short: "Translate subtitles to another language, routing through whichever provider can carry the target language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := resolveBoolFlagFromEnv(cmd, flagDryRun, envDryRun); err != nil {
			return err
		}
		if err := resolveStringFlagFromEnv(cmd, flagWorkdir, envWorkdir); err != nil {
			return err
		}
		if err := resolveIntFlagFromEnv(cmd, flagMaxBatchChars, envTranslateMaxBatchChars); err != nil {
			return err
		}
		if err := resolveIntFlagFromEnv(cmd, flagMaxWorkers, envTranslateMaxWorkers); err != nil {
			return err
		}
		if err := resolveFloat64FlagFromEnv(cmd, flagRPS, envTranslateRPS); err != nil {
			return err
		}

		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		inputPath := args[0]
		if inputPath == "-" {
			return errors.New("stdin is not supported yet; pass a subtitle file path")
		}
		absInput, err := fs.ResolveAbsPath(inputPath)
		if err != nil {
			return err
		}
		inputPath = absInput

		outputPath, _ := cmd.Flags().GetString(flagOutput)
		if outputPath == "" {
			return errors.New("--output is required and must not exist (we never overwrite on translate)")
		}
		absOutput, err := fs.ResolveAbsPath(outputPath)
		if err != nil {
			return err
		}
		outputPath = absOutput
		if _, err := os.Stat(outputPath); err == nil {
			return errors.New("output file already exists")
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := fs.ValidatePathWritable(outputPath); err != nil {
			return fmt.Errorf("invalid --output path %s: %w", outputPath, err)
		}

		vttOutputPath, _ := cmd.Flags().GetString("vtt-output")
		if vttOutputPath != "" {
			abs, err := fs.ResolveAbsPath(vttOutputPath)
			if err != nil {
				return err
			}
			vttOutputPath = abs
		}

		sourceLang, _ := cmd.Flags().GetString(flagSourceLanguage)
		targetLang, _ := cmd.Flags().GetString(flagTargetLanguage)
		providerHint, _ := cmd.Flags().GetString("provider")
		dryRun, _ := cmd.Flags().GetBool(flagDryRun)
		workdir, _ := cmd.Flags().GetString(flagWorkdir)
		maxBatchChars, _ := cmd.Flags().GetInt(flagMaxBatchChars)
		maxWorkers, _ := cmd.Flags().GetInt(flagMaxWorkers)
		rps, _ := cmd.Flags().GetFloat64(flagRPS)
		skipDetect, _ := cmd.Flags().GetBool("skip-detect")
		detectBatchSize, _ := cmd.Flags().GetInt("detect-batch-size")

		if workdir != "" {
			absWorkdir, err := fs.ResolveAbsPath(workdir)
			if err != nil {
				return err
			}
			workdir = absWorkdir
		}

		runWorkdir, cleanup, err := run.NewWorkdir(workdir, "translate")
		if err != nil {
			return err
		}
		log.Debug("using workdir", "workdir", runWorkdir)
		if !dryRun {
			defer cleanup()
		}

		file, warnings, err := srt.ParseFile(inputPath)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			log.Warn("skipped malformed subtitle block", "index", w.Index, "reason", w.Reason)
		}

		discoverOpts := provider.DiscoverOptionsFromEnv()
		reg := provider.DiscoverRegistry(discoverOpts)

		if !skipDetect {
			if discoverOpts.LLMAPIKey == "" {
				return errors.New("language detection requires SUBTITLE_PIPELINE_LLM_API_KEY (or pass --skip-detect to translate without detection)")
			}
			classifier := &detect.LLMClassifier{Client: &llm.Client{
				BaseURL:      discoverOpts.LLMBaseURL,
				APIKey:       discoverOpts.LLMAPIKey,
				Model:        discoverOpts.LLMModel,
				RetryOptions: discoverOpts.RetryOptions,
			}}
			detectRes, err := detect.Detect(ctx, classifier, file, detect.Options{BatchSize: detectBatchSize})
			if err != nil {
				return err
			}
			log.Info("language detection complete",
				"classified", detectRes.Classified,
				"fallback_singles", detectRes.FallbackSingles,
				"failed", detectRes.Failed)
		}

		opts := translate.Options{
			InputPath:          inputPath,
			OutputPath:         outputPath,
			VTTOutputPath:      vttOutputPath,
			DryRun:             dryRun,
			WorkDir:            runWorkdir,
			SourceLanguage:     sourceLang,
			TargetLanguage:     targetLang,
			ProviderHint:       provider.ID(providerHint),
			Registry:           reg,
			BatchSizeTranslate: maxBatchChars,
			MaxWorkers:         maxWorkers,
			RPS:                rps,
		}

		log.Debug("translate run", "target_language", targetLang, "provider_hint", providerHint)

		res, err := translate.Run(ctx, file, opts)
		if err != nil {
			return err
		}

		log.Info("translated subtitles written",
			"path", res.WrittenPath,
			"vtt_path", res.VTTWrittenPath,
			"batches", res.Batches,
			"translated", res.Translated,
			"preserved", res.Preserved)
		if len(res.PreservedKeys) > 0 {
			log.Warn("some segments could not be translated and were preserved verbatim", "count", len(res.PreservedKeys))
		}
		return nil
	},
}

func init() {
	_ = translateCmd.Flags().StringP(flagOutput, flagOutputShorthand, "", "Output file path (required; must not already exist)")
	_ = translateCmd.Flags().String("vtt-output", "", "Optional WebVTT sibling output path")
	_ = translateCmd.Flags().String(flagSourceLanguage, "", "Source language hint (e.g. en) passed to the provider for every batch; detection only decides which segments are skipped")
	_ = translateCmd.Flags().String(flagTargetLanguage, "", "Target language (e.g. de, he, en)")
	_ = translateCmd.Flags().String("provider", "", "Preferred provider id (bulk, cloud, llm); ignored when the target language requires Hebrew-capable routing")
	_ = translateCmd.Flags().Bool(flagDryRun, false, "Write output to a temporary file and do not create the final output file")
	_ = translateCmd.Flags().StringP(flagWorkdir, flagWorkdirShorthand, "", "Working directory base. If set, a unique subdirectory is created per run")
	_ = translateCmd.Flags().Int(flagMaxBatchChars, translate.DefaultBatchSizeTranslate, "Number of unique texts grouped per translation batch")
	_ = translateCmd.Flags().Int(flagMaxWorkers, translate.DefaultMaxWorkers, "Number of concurrent translation workers (batches in-flight)")
	_ = translateCmd.Flags().Float64(flagRPS, translate.DefaultRequestPerSecond, "Max requests per second (0 disables rate limiting)")
	_ = translateCmd.Flags().Bool("skip-detect", false, "Skip per-segment language detection (segments are translated unconditionally)")
	_ = translateCmd.Flags().Int("detect-batch-size", detect.DefaultBatchSize, "Segments per language-detection batch")

	_ = translateCmd.MarkFlagRequired(flagTargetLanguage)
}
