package cli

import (
	"errors"
	"strings"

	"github.com/adrianmusante/subtitle-tools/internal/detect"
	"github.com/adrianmusante/subtitle-tools/internal/fs"
	"github.com/adrianmusante/subtitle-tools/internal/llm"
	"github.com/adrianmusante/subtitle-tools/internal/logging"
	"github.com/adrianmusante/subtitle-tools/internal/provider"
	"github.com/adrianmusante/subtitle-tools/internal/reprocess"
	"github.com/adrianmusante/subtitle-tools/internal/run"
	"github.com/spf13/cobra"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [flags] <interviews-dir>",
	Short: "Reprocess translations across a fleet of interviews with backup, resume, and rollback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := resolveStringFlagFromEnv(cmd, flagWorkdir, envWorkdir); err != nil {
			return err
		}
		if err := resolveIntFlagFromEnv(cmd, "batch-size", envReprocessBatchSize); err != nil {
			return err
		}
		if err := resolveIntFlagFromEnv(cmd, "detect-batch-size", envReprocessDetectBatchSize); err != nil {
			return err
		}
		if err := resolveIntFlagFromEnv(cmd, "workers", envReprocessWorkers); err != nil {
			return err
		}

		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		interviewsDir := args[0]
		absDir, err := fs.ResolveAbsPath(interviewsDir)
		if err != nil {
			return err
		}

		backupRoot, _ := cmd.Flags().GetString("backup-root")
		if backupRoot == "" {
			return errors.New("--backup-root is required")
		}
		absBackupRoot, err := fs.ResolveAbsPath(backupRoot)
		if err != nil {
			return err
		}

		targetLangsRaw, _ := cmd.Flags().GetString(flagTargetLanguage)
		if targetLangsRaw == "" {
			return errors.New("--target-language is required (comma-separated for multiple)")
		}
		var targetLangs []string
		for _, l := range strings.Split(targetLangsRaw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				targetLangs = append(targetLangs, l)
			}
		}

		batchSize, _ := cmd.Flags().GetInt("batch-size")
		detectBatchSize, _ := cmd.Flags().GetInt("detect-batch-size")
		limit, _ := cmd.Flags().GetInt("limit")
		startFrom, _ := cmd.Flags().GetInt("start-from")
		forceAll, _ := cmd.Flags().GetBool("force-all")
		workers, _ := cmd.Flags().GetInt("workers")
		skipDetect, _ := cmd.Flags().GetBool("skip-detect")
		workdir, _ := cmd.Flags().GetString(flagWorkdir)

		if workdir != "" {
			abs, err := fs.ResolveAbsPath(workdir)
			if err != nil {
				return err
			}
			workdir = abs
		}
		runWorkdir, cleanup, err := run.NewWorkdir(workdir, "reprocess")
		if err != nil {
			return err
		}
		defer cleanup()

		discoverOpts := provider.DiscoverOptionsFromEnv()
		reg := provider.DiscoverRegistry(discoverOpts)

		var classifier detect.Classifier
		if !skipDetect && discoverOpts.LLMAPIKey != "" {
			classifier = &detect.LLMClassifier{Client: &llm.Client{
				BaseURL:      discoverOpts.LLMBaseURL,
				APIKey:       discoverOpts.LLMAPIKey,
				Model:        discoverOpts.LLMModel,
				RetryOptions: discoverOpts.RetryOptions,
			}}
		} else if !skipDetect {
			log.Warn("no LLM credentials configured; proceeding without language detection (segments will be translated unconditionally)")
			skipDetect = true
		}

		opts := reprocess.Options{
			Registry:                &reprocess.FilesystemRegistry{Root: absDir},
			TargetLanguages:         targetLangs,
			BackupRoot:              absBackupRoot,
			WorkDir:                 runWorkdir,
			Limit:                   limit,
			StartFrom:               startFrom,
			ForceAll:                forceAll,
			Workers:                 workers,
			ProviderRegistry:        reg,
			Classifier:              classifier,
			SkipDetect:              skipDetect,
			BatchSizeTranslate:      batchSize,
			DetectBatchSize:         detectBatchSize,
			LowSuccessRateThreshold: reprocess.DefaultLowSuccessRateThreshold,
		}

		summary, err := reprocess.Run(ctx, opts)
		if err != nil {
			return err
		}

		log.Info("batch reprocess complete",
			"batch_id", summary.BatchID,
			"processed", summary.Processed,
			"successful", summary.Successful,
			"failed", summary.Failed,
			"success_rate", summary.SuccessRate())

		if summary.Failed > 0 {
			return errors.New("one or more interviews failed; see progress log for details")
		}
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback [flags]",
	Short: "Restore backed-up .srt files for a batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		backupRoot, _ := cmd.Flags().GetString("backup-root")
		batchID, _ := cmd.Flags().GetString("batch-id")
		if backupRoot == "" || batchID == "" {
			return errors.New("--backup-root and --batch-id are required")
		}
		absBackupRoot, err := fs.ResolveAbsPath(backupRoot)
		if err != nil {
			return err
		}

		if err := reprocess.Rollback(ctx, absBackupRoot, batchID); err != nil {
			return err
		}
		log.Info("rollback complete", "batch_id", batchID)
		return nil
	},
}

func init() {
	reprocessCmd.Flags().String("backup-root", "", "Root directory for per-batch backups and progress artifacts")
	reprocessCmd.Flags().String(flagTargetLanguage, "", "Comma-separated target languages (e.g. de,he,en)")
	reprocessCmd.Flags().Int("batch-size", 0, "Unique texts grouped per translation batch (0 = translate package default)")
	reprocessCmd.Flags().Int("detect-batch-size", detect.DefaultBatchSize, "Segments per language-detection batch")
	reprocessCmd.Flags().Int("limit", 0, "Maximum number of interviews to process (0 = no limit)")
	reprocessCmd.Flags().Int("start-from", 0, "Skip the first N interviews of the discovery order")
	reprocessCmd.Flags().Bool("force-all", false, "Reprocess interviews even if the preservation marker is already present")
	reprocessCmd.Flags().Int("workers", 1, "Number of interviews processed concurrently (1 = sequential, the default for determinism)")
	reprocessCmd.Flags().Bool("skip-detect", false, "Skip per-segment language detection")
	reprocessCmd.Flags().StringP(flagWorkdir, flagWorkdirShorthand, "", "Working directory base for translate sub-runs")
	_ = reprocessCmd.MarkFlagRequired("backup-root")
	_ = reprocessCmd.MarkFlagRequired(flagTargetLanguage)

	rollbackCmd.Flags().String("backup-root", "", "Root directory for per-batch backups")
	rollbackCmd.Flags().String("batch-id", "", "Batch ID to roll back")
	_ = rollbackCmd.MarkFlagRequired("backup-root")
	_ = rollbackCmd.MarkFlagRequired("batch-id")

	rootCmd.AddCommand(reprocessCmd)
	rootCmd.AddCommand(rollbackCmd)
}
