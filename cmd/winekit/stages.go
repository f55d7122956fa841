package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/winekit/config"
	_ "github.com/rushteam/winekit/config/builders"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/evaluate"
	"github.com/rushteam/winekit/pipeline"
	"github.com/rushteam/winekit/preprocess"
	"github.com/rushteam/winekit/train"
)

func newPreprocessCmd(opts *globalOptions) *cobra.Command {
	cfg := preprocess.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Split and standardize the raw table into four headerless CSV tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, cleanup, err := opts.runContext(cfg.Seed)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := preprocess.Run(cmd.Context(), rc, cfg)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&cfg.TestRatio, "train-test-split-ratio", cfg.TestRatio, "fraction of rows held out for testing")
	f.Int64Var(&cfg.Seed, "seed", core.DefaultSeed, "split seed")
	f.StringVar(&cfg.Input, "input", cfg.Input, "raw table with a header row")
	f.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "output root; tables go to <output>/train and <output>/test")
	f.StringVar(&cfg.Delimiter, "delimiter", cfg.Delimiter, "field delimiter of the raw table")
	f.StringVar(&cfg.Filter, "filter", cfg.Filter, "CEL row filter, e.g. 'row.alcohol > 8.0'")
	f.StringVar(&cfg.Scaler, "scaler", cfg.Scaler, "scaler: standard|minmax")
	f.BoolVar(&cfg.Float32Train, "float32-train", cfg.Float32Train, "write train features at float32 precision")
	return cmd
}

func newTrainCmd(opts *globalOptions) *cobra.Command {
	cfg := train.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the random forest on the train channel and write the model bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, cleanup, err := opts.runContext(cfg.Seed)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := train.Run(cmd.Context(), rc, cfg)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.NEstimators, "n-estimators", cfg.NEstimators, "number of trees")
	f.StringVar(&cfg.MaxFeatures, "max-features", cfg.MaxFeatures, "features per split: sqrt|log2|none|<int>|<fraction>")
	f.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum tree depth (0: unlimited)")
	f.IntVar(&cfg.MinSamplesSplit, "min-samples-split", cfg.MinSamplesSplit, "minimum samples to split a node")
	f.IntVar(&cfg.MinSamplesLeaf, "min-samples-leaf", cfg.MinSamplesLeaf, "minimum samples per leaf")
	f.Int64Var(&cfg.Seed, "seed", core.DefaultSeed, "forest seed")
	f.IntVar(&cfg.CVFolds, "cv-folds", cfg.CVFolds, "cross-validation folds on the training data (0: skip)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent tree builders (0: GOMAXPROCS)")
	f.BoolVar(&cfg.Bundle, "bundle", cfg.Bundle, "also write model.tar.gz")
	f.StringVar(&cfg.ModelDir, "model-dir", cfg.ModelDir, "model output directory (env SM_MODEL_DIR)")
	f.StringVar(&cfg.TrainDir, "train", cfg.TrainDir, "train channel directory (env SM_CHANNEL_TRAIN)")
	f.StringVar(&cfg.TestDir, "test", cfg.TestDir, "test channel directory (env SM_CHANNEL_TEST)")
	f.StringVar(&cfg.TrainFeaturesFile, "train_file_features", cfg.TrainFeaturesFile, "train features file name")
	f.StringVar(&cfg.TrainLabelsFile, "train_file_labels", cfg.TrainLabelsFile, "train labels file name")
	f.StringVar(&cfg.TestFeaturesFile, "test_file_features", cfg.TestFeaturesFile, "test features file name")
	f.StringVar(&cfg.TestLabelsFile, "test_file_labels", cfg.TestLabelsFile, "test labels file name")
	return cmd
}

func newEvaluateCmd(opts *globalOptions) *cobra.Command {
	cfg := evaluate.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the model bundle on the test tables and write evaluation.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, cleanup, err := opts.runContext(0)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := evaluate.Run(cmd.Context(), rc, cfg)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model bundle (.tar.gz) or model.json")
	f.StringVar(&cfg.TestDir, "test", cfg.TestDir, "test tables directory")
	f.StringVar(&cfg.TestFeaturesFile, "test_file_features", cfg.TestFeaturesFile, "test features file name")
	f.StringVar(&cfg.TestLabelsFile, "test_file_labels", cfg.TestLabelsFile, "test labels file name")
	f.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "report output path")
	return cmd
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stages listed in a pipeline config file in-process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.Load(path)
			if err != nil {
				return err
			}
			if err := config.ValidatePipelineConfig(cfg); err != nil {
				return err
			}
			p, err := cfg.BuildPipeline(config.DefaultFactory())
			if err != nil {
				return err
			}
			rc, cleanup, err := opts.runContext(cfg.Pipeline.Seed)
			if err != nil {
				return err
			}
			defer cleanup()
			opts.logger.Info("pipeline started", "name", cfg.Pipeline.Name, "run_id", rc.RunID, "stages", len(p.Nodes))
			state, err := p.Run(cmd.Context(), rc, nil)
			if err != nil {
				return err
			}
			return printJSON(state)
		},
	}
	cmd.Flags().StringVar(&path, "config", "pipeline.yaml", "pipeline config (YAML or JSON)")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("print result: %w", err)
	}
	return nil
}
