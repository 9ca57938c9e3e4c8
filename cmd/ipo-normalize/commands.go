package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand.
type options struct {
	file    string
	now     string
	aliases string
	pretty  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "ipo-normalize",
		Short:         "Normalize raw IPO records into display records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "JSON file or directory of *.json files")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "reference time (YYYY-MM-DD or RFC3339); defaults to the current time")
	root.PersistentFlags().StringVar(&opts.aliases, "aliases", "", "YAML alias override file")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newNormalizeCmd(opts), newBucketsCmd(opts), newExportCmd(opts), newCheckCmd(opts))
	return root
}

func newNormalizeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Print canonical records as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadAndNormalize(cmd, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd, opts, records)
		},
	}
}

func newBucketsCmd(opts *options) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Print how many records fall into each status/window bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadAndNormalize(cmd, opts)
			if err != nil {
				return err
			}
			buckets := services.GroupIntoBuckets(records)
			if full {
				return writeJSON(cmd, opts, buckets)
			}

			counts := buckets.Counts()
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", name, counts[name])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print bucketed records instead of counts")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write canonical records to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadAndNormalize(cmd, opts)
			if err != nil {
				return err
			}
			if err := services.ExportRecordsToXLSX(records, out); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "ipos.xlsx", "output workbook path")
	return cmd
}

func loadAndNormalize(cmd *cobra.Command, opts *options) ([]models.CanonicalIPO, error) {
	raws, err := loadRaw(cmd, opts)
	if err != nil {
		return nil, err
	}
	normalizer, err := newNormalizer(opts)
	if err != nil {
		return nil, err
	}
	return normalizer.NormalizeAll(raws)
}

func loadRaw(cmd *cobra.Command, opts *options) ([]models.RawIPORecord, error) {
	return services.NewJSONFileSource(opts.file).LoadRecords(cmd.Context())
}

func newNormalizer(opts *options) (*services.Normalizer, error) {
	now := time.Now()
	if opts.now != "" {
		parsed, err := services.NewUtilityService().ParseReferenceTime(opts.now)
		if err != nil {
			return nil, err
		}
		now = parsed
	}

	registry := services.NewDefaultAliasRegistry()
	if opts.aliases != "" {
		loaded, err := services.LoadAliasRegistry(opts.aliases)
		if err != nil {
			return nil, err
		}
		registry = loaded
	}

	return services.NewNormalizer(services.NewFieldResolver(registry), shared.FixedClock{At: now}), nil
}

func writeJSON(cmd *cobra.Command, opts *options, value interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	if opts.pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(value)
}
