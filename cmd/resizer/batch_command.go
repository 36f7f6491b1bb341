package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	domainimage "image-resizer-go/internal/domain/image"
	"image-resizer-go/internal/platform/config"
)

const lockFileName = ".resizer.lock"

type batchOptions struct {
	input  string
	output string
	width  int
	height int
	format string
	zip    bool
	json   bool
}

type batchItemResult struct {
	Source string `json:"source"`
	Output string `json:"output,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type batchResult struct {
	Input     string            `json:"input"`
	Output    string            `json:"output"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Format    string            `json:"format"`
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Archive   string            `json:"archive,omitempty"`
	Items     []batchItemResult `json:"items"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Resize every image of a folder",
		Long: "Resize every image of the input folder to WIDTHxHEIGHT and write the results\n" +
			"to the output folder, or into a single zip archive with --zip.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("width") {
				opts.width = cfg.Resize.DefaultWidth
			}
			if !cmd.Flags().Changed("height") {
				opts.height = cfg.Resize.DefaultHeight
			}
			return runBatch(cmd, ctx, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "input_images", "Folder with the source images")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "resized_images", "Folder receiving the resized images")
	cmd.Flags().IntVarP(&opts.width, "width", "w", 800, "Target width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 600, "Target height in pixels")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format (JPEG, PNG, GIF, BMP, TIFF, WEBP); default keeps the source format")
	cmd.Flags().BoolVar(&opts.zip, "zip", false, "Write one zip archive instead of loose files")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")

	return cmd
}

func runBatch(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, opts *batchOptions) error {
	format, err := domainimage.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	spec := domainimage.ResizeSpec{Width: opts.width, Height: opts.height, Format: format}
	if err := spec.Validate(); err != nil {
		return err
	}

	items, err := collectInputs(opts.input, cfg.Limits.AllowedExtensions)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	lock := flock.New(filepath.Join(opts.output, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output folder: %w", err)
	}
	if !locked {
		return fmt.Errorf("output folder %s is in use by another resizer run", opts.output)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	logger, err := ctx.consoleLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	// the folder is trusted input, so only the extension allow-list applies
	resizer := domainimage.New(domainimage.Options{
		Limits: domainimage.Limits{
			MaxItems:          len(items),
			MaxTotalBytes:     math.MaxInt64,
			AllowedExtensions: cfg.Limits.AllowedExtensions,
		},
		Workers:          cfg.Resize.Workers,
		JPEGQuality:      cfg.Resize.JPEGQuality,
		CompressionLevel: &cfg.Resize.CompressionLevel,
		Logger:           logger,
	})

	summary, runErr := resizer.Resize(cmd.Context(), items, spec)
	if summary == nil {
		return runErr
	}

	result := batchResult{
		Input:  opts.input,
		Output: opts.output,
		Width:  spec.Width,
		Height: spec.Height,
		Format: formatName(spec.Format),
	}
	if runErr == nil {
		if opts.zip {
			result.Archive, err = writeArchive(resizer, summary, opts.output)
		} else {
			err = writeOutputs(summary, opts.output)
		}
		if err != nil {
			return err
		}
	}
	fillResult(&result, summary, opts.output, opts.zip && runErr == nil)

	if opts.json {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printResult(cmd, result)
	}

	if errors.Is(runErr, domainimage.ErrNoSuccess) {
		return fmt.Errorf("no images were processed successfully (%d failed)", summary.FailureCount)
	}
	return runErr
}

// collectInputs reads the allow-listed files directly inside dir in name
// order. Sub folders are ignored.
func collectInputs(dir string, allowed []string) ([]domainimage.RawItem, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input folder %q does not exist", dir)
		}
		return nil, fmt.Errorf("input folder %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %q is not a folder", dir)
	}

	allow := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		allow[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input folder: %w", err)
	}

	var items []domainimage.RawItem
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if _, ok := allow[ext]; !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		items = append(items, domainimage.RawItem{Name: entry.Name(), Data: data})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no image files found in %q", dir)
	}
	return items, nil
}

func writeOutputs(summary *domainimage.BatchSummary, dir string) error {
	for _, s := range summary.Successes() {
		if err := os.WriteFile(filepath.Join(dir, s.OutputName), s.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", s.OutputName, err)
		}
	}
	return nil
}

func writeArchive(resizer *domainimage.Resizer, summary *domainimage.BatchSummary, dir string) (string, error) {
	report, err := resizer.Package(summary)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, report.SuggestedFileName)
	if err := os.WriteFile(path, report.ArchiveBytes, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}

func fillResult(result *batchResult, summary *domainimage.BatchSummary, dir string, zipped bool) {
	result.Processed = summary.SuccessCount
	result.Failed = summary.FailureCount
	for _, o := range summary.Outcomes {
		item := batchItemResult{Source: o.SourceName}
		if o.OK() {
			item.Status = "ok"
			item.Bytes = len(o.Success.Data)
			item.Output = o.Success.OutputName
			if !zipped {
				item.Output = filepath.Join(dir, o.Success.OutputName)
			}
		} else {
			item.Status = "failed"
			item.Reason = string(o.Failure.Reason)
		}
		result.Items = append(result.Items, item)
	}
}

func printResult(cmd *cobra.Command, result batchResult) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(result.Items))
	var total uint64
	for _, item := range result.Items {
		size := ""
		status := item.Status
		if item.Status == "ok" {
			size = humanize.Bytes(uint64(item.Bytes))
			total += uint64(item.Bytes)
		} else {
			status = item.Status + ": " + item.Reason
		}
		rows = append(rows, []string{item.Source, filepath.Base(item.Output), size, status})
	}
	footer := []string{
		"",
		strconv.Itoa(result.Processed) + " written",
		humanize.Bytes(total),
		strconv.Itoa(result.Failed) + " failed",
	}

	fmt.Fprintf(out, "Resized to %dx%d (%s)\n", result.Width, result.Height, result.Format)
	fmt.Fprintln(out, renderTable(
		[]string{"Source", "Output", "Size", "Status"},
		rows,
		footer,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	if result.Archive != "" {
		fmt.Fprintf(out, "Archive: %s\n", result.Archive)
	} else if result.Processed > 0 {
		fmt.Fprintf(out, "Output folder: %s\n", result.Output)
	}
}

func formatName(f domainimage.Format) string {
	if f == domainimage.FormatNone {
		return "source format"
	}
	return f.String()
}
