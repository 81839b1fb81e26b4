package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/pipeline"
)

// dotsCommand creates the dots command: generate only and print statistics.
func (c *CLI) dotsCommand() *cobra.Command {
	var (
		gen  genFlags
		save string
	)

	cmd := &cobra.Command{
		Use:   "dots [image]",
		Short: "Generate dots and print statistics without writing drawings",
		Long: `Generate dots and print statistics without writing drawings.

Use this to tune policy parameters quickly: it reports the dot count, the
diameter range and the share of the canvas the dots cover. The generated set
is cached just like 'render', so a following render with the same
parameters skips generation. --save writes the set in the binary dot format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{}
			if err := c.applyGenFlags(cmd, &gen, args[0], &opts); err != nil {
				return err
			}
			return c.runDots(cmd.Context(), opts, save)
		},
	}

	gen.register(cmd)
	cmd.Flags().StringVar(&save, "save", "", "write the dot set to this file")
	c.registerValueCompletions(cmd)

	return cmd
}

// runDots loads and generates, then prints a summary.
func (c *CLI) runDots(ctx context.Context, opts pipeline.Options, save string) error {
	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = loggerFromContext(ctx)
	prog := newProgress(opts.Logger)

	in, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Generating %s...", filepath.Base(in.Path)))
	spinner.Start()

	set, cached, err := runner.GenerateWithCacheInfo(ctx, in, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Generated %d dots", set.Len()))

	printSuccess("Generation complete")
	printStats(set, cached)
	printNewline()
	printSummary(set.Summarize(), set.Unit.String())

	if save != "" {
		if err := saveDots(save, set); err != nil {
			return err
		}
		printFile(save)
	}
	return nil
}

// saveDots writes set in the binary dot format.
func saveDots(path string, set dots.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	if err := set.Encode(w); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}
