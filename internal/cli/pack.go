package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/logging"
	"github.com/piwi3910/cutplan/internal/model"
)

// packOpts holds the output flags of the pack command.
type packOpts struct {
	out    string
	pdf    string
	labels string
	xlsx   string
	dxf    string
}

// bindJobFlags registers the input flags shared by pack and compare.
func bindJobFlags(cmd *cobra.Command, f *jobFlags) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "sheet size as WIDTHxHEIGHT in mm, e.g. 2000x1000")
	cmd.Flags().StringVar(&f.parts, "parts", "", "part list: .csv, .xlsx, .dxf or a .json cut request")
	cmd.Flags().StringVar(&f.heuristic, "heuristic", "", "placement heuristic (best-area-fit, best-short-side-fit, best-long-side-fit, first-fit)")
	cmd.Flags().StringVar(&f.ordering, "ordering", "", "part ordering (input, area-desc, genetic)")
	cmd.Flags().StringVar(&f.split, "split", "", "guillotine split rule (right-full, bottom-full, shorter-leftover, minimize-area)")
	cmd.Flags().BoolVar(&f.noRotate, "no-rotate", false, "never rotate parts")
	cmd.Flags().BoolVar(&f.merge, "merge", false, "merge adjacent free rectangles")
	cmd.Flags().Float64Var(&f.minOffcut, "min-offcut", 0, "smallest side (mm) of a reported offcut")
}

// packCommand creates the command that packs a part list from the terminal.
func (c *CLI) packCommand() *cobra.Command {
	var jf jobFlags
	var opts packOpts

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack a part list onto a sheet and write the plan",
		Example: `  cutplan pack --sheet 2440x1220 --parts cabinet.csv --pdf cabinet.pdf
  cutplan pack --parts request.json --ordering genetic --out plan.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.loadJob(jf, cmd.Flags().Changed("no-rotate"), cmd.Flags().Changed("merge"))
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), c.Logger)
			progress := logging.NewProgress(c.Logger)
			plan, err := engine.Pack(ctx, job.Sheet, job.Parts, job.Options)
			if err != nil {
				return err
			}
			progress.Done("Packed", "parts", len(job.Parts), "placed", len(plan.Placements))

			c.printSummary(plan)
			return c.writeOutputs(plan, opts)
		},
	}

	bindJobFlags(cmd, &jf)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the plan as JSON (- for stdout)")
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "write a PDF cut sheet")
	cmd.Flags().StringVar(&opts.labels, "labels", "", "write a PDF of QR part labels")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "write an XLSX cut list")
	cmd.Flags().StringVar(&opts.dxf, "dxf", "", "write a DXF layout")
	return cmd
}

func (c *CLI) printSummary(plan model.CutPlan) {
	c.printTitle("Plan %s", plan.ID)
	c.printKeyValue("Sheet", fmt.Sprintf("%g x %g mm", plan.Sheet.Width, plan.Sheet.Height))
	c.printKeyValue("Placed", fmt.Sprintf("%d", len(plan.Placements)))
	c.printKeyValue("Efficiency", fmt.Sprintf("%.1f%%", plan.Efficiency()))
	c.printKeyValue("Waste", fmt.Sprintf("%.0f mm²", plan.Waste))
	c.printKeyValue("Offcuts", fmt.Sprintf("%d", len(plan.Offcuts)))
	if !plan.Complete() {
		c.printWarning("%d part(s) did not fit: %v", len(plan.Unplaced), plan.Unplaced)
	}
}

func (c *CLI) writeOutputs(plan model.CutPlan, opts packOpts) error {
	if opts.out == "-" {
		if err := export.WriteJSON(c.out, plan); err != nil {
			return err
		}
	}

	outputs := []struct {
		format string
		path   string
	}{
		{"json", opts.out},
		{"pdf", opts.pdf},
		{"labels", opts.labels},
		{"xlsx", opts.xlsx},
		{"dxf", opts.dxf},
	}
	written := 0
	for _, o := range outputs {
		if o.path == "" || o.path == "-" {
			continue
		}
		if err := export.WriteFile(o.format, o.path, plan); err != nil {
			c.printError("Failed to write %s", o.path)
			os.Remove(o.path)
			return err
		}
		if written == 0 {
			c.printSuccess("Wrote")
		}
		c.printFile(o.path)
		written++
	}
	if written == 0 && opts.out != "-" {
		c.printInfo("No output files requested (see --out, --pdf, --labels, --xlsx, --dxf)")
	}
	return nil
}
