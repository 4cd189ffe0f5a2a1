package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/logging"
)

// compareCommand creates the command that runs the default strategy set and
// prints a comparison table.
func (c *CLI) compareCommand() *cobra.Command {
	var jf jobFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare packing strategies on a part list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.loadJob(jf, cmd.Flags().Changed("no-rotate"), cmd.Flags().Changed("merge"))
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), c.Logger)
			results, err := engine.CompareStrategies(ctx, job.Sheet, job.Parts, engine.BuildDefaultScenarios(job.Options))
			if err != nil {
				return err
			}
			c.printComparison(results)
			return nil
		},
	}

	bindJobFlags(cmd, &jf)
	return cmd
}

func (c *CLI) printComparison(results []engine.ComparisonResult) {
	best := engine.Best(results)
	name := lipgloss.NewStyle().Width(28)
	num := lipgloss.NewStyle().Width(10).Align(lipgloss.Right)

	c.printTitle("Strategy comparison")
	fmt.Fprintln(c.out, styleDim.Render(name.Render("Strategy")+num.Render("Placed")+num.Render("Unplaced")+
		num.Render("Eff. %")+num.Render("Offcuts")))

	for i, r := range results {
		marker := "  "
		if i == best {
			marker = styleIconSuccess.Render(iconBest) + " "
		}
		if r.Err != "" {
			fmt.Fprintln(c.out, marker+name.Render(r.Scenario.Name)+styleIconError.Render(r.Err))
			continue
		}
		fmt.Fprintln(c.out, marker+name.Render(r.Scenario.Name)+
			num.Render(fmt.Sprint(r.Placed))+
			num.Render(fmt.Sprint(r.Unplaced))+
			num.Render(fmt.Sprintf("%.1f", r.Efficiency))+
			num.Render(fmt.Sprint(r.Offcuts)))
	}
	if best < 0 {
		c.printWarning("No strategy produced a plan")
	}
}
