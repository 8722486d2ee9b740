package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [floorplan]",
		Short: "Check a floor plan and show its cluster grids",
		Long: `Validate decodes the floor plan (.toml, .yaml or .json), reports every
problem it finds, and prints the unit grid derived for each cluster:
columns along the centerline, rows across it, and the unit size in map
pixels.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeFiles("toml", "yaml", "yml", "json"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runValidate(path)
		},
	}
}

func (c *CLI) runValidate(path string) error {
	fp, err := loadFloorPlan(path)
	if err != nil {
		return err
	}
	clusters, err := fp.BuildClusters()
	if err != nil {
		return err
	}

	var units int
	for _, cl := range clusters {
		units += cl.TotalUnits()
	}
	opts := fp.Options()
	c.Logger.Debug("floor plan valid", "path", floorPlanArg(path), "clusters", len(clusters))

	printSuccess("Floor plan %s is valid", StyleValue.Render(floorPlanArg(path)))
	printKeyValue("Maps", strconv.Itoa(len(fp.Maps)))
	printKeyValue("Clusters", strconv.Itoa(len(clusters)))
	printKeyValue("Units", strconv.Itoa(units))
	printKeyValue("Unit size", fmt.Sprintf("%g m", opts.BasicUnitSize))
	printKeyValue("Margin", fmt.Sprintf("%g px", opts.Margin))
	printKeyValue("Edge rule", string(opts.EdgeRule))
	fmt.Println()
	fmt.Println(clusterTable(clusters))
	fmt.Println()
	printNextStep("Allocate projects", fmt.Sprintf("%s allocate projects.csv -f %s", appName, floorPlanArg(path)))
	return nil
}
