package commands

import (
	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/output"
)

var featuresArch string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the features available for an architecture",
	Long: `Prints the feature catalog as a tree. Child features are selected with
colon ids, e.g. users:mongodb.

Example:
  roost features
  roost features --architecture microservice`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().StringVarP(&featuresArch, "architecture", "a", "monolith", "monolith or microservice")
	RootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	arch, err := feature.ParseArchitecture(featuresArch)
	if err != nil {
		return err
	}
	tfs, err := templateFS(cfg)
	if err != nil {
		return err
	}

	nodes, err := feature.Catalog(tfs, arch)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		output.Info("No features found for " + arch.String())
		return nil
	}

	output.Info("Features for " + arch.String() + ":")
	output.Tree(treeItems(nodes))
	return nil
}

func treeItems(nodes []feature.Node) []output.TreeItem {
	items := make([]output.TreeItem, 0, len(nodes))
	for _, n := range nodes {
		note := n.Description
		if n.Shared {
			note = "(shared) " + note
		}
		items = append(items, output.TreeItem{
			Name:     string(n.ID),
			Note:     note,
			Children: treeItems(n.Children),
		})
	}
	return items
}
