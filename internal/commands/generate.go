package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/simonhull/firebird-suite/roost/internal/generation"
	"github.com/simonhull/firebird-suite/roost/internal/output"
	"github.com/simonhull/firebird-suite/roost/internal/strategy"
	"github.com/simonhull/firebird-suite/roost/internal/ui"
)

var (
	requestFile string
	outPath     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a project archive from a request file",
	Long: `Reads a generation request (YAML or JSON) and writes the project zip.

Example request:
  projectName: shop
  architecture: monolith
  features: [cors, validation, users:mongodb, auth:jwt]
  config:
    auth:
      expiresIn: 2h

Example:
  roost generate -f shop.yaml
  roost generate -f shop.json -o build/shop.zip`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&requestFile, "file", "f", "", "Request file (YAML or JSON)")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output zip (default <projectName>.zip)")
	_ = generateCmd.MarkFlagRequired("file")

	RootCmd.AddCommand(generateCmd)
}

// readRequest decodes a request file; YAML is a superset of JSON so one
// decoder serves both
func readRequest(path string) (strategy.Request, error) {
	var req strategy.Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	return req, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := readRequest(requestFile)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.jobs.Shutdown(context.Background())

	id, err := a.jobs.Start(req)
	if err != nil {
		return err
	}
	output.Verbose("generation id " + id)

	var snap generation.Snapshot
	err = ui.Spin(cmd.ErrOrStderr(), "Generating "+req.ProjectName, func() error {
		var werr error
		snap, werr = a.jobs.Wait(cmd.Context(), id)
		return werr
	})
	if err != nil {
		return err
	}
	if snap.Status == generation.StatusFailed {
		return fmt.Errorf("generation failed [%s]: %s", snap.Error.Code, snap.Error.Message)
	}

	data, err := a.jobs.Archive(id)
	if err != nil {
		return err
	}

	dest := outPath
	if dest == "" {
		dest = req.ProjectName + ".zip"
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	output.Success(fmt.Sprintf("Wrote %s (%d bytes)", dest, len(data)))
	output.Step("unzip " + filepath.Base(dest) + " && npm install")
	return nil
}
