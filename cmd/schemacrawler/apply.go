package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nlweb-ai/schemacrawler/pkg/runtime"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// siteManifest is one YAML document describing the sites a single
// user wants crawled. Multiple users can be onboarded by applying
// multiple manifests; apply is idempotent, since AddSite is.
type siteManifest struct {
	UserID string              `yaml:"userID"`
	Sites  []siteManifestEntry `yaml:"sites"`
}

type siteManifestEntry struct {
	URL           string `yaml:"url"`
	IntervalHours int    `yaml:"intervalHours"`
	Active        *bool  `yaml:"active"`
}

var applyCmd = &cobra.Command{
	Use:   "apply -f <manifest.yaml>",
	Short: "Register every site listed in a YAML manifest",
	Long: `Apply a batch of sites from a YAML manifest instead of one
add-site call per site.

Example manifest:

  userID: acct-123
  sites:
    - url: https://example.com
      intervalHours: 24
    - url: https://example.org
      intervalHours: 12
      active: false
`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(applyCmd)
}

func parseManifest(data []byte) (*siteManifest, error) {
	var manifest siteManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.UserID == "" {
		return nil, fmt.Errorf("manifest: userID is required")
	}
	if len(manifest.Sites) == 0 {
		return nil, fmt.Errorf("manifest: sites is empty, nothing to apply")
	}
	for _, s := range manifest.Sites {
		if s.URL == "" {
			return nil, fmt.Errorf("manifest: site entry missing url")
		}
	}
	return &manifest, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	manifest, err := parseManifest(data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	rt, err := runtime.New(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}
	defer rt.Stop()

	for _, s := range manifest.Sites {
		intervalHours := s.IntervalHours
		if intervalHours <= 0 {
			intervalHours = 24
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		site := &types.Site{
			SiteURL:              s.URL,
			UserID:               manifest.UserID,
			ProcessIntervalHours: intervalHours,
			IsActive:             active,
		}
		if err := rt.AddSite(ctx, site); err != nil {
			return fmt.Errorf("apply %s: %w", s.URL, err)
		}
		fmt.Printf("✓ applied %s (user %s, every %dh)\n", site.SiteURL, site.UserID, site.ProcessIntervalHours)
	}
	return nil
}
