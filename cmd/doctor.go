package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cn-vhql/AS-SKILLS/internal/config"
	"github.com/cn-vhql/AS-SKILLS/internal/embeddings"
	"github.com/cn-vhql/AS-SKILLS/internal/index"
	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and skill bundle problems",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	problems := 0

	printSection("Configuration")
	printOK("", "configuration is valid")
	printInfo("", fmt.Sprintf("skills directory: %s", cfg.SkillsDir))

	printSection("Skills Directory")
	if info, err := os.Stat(cfg.SkillsDir); err != nil {
		problems++
		printErr("", fmt.Sprintf("skills directory does not exist: %s", cfg.SkillsDir))
	} else if !info.IsDir() {
		problems++
		printErr("", fmt.Sprintf("%s is not a directory", cfg.SkillsDir))
	} else {
		ix := index.New()
		report, err := index.Scan(cmd.Context(), ix, cfg.SkillsDir)
		if err != nil {
			return err
		}
		printOK("", fmt.Sprintf("%d bundle(s) parsed", ix.Len()))
		for _, be := range report.Errors {
			problems++
			printErr(filepath.Base(be.Path), strings.TrimSpace(be.Err.Error()))
		}
		for _, m := range ix.Manifests() {
			missing, noExec := resourceProblems(m)
			for _, res := range missing {
				problems++
				printErr(m.ID, fmt.Sprintf("declared resource missing: %s", res))
			}
			for _, res := range noExec {
				printWarn(m.ID, fmt.Sprintf("script lacks an execute bit: %s", res))
			}
		}
		if ix.Len() == 0 && len(report.Errors) == 0 {
			printWarn("", "no skill bundles found; run 'as-skills init' for a sample")
		}
	}

	printSection("Usage Store")
	storePath, err := cfg.EffectiveStorePath()
	switch {
	case cfg.StoreBackend == config.StoreNone:
		printMiss("", "usage persistence disabled")
	case err != nil:
		problems++
		printErr("", err.Error())
	default:
		printOK("", fmt.Sprintf("%s backend at %s", cfg.StoreBackend, storePath))
	}

	printSection("Semantic Matching")
	if !cfg.SemanticEnabled {
		printMiss("", "disabled (set semantic_enabled: true to turn on)")
	} else {
		ecfg, err := embeddings.LoadConfig()
		if err != nil {
			problems++
			printErr("", err.Error())
		} else if ecfg.Provider == "" {
			problems++
			printErr("", "no embeddings provider configured (set ASSKILLS_EMBEDDINGS_PROVIDER)")
		} else if ecfg.APIKey == "" {
			problems++
			printErr("", "embeddings API key missing (set ASSKILLS_EMBEDDINGS_API_KEY)")
		} else {
			printOK("", fmt.Sprintf("provider %s, model %s", ecfg.Provider, ecfg.Model))
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

// resourceProblems checks one bundle's declared resources on disk:
// files that do not exist, and scripts missing an execute bit.
func resourceProblems(m manifest.Manifest) (missing, noExec []string) {
	for _, res := range m.ResourcePaths {
		info, err := os.Stat(filepath.Join(m.SourcePath, res))
		if err != nil {
			missing = append(missing, res)
			continue
		}
		if strings.HasPrefix(res, "scripts/") && info.Mode()&0o111 == 0 {
			noExec = append(noExec, res)
		}
	}
	return missing, noExec
}
