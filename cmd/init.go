package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cn-vhql/AS-SKILLS/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file, dotenv template and a sample skill",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const sampleConfig = `# as-skills configuration. Every key can also be set through the
# environment with an ASSKILLS_ prefix, e.g. ASSKILLS_TOP_K=3.
skills_dir: ./skills
match_threshold: 0.3
top_k: 5
cache_ttl: 1h
semantic_enabled: false
store_backend: json
log_level: info
log_format: text
`

const sampleSkill = `---
name: hello-skill
description: A starter skill that greets the user
keywords: [hello, greeting, example]
triggers:
  - say hello to the user
---

# Hello Skill

When activated, greet the user warmly and offer help.

See [the style guide](style.md) for tone.
`

const sampleStyle = `# Style Guide

Keep greetings short and friendly. One sentence is enough.
`

func runInit(cmd *cobra.Command, _ []string) error {
	dir, err := config.HomeDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	printSection("Init")

	cfgPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		printMiss("config", cfgPath+" already exists, keeping it")
	} else {
		if err := os.WriteFile(cfgPath, []byte(sampleConfig), 0o644); err != nil {
			return fmt.Errorf("cannot write %s: %w", cfgPath, err)
		}
		printOK("config", cfgPath)
	}

	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}
	envPath, _ := config.DotEnvPath()
	printOK("dotenv", envPath)

	skillDir := filepath.Join("skills", "hello-skill")
	descriptor := filepath.Join(skillDir, "SKILL.md")
	if _, err := os.Stat(descriptor); err == nil {
		printMiss("sample", descriptor+" already exists, keeping it")
		return nil
	}
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", skillDir, err)
	}
	if err := os.WriteFile(descriptor, []byte(sampleSkill), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", descriptor, err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "style.md"), []byte(sampleStyle), 0o644); err != nil {
		return err
	}
	printOK("sample", descriptor)

	fmt.Println("\nRun 'as-skills scan' to index the sample skill.")
	return nil
}
