package config

import (
	"errors"
	"fmt"
	"strings"

	"audiomason/internal/pipeline"
	"audiomason/internal/preflight"
)

// auxiliaryPrompts are prompt keys that are not preflight steps.
var auxiliaryPrompts = []string{
	"normalize_author",
	"normalize_book_title",
	"choose_cover",
	"cover_input",
	"clean_inbox",
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePreflight(); err != nil {
		return err
	}
	if _, err := c.PipelinePlan(); err != nil {
		return fmt.Errorf("pipeline.steps: %w", err)
	}
	if err := c.validateCover(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StageDir) == "" {
		return errors.New("paths.stage_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if _, err := c.PreflightOrder(); err != nil {
		return fmt.Errorf("preflight.steps: %w", err)
	}
	if _, err := c.DisabledSteps(); err != nil {
		return fmt.Errorf("preflight.disable: %w", err)
	}
	if _, err := c.DisabledPrompts(); err != nil {
		return fmt.Errorf("preflight.prompts_disable: %w", err)
	}
	switch c.Preflight.CleanInbox {
	case "ask", "yes", "no":
	default:
		return fmt.Errorf("preflight.clean_inbox must be ask, yes, or no (got %q)", c.Preflight.CleanInbox)
	}
	return nil
}

func (c *Config) validateCover() error {
	if c.Cover.GCMaxAgeDays < 0 {
		return errors.New("cover.gc_max_age_days must be >= 0")
	}
	if c.Cover.GCMaxMB < 0 {
		return errors.New("cover.gc_max_mb must be >= 0")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.QA < 0 || c.FFmpeg.QA > 9 {
		return errors.New("ffmpeg.q_a must be between 0 and 9")
	}
	switch c.FFmpeg.LogLevel {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug":
	default:
		return fmt.Errorf("ffmpeg.loglevel %q is not an ffmpeg log level", c.FFmpeg.LogLevel)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
}

// PreflightOrder parses preflight.steps. An empty list is the default order.
func (c *Config) PreflightOrder() (preflight.Order, error) {
	return preflight.ParseOrder(c.Preflight.Steps)
}

// PipelinePlan parses pipeline.steps. An unset list is the default plan.
func (c *Config) PipelinePlan() (pipeline.Plan, error) {
	return pipeline.Parse(c.Pipeline.Steps)
}

// DisabledSteps parses preflight.disable.
func (c *Config) DisabledSteps() (map[preflight.Step]bool, error) {
	out := make(map[preflight.Step]bool, len(c.Preflight.Disable))
	for _, key := range c.Preflight.Disable {
		step, err := preflight.ParseStep(key)
		if err != nil {
			return nil, err
		}
		out[step] = true
	}
	return out, nil
}

// DisabledPrompts parses preflight.prompts_disable. "*" must stand alone.
func (c *Config) DisabledPrompts() (map[string]bool, error) {
	allowed := make(map[string]bool)
	for _, key := range preflight.Keys() {
		allowed[key] = true
	}
	for _, key := range auxiliaryPrompts {
		allowed[key] = true
	}

	out := make(map[string]bool, len(c.Preflight.PromptsDisable))
	for _, key := range c.Preflight.PromptsDisable {
		if key != "*" && !allowed[key] {
			return nil, fmt.Errorf("unknown prompt key: %s", key)
		}
		if out[key] {
			return nil, fmt.Errorf("duplicate prompt key: %s", key)
		}
		out[key] = true
	}
	if out["*"] && len(out) > 1 {
		return nil, errors.New("'*' cannot be combined with other keys")
	}
	return out, nil
}
